package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/audio"
	"github.com/teslashibe/go-vhuman/pkg/stt"
	"github.com/teslashibe/go-vhuman/pkg/tts"
)

// TTSRequest is the body of POST /api/audio/tts.
type TTSRequest struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voice_id"`
	Emotion  string `json:"emotion"`
	Provider string `json:"provider"`
}

// voiceCloner is implemented by providers that can create voices.
type voiceCloner interface {
	CloneVoice(ctx context.Context, cr tts.CloneRequest) (*tts.Voice, error)
}

func isAudio(fh *multipart.FileHeader) bool {
	return strings.HasPrefix(fh.Header.Get(fiber.HeaderContentType), "audio/")
}

// wantsAudio reports whether the Accept header asks for audio bytes.
func wantsAudio(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		if strings.HasPrefix(strings.TrimSpace(part), "audio/") {
			return true
		}
	}
	return false
}

func (s *Server) provider(name string) (tts.Provider, error) {
	if name == "" {
		return s.svc.TTS, nil
	}
	p, ok := s.svc.TTSProviders[strings.ToLower(name)]
	if !ok {
		return nil, badRequest("unknown tts provider: " + name)
	}
	return p, nil
}

func (s *Server) handleSTT(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio_file")
	if err != nil {
		return badRequest("audio_file is required")
	}
	if !isAudio(fh) {
		return badRequest("File must be an audio file")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	t, err := s.svc.STT.Transcribe(c.UserContext(), stt.Request{
		Audio:    f,
		Filename: fh.Filename,
		Language: c.FormValue("language"),
		Prompt:   c.FormValue("prompt"),
	})
	if err != nil {
		return err
	}
	return c.JSON(t)
}

func (s *Server) handleTTS(c *fiber.Ctx) error {
	var req TTSRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return badRequest("Text is required")
	}
	p, err := s.provider(req.Provider)
	if err != nil {
		return err
	}

	res, err := tts.Speak(c.UserContext(), p, req.Text, tts.Options{VoiceID: req.VoiceID, Emotion: req.Emotion})
	if err != nil {
		return err
	}

	emotion := res.Emotion
	if emotion == "" {
		emotion = req.Emotion
	}
	if emotion == "" {
		emotion = "neutral"
	}

	if wantsAudio(c.Get(fiber.HeaderAccept)) {
		c.Set(fiber.HeaderContentType, res.Format.Encoding.MIMEType())
		c.Set(fiber.HeaderContentDisposition, "attachment; filename=response"+res.Format.Encoding.Extension())
		c.Set("X-Emotion", emotion)
		return c.Send(res.Audio)
	}

	mode := res.Mode
	if mode == "" {
		mode = tts.ModeProduction
	}
	return c.JSON(fiber.Map{
		"audio_base64": base64.StdEncoding.EncodeToString(res.Audio),
		"duration":     res.Duration.Seconds(),
		"voice_id":     res.VoiceID,
		"emotion":      emotion,
		"format":       res.Format.Encoding,
		"mode":         mode,
	})
}

func (s *Server) handleVoices(c *fiber.Ctx) error {
	p, err := s.provider(c.Query("provider"))
	if err != nil {
		return err
	}
	lister, ok := p.(tts.VoiceLister)
	if !ok && c.Query("provider") == "" {
		lister, ok = s.svc.TTSProviders["elevenlabs"].(tts.VoiceLister)
	}
	if !ok {
		return c.JSON(fiber.Map{"voices": []tts.Voice{}})
	}
	voices, err := lister.Voices(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"voices": voices})
}

// cloner finds the first configured provider able to clone voices.
func (s *Server) cloner() voiceCloner {
	if vc, ok := s.svc.TTS.(voiceCloner); ok {
		return vc
	}
	if vc, ok := s.svc.TTSProviders["elevenlabs"].(voiceCloner); ok {
		return vc
	}
	return nil
}

func (s *Server) handleCloneVoice(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest("multipart form required")
	}
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return badRequest("name is required")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return tts.ErrNoSamples
	}

	vc := s.cloner()
	if vc == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "voice cloning requires an ElevenLabs API key")
	}

	samples := make([]tts.VoiceSample, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		samples = append(samples, tts.VoiceSample{Filename: fh.Filename, Data: f})
	}

	voice, err := vc.CloneVoice(c.UserContext(), tts.CloneRequest{
		Name:        name,
		Description: c.FormValue("description"),
		Samples:     samples,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"voice_id": voice.ID,
		"name":     voice.Name,
		"voice":    voice,
	})
}

// uploadBytes returns the audio_file part when present and the raw body
// otherwise.
func uploadBytes(c *fiber.Ctx) ([]byte, error) {
	if fh, err := c.FormFile("audio_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return c.Body(), nil
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	data, err := uploadBytes(c)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return badRequest("audio data is required")
	}
	pcm, err := audio.DecodeWAVBytes(data)
	if err != nil {
		return err
	}
	return c.JSON(audio.Analyze(pcm))
}

// handleStream transcribes a WAV body, or headerless PCM16 recorded at
// ?sample_rate.
func (s *Server) handleStream(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return badRequest("audio data is required")
	}
	clip, err := audio.SpeechWAV(body, c.QueryInt("sample_rate", audio.SpeechRate))
	if err != nil {
		return err
	}

	t, err := s.svc.STT.Transcribe(c.UserContext(), stt.Request{
		Audio:    bytes.NewReader(clip),
		Filename: "stream.wav",
		Language: c.Query("language"),
	})
	if err != nil {
		s.log.Error("audio stream failed", "error", err)
		return c.JSON(fiber.Map{
			"status": "error",
			"text":   "Error processing audio",
			"mode":   "error",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "processed",
		"text":   t.Text,
		"mode":   t.Mode,
	})
}
