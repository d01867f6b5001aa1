// Package audio decodes, encodes and analyses PCM audio.
//
// WAV handling goes through go-audio; samples are exposed as float64 in
// [-1, 1] so the analysis code does not care about bit depth.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when the input is not a readable RIFF/WAVE stream.
var ErrInvalidWAV = errors.New("audio: invalid wav data")

// PCM is decoded audio. Samples are interleaved when Channels > 1.
type PCM struct {
	Samples    []float64
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frames returns the number of sample frames (samples per channel).
func (p *PCM) Frames() int {
	if p.Channels <= 1 {
		return len(p.Samples)
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the playback length.
func (p *PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(p.Frames()) / float64(p.SampleRate) * float64(time.Second))
}

// DecodeWAV reads a WAV stream and normalises its samples by bit depth.
func DecodeWAV(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := float64(int64(1) << uint(depth-1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		s := float64(v) / scale
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		samples[i] = s
	}

	return &PCM{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   depth,
	}, nil
}

// DecodeWAVBytes is DecodeWAV over an in-memory buffer.
func DecodeWAVBytes(data []byte) (*PCM, error) {
	return DecodeWAV(bytes.NewReader(data))
}

// EncodeWAV writes 16-bit PCM samples as a WAV stream.
func EncodeWAV(w io.WriteSeeker, samples []int16, rate, channels int) error {
	if rate <= 0 {
		return fmt.Errorf("encode wav: invalid sample rate %d", rate)
	}
	if channels <= 0 {
		channels = 1
	}

	enc := wav.NewEncoder(w, rate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WAVBytes encodes samples into an in-memory WAV file.
func WAVBytes(samples []int16, rate, channels int) ([]byte, error) {
	var f memFile
	if err := EncodeWAV(&f, samples, rate, channels); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

// Silence returns a mono zero-filled buffer of the given length.
func Silence(d time.Duration, rate int) []int16 {
	if d <= 0 || rate <= 0 {
		return []int16{}
	}
	return make([]int16, int(d.Seconds()*float64(rate)))
}

// memFile is the io.WriteSeeker the wav encoder needs to patch its header.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position %d", next)
	}
	m.pos = int(next)
	return next, nil
}

func (m *memFile) Bytes() []byte { return m.buf }
