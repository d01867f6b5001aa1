package stt_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-vhuman/pkg/stt"
)

func TestDemo(t *testing.T) {
	tr, err := stt.Demo{}.Transcribe(context.Background(), stt.Request{Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Text != stt.DemoText || tr.Confidence != 0.95 || tr.Mode != stt.ModeDemo {
		t.Errorf("unexpected transcript %+v", tr)
	}
}

func TestNewWhisperRequiresKey(t *testing.T) {
	if _, err := stt.NewWhisper(""); !errors.Is(err, stt.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("unexpected model %q", r.FormValue("model"))
		}
		if r.FormValue("language") != "en" || r.FormValue("prompt") != "greeting" {
			t.Errorf("language/prompt not forwarded: %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "RIFF-data" || hdr.Filename != "hello.wav" {
			t.Errorf("unexpected upload %s %q", hdr.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task":"transcribe","language":"english","duration":1.5,"text":"hello there"}`))
	}))
	defer srv.Close()

	w, err := stt.NewWhisper("sk-test", stt.WithBaseURL(srv.URL+"/v1"))
	if err != nil {
		t.Fatalf("NewWhisper: %v", err)
	}

	tr, err := w.Transcribe(context.Background(), stt.Request{
		Audio:    strings.NewReader("RIFF-data"),
		Filename: "hello.wav",
		Language: "en",
		Prompt:   "greeting",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hello there" || tr.Language != "english" || tr.Duration != 1.5 {
		t.Errorf("unexpected transcript %+v", tr)
	}
	if tr.Mode != stt.ModeProduction {
		t.Errorf("expected production mode, got %s", tr.Mode)
	}
}

func TestWhisperError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	w, _ := stt.NewWhisper("sk-bad", stt.WithBaseURL(srv.URL+"/v1"))
	_, err := w.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("x")})

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusUnauthorized {
		t.Fatalf("expected a 401 API error, got %v", err)
	}

	if _, err := w.Transcribe(context.Background(), stt.Request{}); !errors.Is(err, stt.ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
}

func TestMock(t *testing.T) {
	m := &stt.Mock{TranscribeFunc: func(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
		return &stt.Transcript{Text: "mocked"}, nil
	}}
	tr, _ := m.Transcribe(context.Background(), stt.Request{Language: "fr"})
	if tr.Text != "mocked" {
		t.Errorf("unexpected text %s", tr.Text)
	}
	if reqs := m.Requests(); len(reqs) != 1 || reqs[0].Language != "fr" {
		t.Errorf("unexpected requests %+v", reqs)
	}
}
