package tts

import "io"

// bufferStream serves a complete clip as a single chunk.
type bufferStream struct {
	data   []byte
	done   bool
	format AudioFormat
}

func (s *bufferStream) Read() ([]byte, error) {
	if s.done || len(s.data) == 0 {
		return nil, nil
	}
	s.done = true
	return s.data, nil
}

func (s *bufferStream) Close() error        { return nil }
func (s *bufferStream) Format() AudioFormat { return s.format }

// bodyStream hands out an HTTP body in chunks as it arrives.
type bodyStream struct {
	body   io.ReadCloser
	format AudioFormat
}

func (s *bodyStream) Read() ([]byte, error) {
	buf := make([]byte, 4096)
	for {
		n, err := s.body.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *bodyStream) Close() error        { return s.body.Close() }
func (s *bodyStream) Format() AudioFormat { return s.format }
