package record

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"multibot/internal/config"
)

const framesPerBuffer = 1024

type paSource struct {
	stream *portaudio.Stream
	buf    []int16
}

func openPortAudio(cfg config.Config) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	buf := make([]int16, framesPerBuffer*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SAMPLING_RATE), framesPerBuffer, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &paSource{stream: stream, buf: buf}, nil
}

func (s *paSource) Start() error { return s.stream.Start() }

func (s *paSource) Read() ([]int16, error) {
	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return s.buf, ErrOverflow
		}
		return nil, err
	}
	return s.buf, nil
}

func (s *paSource) Close() error {
	s.stream.Stop()
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}
