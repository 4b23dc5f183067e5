//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

// PulseCapture records straight from the PulseAudio (or PipeWire-pulse)
// server without a child process.
type PulseCapture struct{}

func NewPulseCapture() *PulseCapture {
	return &PulseCapture{}
}

// Available reports whether a pulse server accepts connections.
func (c *PulseCapture) Available() error {
	client, err := pulse.NewClient()
	if err != nil {
		return fmt.Errorf("pulse: %w", err)
	}
	client.Close()
	return nil
}

func (c *PulseCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	client, err := pulse.NewClient()
	if err != nil {
		return nil, &domain.RecognitionError{Code: domain.RecognitionErrorAudioCapture, Message: fmt.Sprintf("pulse: %v", err)}
	}

	session := &pulseSession{
		client:  client,
		chunks:  make(chan []byte, 64),
		stopped: make(chan struct{}),
	}

	opts := []pulse.RecordOption{
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordLatency(0.05),
	}
	if cfg.Channels == 2 {
		opts = append(opts, pulse.RecordStereo)
	} else {
		opts = append(opts, pulse.RecordMono)
	}
	if cfg.InputDevice != "" && cfg.InputDevice != "default" {
		source, err := client.SourceByID(cfg.InputDevice)
		if err != nil {
			client.Close()
			return nil, &domain.RecognitionError{
				Code:    domain.RecognitionErrorAudioCapture,
				Message: fmt.Sprintf("pulse source %q: %v", cfg.InputDevice, err),
			}
		}
		opts = append(opts, pulse.RecordSource(source))
	}

	stream, err := client.NewRecord(pulse.Int16Writer(session.write), opts...)
	if err != nil {
		client.Close()
		return nil, &domain.RecognitionError{Code: domain.RecognitionErrorAudioCapture, Message: fmt.Sprintf("pulse record: %v", err)}
	}
	session.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = session.Stop()
		case <-session.stopped:
		}
	}()

	return session, nil
}

// pulseSession adapts the callback-driven record stream to io.Reader as
// s16le PCM.
type pulseSession struct {
	client *pulse.Client
	stream *pulse.RecordStream

	chunks   chan []byte
	stopped  chan struct{}
	stopOnce sync.Once
	pending  []byte
}

func (s *pulseSession) write(samples []int16) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
	}

	select {
	case <-s.stopped:
		return len(samples), nil
	default:
	}
	select {
	case s.chunks <- data:
	default:
		// reader fell behind; drop the chunk rather than stall the server
	}
	return len(samples), nil
}

func (s *pulseSession) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case chunk := <-s.chunks:
			s.pending = chunk
		case <-s.stopped:
			select {
			case chunk := <-s.chunks:
				s.pending = chunk
			default:
				return 0, io.EOF
			}
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *pulseSession) Close() error {
	return s.Stop()
}

func (s *pulseSession) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.stream != nil {
			s.stream.Stop()
			s.stream.Close()
		}
		s.client.Close()
	})
	return nil
}
