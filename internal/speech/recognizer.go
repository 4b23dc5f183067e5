package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

// Config controls capture and streaming for each recognition session.
type Config struct {
	Audio          ports.AudioConfig
	Streaming      ports.StreamingConfig
	ChunkSize      int
	StreamingGrace time.Duration
	CloseTimeout   time.Duration
}

// Recognizer implements ports.Recognizer by streaming microphone audio to a
// transcription provider.
type Recognizer struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      Config
	log      zerolog.Logger
}

func NewRecognizer(audio ports.AudioCapture, provider ports.TranscriptionProvider, cfg Config, log zerolog.Logger) *Recognizer {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 4 * time.Second
	}
	return &Recognizer{audio: audio, provider: provider, cfg: cfg, log: log}
}

// Available reports why recognition cannot run, or nil when it can.
func (r *Recognizer) Available() error {
	if r.provider == nil || r.audio == nil {
		return errors.New("speech recognizer is not wired")
	}
	if err := r.provider.Configured(); err != nil {
		return fmt.Errorf("transcription provider: %w", err)
	}
	if err := r.audio.Available(); err != nil {
		return fmt.Errorf("audio capture: %w", err)
	}
	return nil
}

// Start opens the provider stream, then the microphone. The returned
// session has already queued its start event.
func (r *Recognizer) Start(ctx context.Context, rc ports.RecognitionConfig) (ports.RecognitionSession, error) {
	streamCfg := r.cfg.Streaming
	if rc.Language != "" {
		streamCfg.Language = rc.Language
	}
	streamCfg.InterimResults = rc.InterimResults

	sessionCtx, cancel := context.WithCancel(ctx)
	stream, err := r.provider.StartStreaming(sessionCtx, streamCfg)
	if err != nil {
		cancel()
		return nil, asRecognitionError(err, domain.RecognitionErrorNetwork)
	}

	audio, err := r.audio.Start(sessionCtx, r.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return nil, asRecognitionError(err, domain.RecognitionErrorAudioCapture)
	}

	s := newSession(sessionCtx, cancel, audio, stream, r.cfg, r.log)
	s.run()
	return s, nil
}

func asRecognitionError(err error, fallback domain.RecognitionErrorCode) *domain.RecognitionError {
	var recErr *domain.RecognitionError
	if errors.As(err, &recErr) {
		return recErr
	}
	return &domain.RecognitionError{Code: fallback, Message: err.Error()}
}
