package speech

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

// session turns one provider stream into the start/result/error/end
// notification sequence. forward is the only sender after run.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc

	audio  ports.AudioSession
	stream ports.StreamingSession
	cfg    Config
	log    zerolog.Logger

	events    chan domain.RecognitionEvent
	pumpDone  chan struct{}
	closing   atomic.Bool
	aborted   atomic.Bool
	stopOnce  sync.Once
	abortOnce sync.Once

	errMu sync.Mutex
	err   *domain.RecognitionError
}

func newSession(
	ctx context.Context,
	cancel context.CancelFunc,
	audio ports.AudioSession,
	stream ports.StreamingSession,
	cfg Config,
	log zerolog.Logger,
) *session {
	return &session{
		ctx:      ctx,
		cancel:   cancel,
		audio:    audio,
		stream:   stream,
		cfg:      cfg,
		log:      log,
		events:   make(chan domain.RecognitionEvent, 64),
		pumpDone: make(chan struct{}),
	}
}

func (s *session) run() {
	s.events <- domain.RecognitionEvent{Kind: domain.RecognitionEventStart}
	go s.pump()
	go s.forward()
}

func (s *session) Events() <-chan domain.RecognitionEvent {
	return s.events
}

// Stop ends capture, gives the provider the grace period to finalize, then
// half-closes the stream. The end event follows once the provider is done.
func (s *session) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.closing.Store(true)
		err = s.audio.Stop()
		<-s.pumpDone

		if s.cfg.StreamingGrace > 0 {
			timer := time.NewTimer(s.cfg.StreamingGrace)
			select {
			case <-timer.C:
			case <-s.ctx.Done():
				timer.Stop()
			}
		}

		_ = s.stream.CloseSend()
		go func() {
			_ = waitForStream(s.stream, s.cfg.CloseTimeout)
		}()
	})
	return err
}

// Abort discards the session without waiting for pending results.
func (s *session) Abort() error {
	s.abortOnce.Do(func() {
		s.closing.Store(true)
		s.aborted.Store(true)
		s.cancel()
		_ = s.audio.Stop()
		_ = s.stream.Close()
	})
	return nil
}

func (s *session) pump() {
	defer close(s.pumpDone)

	err := pumpAudioChunks(s.audio, s.stream, s.cfg.ChunkSize)
	switch {
	case s.closing.Load():
	case err != nil:
		s.fail(err)
		_ = s.stream.Close()
	default:
		// Capture ended on its own; let the provider finish what it has.
		_ = s.stream.CloseSend()
	}
}

func (s *session) forward() {
	defer close(s.events)
	defer s.cancel()

	for event := range s.stream.Events() {
		text := strings.TrimSpace(event.Text)
		if text == "" {
			continue
		}
		if event.Kind == domain.TranscriptKindFinal {
			s.events <- domain.RecognitionEvent{Kind: domain.RecognitionEventResult, Finals: []string{text + " "}}
			continue
		}
		s.events <- domain.RecognitionEvent{Kind: domain.RecognitionEventResult, Interim: text}
	}

	if err := s.stream.Wait(); err != nil && !s.aborted.Load() {
		s.fail(asRecognitionError(err, domain.RecognitionErrorNetwork))
	}

	// The provider is gone; make sure capture does not outlive it.
	s.closing.Store(true)
	_ = s.audio.Stop()

	if err := s.failure(); err != nil && !s.aborted.Load() {
		s.log.Warn().Str("code", string(err.Code)).Msg(err.Message)
		s.events <- domain.RecognitionEvent{Kind: domain.RecognitionEventError, Err: err}
	}
	s.events <- domain.RecognitionEvent{Kind: domain.RecognitionEventEnd}
}

func (s *session) fail(err error) {
	recErr := asRecognitionError(err, domain.RecognitionErrorAudioCapture)
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = recErr
	}
}

func (s *session) failure() *domain.RecognitionError {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
