package usecase

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dictaform/internal/ports"
)

type activeSession struct {
	id      string
	session ports.RecognitionSession
	log     zerolog.Logger

	// done closes once every event of the session has been handled.
	done chan struct{}
}

func newActiveSession(session ports.RecognitionSession, log zerolog.Logger) *activeSession {
	id := uuid.NewString()
	return &activeSession{
		id:      id,
		session: session,
		log:     log.With().Str("session_id", id).Logger(),
		done:    make(chan struct{}),
	}
}
