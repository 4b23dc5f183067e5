//go:build !linux

package audio

import (
	"context"
	"errors"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

var errPulseUnsupported = errors.New("pulse capture is only supported on linux")

type PulseCapture struct{}

func NewPulseCapture() *PulseCapture {
	return &PulseCapture{}
}

func (c *PulseCapture) Available() error {
	return errPulseUnsupported
}

func (c *PulseCapture) Start(context.Context, ports.AudioConfig) (ports.AudioSession, error) {
	return nil, &domain.RecognitionError{Code: domain.RecognitionErrorAudioCapture, Message: errPulseUnsupported.Error()}
}
