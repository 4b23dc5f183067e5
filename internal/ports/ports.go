package ports

import (
	"context"
	"io"

	"dictaform/internal/domain"
)

// Panel is one of the two mutually exclusive input containers.
type Panel interface {
	SetVisible(visible bool)
}

// TextField is the form field dictated text is written into.
type TextField interface {
	SetText(text string)
}

// MicControl is the toggle button bound to dictation.
type MicControl interface {
	SetListening(listening bool)
	SetEnabled(enabled bool)
}

// RecognitionConfig describes a speech recognition request.
type RecognitionConfig struct {
	Language       string
	InterimResults bool
}

// RecognitionSession is one running recognition attempt. Events is closed
// after the end event has been delivered.
type RecognitionSession interface {
	Events() <-chan domain.RecognitionEvent
	Stop() error
	Abort() error
}

// Recognizer is the platform speech-to-text capability.
type Recognizer interface {
	Available() error
	Start(ctx context.Context, cfg RecognitionConfig) (RecognitionSession, error)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Available() error
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	Configured() error
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// RulesEngine transforms finalized text using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// EventSink emits backend state to the UI.
type EventSink interface {
	DictationStateChanged(state domain.DictationState, reason domain.DictationStateReason)
	DictationError(code domain.ErrorCode, detail string)
	ModeChanged(mode domain.FormMode)
}
