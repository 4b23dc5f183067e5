package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapabilityUnavailable is returned by every dictation request when no
	// speech recognizer could be found at startup.
	ErrCapabilityUnavailable = errors.New("speech recognition is not available")
	ErrUnknownFormMode       = errors.New("unknown form mode")
	ErrEmptyTranscript       = errors.New("nothing has been dictated yet")
)

// FormMode selects which input panel is shown.
type FormMode string

const (
	FormModeSingle FormMode = "single"
	FormModeBatch  FormMode = "batch"
)

// ParseFormMode maps a radio value to a FormMode. An empty value means no
// radio is checked, which renders as single.
func ParseFormMode(value string) (FormMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormModeSingle):
		return FormModeSingle, nil
	case string(FormModeBatch):
		return FormModeBatch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormMode, value)
	}
}

// DictationState models the mic toggle lifecycle.
type DictationState string

const (
	DictationStateIdle      DictationState = "idle"
	DictationStateListening DictationState = "listening"
)

// DictationStateReason provides a structured reason for state transitions.
type DictationStateReason string

const (
	DictationReasonMicReady          DictationStateReason = "mic_ready"
	DictationReasonMicUnavailable    DictationStateReason = "mic_unavailable"
	DictationReasonListeningStarted  DictationStateReason = "listening_started"
	DictationReasonListeningStopped  DictationStateReason = "listening_stopped"
	DictationReasonPlatformEnded     DictationStateReason = "platform_ended"
	DictationReasonRecognitionFailed DictationStateReason = "recognition_failed"
	DictationReasonStartFailed       DictationStateReason = "start_failed"
)

// ErrorCode identifies non-fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeUnavailable ErrorCode = "unavailable"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeRules       ErrorCode = "rules"
	ErrorCodeStart       ErrorCode = "start"
	ErrorCodeClipboard   ErrorCode = "clipboard"
)

// RecognitionEventKind is the closed set of notifications a recognition
// session delivers.
type RecognitionEventKind string

const (
	RecognitionEventStart  RecognitionEventKind = "start"
	RecognitionEventResult RecognitionEventKind = "result"
	RecognitionEventError  RecognitionEventKind = "error"
	RecognitionEventEnd    RecognitionEventKind = "end"
)

// RecognitionEvent is one notification from the recognizer. Result events
// carry zero or more finalized segments and at most one interim segment for
// the utterance still in progress.
type RecognitionEvent struct {
	Kind    RecognitionEventKind `json:"kind"`
	Finals  []string             `json:"finals,omitempty"`
	Interim string               `json:"interim,omitempty"`
	Err     *RecognitionError    `json:"error,omitempty"`
}

// RecognitionErrorCode mirrors the failure classes a speech service reports.
type RecognitionErrorCode string

const (
	RecognitionErrorNetwork      RecognitionErrorCode = "network"
	RecognitionErrorNoSpeech     RecognitionErrorCode = "no-speech"
	RecognitionErrorAudioCapture RecognitionErrorCode = "audio-capture"
	RecognitionErrorNotAllowed   RecognitionErrorCode = "not-allowed"
	RecognitionErrorService      RecognitionErrorCode = "service"
	RecognitionErrorAborted      RecognitionErrorCode = "aborted"
)

// RecognitionError is a mid-session failure. It ends the session but is
// never fatal to the application.
type RecognitionError struct {
	Code    RecognitionErrorCode `json:"code"`
	Message string               `json:"message"`
}

func (e *RecognitionError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// TranscriptKind identifies whether a provider event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent is raw streaming output from a transcription provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// Status summarizes the current runtime status.
type Status struct {
	State     DictationState `json:"state"`
	Listening bool           `json:"listening"`
	Available bool           `json:"available"`
	Mode      FormMode       `json:"mode,omitempty"`
	Message   string         `json:"message,omitempty"`
}
