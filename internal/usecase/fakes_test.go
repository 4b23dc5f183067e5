package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeRecognizer struct {
	mu       sync.Mutex
	sessions []*fakeSession
	availErr error
	err      error
	calls    int
	lastCfg  ports.RecognitionConfig
}

func (f *fakeRecognizer) Available() error { return f.availErr }

func (f *fakeRecognizer) Start(_ context.Context, cfg ports.RecognitionConfig) (ports.RecognitionSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no recognition session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

func (f *fakeRecognizer) startCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSession flushes an end event and closes on Stop, like a platform
// recognizer that delivers pending results before ending.
type fakeSession struct {
	mu         sync.Mutex
	events     chan domain.RecognitionEvent
	closed     bool
	stopCalls  int
	abortCalls int
	stopErr    error
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan domain.RecognitionEvent, 32)}
}

func (f *fakeSession) Events() <-chan domain.RecognitionEvent { return f.events }

func (f *fakeSession) emit(event domain.RecognitionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.events <- event
	}
}

func (f *fakeSession) result(finals []string, interim string) {
	f.emit(domain.RecognitionEvent{Kind: domain.RecognitionEventResult, Finals: finals, Interim: interim})
}

func (f *fakeSession) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.events <- domain.RecognitionEvent{Kind: domain.RecognitionEventEnd}
	close(f.events)
	f.closed = true
}

func (f *fakeSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.end()
	return f.stopErr
}

func (f *fakeSession) Abort() error {
	f.mu.Lock()
	f.abortCalls++
	f.mu.Unlock()
	f.end()
	return nil
}

func (f *fakeSession) aborts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abortCalls
}

func (f *fakeSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeField struct {
	mu     sync.Mutex
	values []string
}

func (f *fakeField) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, text)
}

func (f *fakeField) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.values))
	copy(out, f.values)
	return out
}

func (f *fakeField) text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return ""
	}
	return f.values[len(f.values)-1]
}

type fakeMic struct {
	mu        sync.Mutex
	listening bool
	enabled   bool
	lit       int
}

func (f *fakeMic) SetListening(listening bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listening = listening
	if listening {
		f.lit++
	}
}

func (f *fakeMic) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

func (f *fakeMic) snapshot() (listening bool, enabled bool, lit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening, f.enabled, f.lit
}

type fakePanel struct {
	visible bool
	calls   int
}

func (f *fakePanel) SetVisible(visible bool) {
	f.visible = visible
	f.calls++
}

type fakeRules struct {
	replace map[string]string
	err     error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if out, ok := f.replace[text]; ok {
		return out, nil
	}
	return text, nil
}

type stateEvent struct {
	state  domain.DictationState
	reason domain.DictationStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu     sync.Mutex
	states []stateEvent
	errors []errEvent
	modes  []domain.FormMode
}

func (f *fakeEventSink) DictationStateChanged(state domain.DictationState, reason domain.DictationStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) DictationError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) ModeChanged(mode domain.FormMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotModes() []domain.FormMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.FormMode, len(f.modes))
	copy(out, f.modes)
	return out
}
