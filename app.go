package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"dictaform/internal/bootstrap"
	"dictaform/internal/config"
	"dictaform/internal/domain"
	"dictaform/internal/logging"
	"dictaform/internal/usecase"
)

const (
	eventPanel   = "dictaform:panel"
	eventField   = "dictaform:field"
	eventMic     = "dictaform:mic"
	eventMode    = "dictaform:mode"
	eventSession = "dictaform:session"
	eventError   = "dictaform:error"

	panelSingle = "single_input"
	panelBatch  = "batch_input"
	fieldTarget = "nl_instruction"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	dictation *usecase.DictationController
	modes     *usecase.ModeSelector
	logger    *logging.Logger
	cfg       config.Config
	bootErr   error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(bootstrap.Surface{
		SinglePanel: panelWidget{app: a, id: panelSingle},
		BatchPanel:  panelWidget{app: a, id: panelBatch},
		Field:       fieldWidget{app: a, id: fieldTarget},
		Mic:         micWidget{app: a},
		Events:      a,
	})
	if err != nil {
		a.bootErr = err
		a.DictationError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.logger = services.Logger
	a.dictation = services.Dictation
	a.modes = services.Modes

	mode, err := domain.ParseFormMode(a.cfg.Form.DefaultMode)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ignoring configured default mode")
		mode = domain.FormModeSingle
	}
	if err := a.modes.Init(mode); err != nil {
		a.logger.Warn().Err(err).Str("mode", string(mode)).Msg("failed to apply default mode")
	}

	if err := a.dictation.Init(); err != nil {
		a.DictationError(domain.ErrorCodeUnavailable, err.Error())
	}
}

func (a *App) shutdown(_ context.Context) {
	if a.dictation != nil {
		a.dictation.Shutdown()
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// InitMode renders the panel for the radio the page loaded with checked.
// An empty value means nothing is checked.
func (a *App) InitMode(checked string) (domain.FormMode, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	mode, err := domain.ParseFormMode(checked)
	if err != nil {
		return a.modes.Mode(), err
	}
	if err := a.modes.Init(mode); err != nil {
		return a.modes.Mode(), err
	}
	return mode, nil
}

// SelectMode handles a change of the single/batch radio.
func (a *App) SelectMode(value string) (domain.FormMode, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	mode, err := domain.ParseFormMode(value)
	if err != nil {
		return a.modes.Mode(), err
	}
	if err := a.modes.OnModeChanged(mode); err != nil {
		return a.modes.Mode(), err
	}
	return mode, nil
}

// GetMode returns the visible form mode.
func (a *App) GetMode() domain.FormMode {
	if a.modes == nil {
		return domain.FormModeSingle
	}
	return a.modes.Mode()
}

// ToggleMic starts dictation when idle and stops it when listening.
func (a *App) ToggleMic() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.dictation.Toggle(a.ctx)
	return a.GetStatus(), quiet(err)
}

// StartMic starts dictation; it does nothing while already listening.
func (a *App) StartMic() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.dictation.Start(a.ctx)
	return a.GetStatus(), quiet(err)
}

// StopMic stops dictation; it does nothing while idle.
func (a *App) StopMic() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.dictation.Stop()
	return a.GetStatus(), quiet(err)
}

// ClearTranscript empties the dictated text.
func (a *App) ClearTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.dictation.ClearTranscript()
	return nil
}

// CopyTranscript copies the dictated text to the system clipboard.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.dictation.CopyTranscript(a.ctx, wailsClipboard{})
}

// GetStatus returns the current dictation status.
func (a *App) GetStatus() domain.Status {
	if a.dictation == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.DictationStateIdle, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.DictationStateIdle}
	}
	status := a.dictation.Status()
	status.Mode = a.GetMode()
	if !status.Available {
		status.Message = "Speech recognition unavailable"
	}
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"language":         a.cfg.Deepgram.Language,
		"rulesFile":        a.cfg.Rules.Path,
		"audioBackend":     a.cfg.Audio.Backend,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"defaultMode":      a.cfg.Form.DefaultMode,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.dictation == nil || a.modes == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// quiet drops the errors the UI already learns about through events or the
// disabled mic button.
func quiet(err error) error {
	if errors.Is(err, domain.ErrCapabilityUnavailable) {
		return nil
	}
	return err
}

// DictationStateChanged emits dictation lifecycle updates to the frontend.
func (a *App) DictationStateChanged(state domain.DictationState, reason domain.DictationStateReason) {
	a.emit(eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateReasonMessage(reason),
	})
}

// DictationError emits non-fatal backend errors to the UI.
func (a *App) DictationError(code domain.ErrorCode, detail string) {
	a.emit(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// ModeChanged tells the page which radio should be checked.
func (a *App) ModeChanged(mode domain.FormMode) {
	a.emit(eventMode, map[string]string{"mode": string(mode)})
}

func (a *App) emit(name string, payload any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, payload)
}

type wailsClipboard struct{}

func (wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

type panelWidget struct {
	app *App
	id  string
}

func (p panelWidget) SetVisible(visible bool) {
	p.app.emit(eventPanel, map[string]any{"id": p.id, "visible": visible})
}

type fieldWidget struct {
	app *App
	id  string
}

func (f fieldWidget) SetText(text string) {
	f.app.emit(eventField, map[string]string{"id": f.id, "text": text})
}

type micWidget struct {
	app *App
}

func (m micWidget) SetListening(listening bool) {
	m.app.emit(eventMic, map[string]bool{"listening": listening})
}

func (m micWidget) SetEnabled(enabled bool) {
	m.app.emit(eventMic, map[string]bool{"enabled": enabled})
}

func stateReasonMessage(reason domain.DictationStateReason) string {
	switch reason {
	case domain.DictationReasonMicReady:
		return "Mic ready"
	case domain.DictationReasonMicUnavailable:
		return "Speech recognition unavailable"
	case domain.DictationReasonListeningStarted:
		return "Listening"
	case domain.DictationReasonListeningStopped:
		return "Stopped listening"
	case domain.DictationReasonPlatformEnded:
		return "Recognition ended"
	case domain.DictationReasonRecognitionFailed:
		return "Recognition failed; click the mic to try again"
	case domain.DictationReasonStartFailed:
		return "Could not start listening"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeUnavailable:
		return "Speech recognition unavailable"
	case domain.ErrorCodeRecognition:
		return "Recognition error"
	case domain.ErrorCodeRules:
		return "Substitution rules failed"
	case domain.ErrorCodeStart:
		return "Could not start listening"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
