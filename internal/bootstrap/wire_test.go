package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"dictaform/internal/config"
	"dictaform/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DICTAFORM_CONFIG", "")
	t.Setenv("DICTAFORM_LOG_DIR", filepath.Join(home, "logs"))
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	services, err := Build(noopSurface())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Logger.Close()

	if services.Dictation == nil || services.Modes == nil {
		t.Fatalf("expected dictation controller and mode selector")
	}
	if services.Config.Deepgram.APIKey != "test-key" {
		t.Fatalf("expected config to be loaded")
	}
}

func TestBuildWithoutAPIKeyDisablesDictation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DICTAFORM_CONFIG", "")
	t.Setenv("DICTAFORM_LOG_DIR", filepath.Join(home, "logs"))
	t.Setenv("DEEPGRAM_API_KEY", "")

	services, err := Build(noopSurface())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Logger.Close()

	if err := services.Dictation.Init(); !errors.Is(err, domain.ErrCapabilityUnavailable) {
		t.Fatalf("expected unavailable dictation, got %v", err)
	}
}

func TestBuildFailsOnInvalidRules(t *testing.T) {
	home := t.TempDir()
	rules := filepath.Join(home, "bad.rules")
	if err := os.WriteFile(rules, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("DICTAFORM_CONFIG", "")
	t.Setenv("DICTAFORM_LOG_DIR", filepath.Join(home, "logs"))
	t.Setenv("DICTAFORM_RULES_FILE", rules)

	if _, err := Build(noopSurface()); err == nil {
		t.Fatalf("expected build error due to invalid rules")
	}
}

func TestBuildFailsOnInvalidLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DICTAFORM_CONFIG", "")
	t.Setenv("DICTAFORM_LOG_LEVEL", "shouty")

	if _, err := Build(noopSurface()); err == nil {
		t.Fatalf("expected build error due to invalid log level")
	}
}

func TestBuildFailsOnUnknownAudioBackend(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DICTAFORM_CONFIG", "")
	t.Setenv("DICTAFORM_LOG_DIR", filepath.Join(home, "logs"))
	t.Setenv("DICTAFORM_AUDIO_BACKEND", "jack")

	if _, err := Build(noopSurface()); err == nil {
		t.Fatalf("expected build error due to unknown audio backend")
	}
}

func TestNewCaptureSelectsBackend(t *testing.T) {
	t.Parallel()

	for backend, want := range map[string]string{
		"":       "*audio.FFMPEGCapture",
		"ffmpeg": "*audio.FFMPEGCapture",
		"pulse":  "*audio.PulseCapture",
	} {
		capture, err := newCapture(config.AudioConfig{Backend: backend})
		if err != nil {
			t.Fatalf("backend %q: unexpected error: %v", backend, err)
		}
		if got := fmt.Sprintf("%T", capture); got != want {
			t.Fatalf("backend %q: expected %s, got %s", backend, want, got)
		}
	}
}

func noopSurface() Surface {
	return Surface{
		SinglePanel: noopPanel{},
		BatchPanel:  noopPanel{},
		Field:       noopField{},
		Mic:         noopMic{},
		Events:      noopEventSink{},
	}
}

type noopPanel struct{}

func (noopPanel) SetVisible(_ bool) {}

type noopField struct{}

func (noopField) SetText(_ string) {}

type noopMic struct{}

func (noopMic) SetListening(_ bool) {}
func (noopMic) SetEnabled(_ bool)   {}

type noopEventSink struct{}

func (noopEventSink) DictationStateChanged(_ domain.DictationState, _ domain.DictationStateReason) {}
func (noopEventSink) DictationError(_ domain.ErrorCode, _ string)                                  {}
func (noopEventSink) ModeChanged(_ domain.FormMode)                                                {}
