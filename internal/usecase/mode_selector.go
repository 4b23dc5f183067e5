package usecase

import (
	"sync"

	"github.com/rs/zerolog"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

// ModeSelector keeps exactly one of the single and batch input panels
// visible.
type ModeSelector struct {
	single ports.Panel
	batch  ports.Panel
	events ports.EventSink
	log    zerolog.Logger

	mu   sync.Mutex
	mode domain.FormMode
}

func NewModeSelector(single ports.Panel, batch ports.Panel, events ports.EventSink, log zerolog.Logger) *ModeSelector {
	return &ModeSelector{single: single, batch: batch, events: events, log: log}
}

// Init renders the panel matching the pre-checked radio value. Nothing
// checked renders single.
func (s *ModeSelector) Init(checked domain.FormMode) error {
	mode, err := domain.ParseFormMode(string(checked))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.render(mode)
	return nil
}

// OnModeChanged shows the panel for mode and hides the other one.
func (s *ModeSelector) OnModeChanged(mode domain.FormMode) error {
	parsed, err := domain.ParseFormMode(string(mode))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.render(parsed)
	return nil
}

// Mode returns the visible mode.
func (s *ModeSelector) Mode() domain.FormMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == "" {
		return domain.FormModeSingle
	}
	return s.mode
}

func (s *ModeSelector) render(mode domain.FormMode) {
	s.single.SetVisible(mode == domain.FormModeSingle)
	s.batch.SetVisible(mode == domain.FormModeBatch)
	s.mode = mode
	s.log.Debug().Str("mode", string(mode)).Msg("form mode")
	s.events.ModeChanged(mode)
}
