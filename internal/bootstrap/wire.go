package bootstrap

import (
	"fmt"

	"dictaform/internal/audio"
	"dictaform/internal/config"
	"dictaform/internal/logging"
	"dictaform/internal/ports"
	"dictaform/internal/providers/deepgram"
	"dictaform/internal/rules"
	"dictaform/internal/speech"
	"dictaform/internal/usecase"
)

// Surface is the set of UI handles the backend drives.
type Surface struct {
	SinglePanel ports.Panel
	BatchPanel  ports.Panel
	Field       ports.TextField
	Mic         ports.MicControl
	Events      ports.EventSink
}

// Services is the assembled runtime graph.
type Services struct {
	Dictation *usecase.DictationController
	Modes     *usecase.ModeSelector
	Config    config.Config
	Logger    *logging.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(surface Surface) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Dir: cfg.Log.Dir})
	if err != nil {
		return Services{}, err
	}

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		_ = logger.Close()
		return Services{}, err
	}
	logger.Info().Str("path", cfg.Rules.Path).Int("rules", rulesEngine.Len()).Msg("substitution rules loaded")

	capture, err := newCapture(cfg.Audio)
	if err != nil {
		_ = logger.Close()
		return Services{}, err
	}

	recognizer := speech.NewRecognizer(
		capture,
		deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}),
		speech.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				Encoding:   "linear16",
			},
			ChunkSize:      cfg.Session.ChunkSize,
			StreamingGrace: cfg.Session.StreamingGrace,
			CloseTimeout:   cfg.Session.CloseTimeout,
		},
		logger.With().Str("component", "speech").Logger(),
	)

	dictation := usecase.NewDictationController(
		recognizer,
		rulesEngine,
		surface.Field,
		surface.Mic,
		surface.Events,
		usecase.Config{
			Recognition: ports.RecognitionConfig{
				Language:       cfg.Deepgram.Language,
				InterimResults: cfg.Session.InterimResults,
			},
		},
		logger.With().Str("component", "dictation").Logger(),
	)

	modes := usecase.NewModeSelector(
		surface.SinglePanel,
		surface.BatchPanel,
		surface.Events,
		logger.With().Str("component", "form").Logger(),
	)

	return Services{Dictation: dictation, Modes: modes, Config: cfg, Logger: logger}, nil
}

func newCapture(cfg config.AudioConfig) (ports.AudioCapture, error) {
	switch cfg.Backend {
	case "", "ffmpeg":
		return audio.NewFFMPEGCapture(cfg.RecorderCommand), nil
	case "pulse":
		return audio.NewPulseCapture(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
