package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the form and its dictation backend.
type Config struct {
	Deepgram DeepgramConfig `yaml:"deepgram"`
	Audio    AudioConfig    `yaml:"audio"`
	Rules    RulesConfig    `yaml:"rules"`
	Session  SessionConfig  `yaml:"session"`
	Form     FormConfig     `yaml:"form"`
	Log      LogConfig      `yaml:"log"`
}

type DeepgramConfig struct {
	APIKey      string `yaml:"api_key"`
	APIBaseURL  string `yaml:"api_base"`
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	SmartFormat bool   `yaml:"smart_format"`
}

type AudioConfig struct {
	// Backend is "ffmpeg" (child process) or "pulse" (native client, linux).
	Backend         string `yaml:"backend"`
	RecorderCommand string `yaml:"recorder_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
}

type RulesConfig struct {
	Path           string `yaml:"path"`
	IterationLimit int    `yaml:"iteration_limit"`
}

type SessionConfig struct {
	ChunkSize      int           `yaml:"chunk_size"`
	StreamingGrace time.Duration `yaml:"streaming_grace"`
	CloseTimeout   time.Duration `yaml:"close_timeout"`
	InterimResults bool          `yaml:"interim_results"`
}

type FormConfig struct {
	DefaultMode string `yaml:"default_mode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default(home string) Config {
	return Config{
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			Language:    "en-US",
			SmartFormat: true,
		},
		Audio: AudioConfig{
			Backend:         "ffmpeg",
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
		},
		Rules: RulesConfig{
			Path:           filepath.Join(home, ".config", "dictaform", "substitutions.rules"),
			IterationLimit: 30,
		},
		Session: SessionConfig{
			ChunkSize:      4096,
			StreamingGrace: time.Second,
			CloseTimeout:   4 * time.Second,
			InterimResults: true,
		},
		Form: FormConfig{DefaultMode: "single"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load resolves configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (last wins).
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Default(home)

	path := strings.TrimSpace(os.Getenv("DICTAFORM_CONFIG"))
	explicit := path != ""
	if !explicit {
		path = filepath.Join(home, ".config", "dictaform", "config.yaml")
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.Language = envOrDefault("DEEPGRAM_LANGUAGE", cfg.Deepgram.Language)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)

	cfg.Audio.Backend = envOrDefault("DICTAFORM_AUDIO_BACKEND", cfg.Audio.Backend)
	cfg.Audio.RecorderCommand = envOrDefault("DICTAFORM_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("DICTAFORM_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(
		os.Getenv("DICTAFORM_AUDIO_INPUT_DEVICE"),
		os.Getenv("DEEPGRAM_PULSE_SOURCE"),
		cfg.Audio.InputDevice,
	)
	cfg.Audio.SampleRate = envOrDefaultInt("DICTAFORM_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("DICTAFORM_CHANNELS", cfg.Audio.Channels)

	cfg.Rules.Path = envOrDefault("DICTAFORM_RULES_FILE", cfg.Rules.Path)
	cfg.Rules.IterationLimit = envOrDefaultInt("DICTAFORM_RULE_ITERATION_LIMIT", cfg.Rules.IterationLimit)

	cfg.Session.ChunkSize = envOrDefaultInt("DICTAFORM_AUDIO_CHUNK_SIZE", cfg.Session.ChunkSize)
	cfg.Session.StreamingGrace = envOrDefaultMillis("DICTAFORM_STREAMING_GRACE_MS", cfg.Session.StreamingGrace)
	cfg.Session.CloseTimeout = envOrDefaultMillis("DICTAFORM_CLOSE_TIMEOUT_MS", cfg.Session.CloseTimeout)
	cfg.Session.InterimResults = envOrDefaultBool("DICTAFORM_INTERIM_RESULTS", cfg.Session.InterimResults)

	cfg.Form.DefaultMode = envOrDefault("DICTAFORM_DEFAULT_MODE", cfg.Form.DefaultMode)

	cfg.Log.Level = envOrDefault("DICTAFORM_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Dir = envOrDefault("DICTAFORM_LOG_DIR", cfg.Log.Dir)
}

func normalize(cfg *Config) {
	cfg.Audio.Backend = strings.ToLower(strings.TrimSpace(cfg.Audio.Backend))
	if cfg.Audio.Backend == "" {
		cfg.Audio.Backend = "ffmpeg"
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.StreamingGrace < 0 {
		cfg.Session.StreamingGrace = time.Second
	}
	if cfg.Session.CloseTimeout <= 0 {
		cfg.Session.CloseTimeout = 4 * time.Second
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
