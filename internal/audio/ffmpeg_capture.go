package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

const (
	defaultStartupProbe = 250 * time.Millisecond
	interruptGrace      = 1200 * time.Millisecond
	stderrTailLimit     = 4096
)

// FFMPEGCapture streams microphone PCM (s16le) from an ffmpeg child process.
type FFMPEGCapture struct {
	command string

	// startupProbe is how long Start watches for an immediate exit, which is
	// how ffmpeg reports a missing device or a denied permission.
	startupProbe time.Duration
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command, startupProbe: defaultStartupProbe}
}

// Available reports whether the recorder binary can be resolved.
func (c *FFMPEGCapture) Available() error {
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("audio recorder %q not found: %w", c.command, err)
	}
	return nil
}

// Start launches the recorder. Failures are *domain.RecognitionError values
// with code not-allowed or audio-capture.
func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, c.command, recorderArgs(cfg)...)
	stderr := &tailBuffer{limit: stderrTailLimit}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, captureError(fmt.Sprintf("failed to open recorder output: %v", err), "")
	}
	if err := cmd.Start(); err != nil {
		return nil, captureError(fmt.Sprintf("failed to start recorder: %v", err), "")
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	probe := c.startupProbe
	if probe <= 0 {
		probe = defaultStartupProbe
	}
	select {
	case err := <-exited:
		detail := "recorder exited before capture started"
		if err != nil {
			detail = fmt.Sprintf("%s: %v", detail, err)
		}
		return nil, captureError(detail, stderr.String())
	case <-time.After(probe):
	}

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  stderr,
		process: cmd.Process,
		exited:  exited,
	}, nil
}

func recorderArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// captureError classifies recorder output into a recognition error.
func captureError(detail string, stderr string) *domain.RecognitionError {
	stderr = strings.TrimSpace(stderr)
	message := detail
	if stderr != "" {
		message = detail + ": " + stderr
	}

	code := domain.RecognitionErrorAudioCapture
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"permission denied", "access denied", "not permitted"} {
		if strings.Contains(lower, marker) {
			code = domain.RecognitionErrorNotAllowed
			break
		}
	}
	return &domain.RecognitionError{Code: code, Message: message}
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *tailBuffer

	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

// Stop interrupts the recorder so it flushes, killing it if it lingers.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var waitErr error
		select {
		case err := <-s.exited:
			waitErr = err
		case <-time.After(interruptGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			waitErr = <-s.exited
		}
		s.stopErr = normalizeStopErr(waitErr)

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}
		if s.stopErr != nil {
			if tail := strings.TrimSpace(s.stderr.String()); tail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, tail)
			}
		}
	})

	return s.stopErr
}

// normalizeStopErr drops the non-zero exit an interrupted recorder reports.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if b.limit > 0 && len(b.buf) > b.limit {
		b.buf = append([]byte(nil), b.buf[len(b.buf)-b.limit:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
