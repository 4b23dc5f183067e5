package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

func TestFFMPEGCaptureStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nsleep 2\n")
	capture := NewFFMPEGCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "hello") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}

func TestFFMPEGCaptureEarlyExitIsAudioCapture(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'default: No such device' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script)
	capture.startupProbe = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})

	var recErr *domain.RecognitionError
	if !errors.As(err, &recErr) || recErr.Code != domain.RecognitionErrorAudioCapture {
		t.Fatalf("expected audio-capture error, got %v", err)
	}
	if !strings.Contains(recErr.Message, "exited before capture started") || !strings.Contains(recErr.Message, "No such device") {
		t.Fatalf("unexpected message: %q", recErr.Message)
	}
}

func TestFFMPEGCaptureEarlyExitPermissionIsNotAllowed(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "denied.sh", "#!/usr/bin/env bash\necho 'hw:0: Permission denied' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script)
	capture.startupProbe = time.Second

	_, err := capture.Start(context.Background(), ports.AudioConfig{})

	var recErr *domain.RecognitionError
	if !errors.As(err, &recErr) || recErr.Code != domain.RecognitionErrorNotAllowed {
		t.Fatalf("expected not-allowed error, got %v", err)
	}
}

func TestFFMPEGCaptureAvailable(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "rec.sh", "#!/usr/bin/env bash\nexit 0\n")
	if err := NewFFMPEGCapture(script).Available(); err != nil {
		t.Fatalf("expected script to be available, got %v", err)
	}

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	if err := NewFFMPEGCapture(missing).Available(); err == nil {
		t.Fatalf("expected missing recorder error")
	}
}

func TestRecorderArgsDefaults(t *testing.T) {
	t.Parallel()

	got := strings.Join(recorderArgs(ports.AudioConfig{}), " ")
	want := "-nostdin -hide_banner -loglevel warning -f pulse -i default -ac 1 -ar 16000 -f s16le -"
	if got != want {
		t.Fatalf("unexpected args:\n got %q\nwant %q", got, want)
	}

	got = strings.Join(recorderArgs(ports.AudioConfig{SampleRate: 48000, Channels: 2, InputFormat: "alsa", InputDevice: "hw:1"}), " ")
	if !strings.Contains(got, "-f alsa -i hw:1 -ac 2 -ar 48000") {
		t.Fatalf("unexpected args: %q", got)
	}
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	t.Parallel()

	b := &tailBuffer{limit: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	if got := b.String(); got != "defg" {
		t.Fatalf("unexpected tail: %q", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
