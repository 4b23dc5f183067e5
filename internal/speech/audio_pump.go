package speech

import (
	"errors"
	"fmt"
	"io"
	"time"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

func pumpAudioChunks(audio ports.AudioSession, stream ports.StreamingSession, chunkSize int) error {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				return asRecognitionError(fmt.Errorf("failed to stream audio: %w", sendErr), domain.RecognitionErrorNetwork)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &domain.RecognitionError{
				Code:    domain.RecognitionErrorAudioCapture,
				Message: fmt.Sprintf("audio capture error: %v", err),
			}
		}
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
