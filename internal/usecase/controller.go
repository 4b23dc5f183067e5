package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"dictaform/internal/domain"
	"dictaform/internal/ports"
)

// Config controls dictation behavior.
type Config struct {
	Recognition ports.RecognitionConfig
}

// DictationController binds a recognizer to one text field through a
// two-state toggle. Confirmed text accumulates across sessions; the field
// shows it followed by the tentative text of the current utterance.
type DictationController struct {
	recognizer ports.Recognizer
	rules      ports.RulesEngine
	field      ports.TextField
	mic        ports.MicControl
	events     ports.EventSink
	cfg        Config
	log        zerolog.Logger

	// requestMu serializes user requests; mu guards state and is also held
	// while a recognition event is handled.
	requestMu sync.Mutex
	mu        sync.Mutex

	available  bool
	state      domain.DictationState
	current    *activeSession
	transcript transcriptBuffer
}

func NewDictationController(
	recognizer ports.Recognizer,
	rules ports.RulesEngine,
	field ports.TextField,
	mic ports.MicControl,
	events ports.EventSink,
	cfg Config,
	log zerolog.Logger,
) *DictationController {
	return &DictationController{
		recognizer: recognizer,
		rules:      rules,
		field:      field,
		mic:        mic,
		events:     events,
		cfg:        cfg,
		log:        log,
		state:      domain.DictationStateIdle,
	}
}

// Init probes the recognizer. When it is missing or unusable the mic is
// disabled for good and every later request returns ErrCapabilityUnavailable.
func (c *DictationController) Init() error {
	var err error
	if c.recognizer == nil {
		err = domain.ErrCapabilityUnavailable
	} else if probeErr := c.recognizer.Available(); probeErr != nil {
		err = fmt.Errorf("%w: %v", domain.ErrCapabilityUnavailable, probeErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.mic.SetListening(false)
	if err != nil {
		c.available = false
		c.mic.SetEnabled(false)
		c.log.Warn().Err(err).Msg("dictation disabled")
		c.events.DictationStateChanged(domain.DictationStateIdle, domain.DictationReasonMicUnavailable)
		return err
	}

	c.available = true
	c.mic.SetEnabled(true)
	c.events.DictationStateChanged(domain.DictationStateIdle, domain.DictationReasonMicReady)
	return nil
}

// Toggle starts dictation when idle and stops it when listening.
func (c *DictationController) Toggle(ctx context.Context) error {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	c.mu.Lock()
	listening := c.state == domain.DictationStateListening
	c.mu.Unlock()

	if listening {
		return c.stop()
	}
	return c.start(ctx)
}

// Start begins a recognition session. It is a no-op while listening.
func (c *DictationController) Start(ctx context.Context) error {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()
	return c.start(ctx)
}

// Stop ends the current session and waits until its pending results have
// been written to the field. It is a no-op while idle.
func (c *DictationController) Stop() error {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()
	return c.stop()
}

// Shutdown discards the current session without waiting for its pending
// results. Used when the window is going away.
func (c *DictationController) Shutdown() {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	c.mu.Lock()
	active := c.current
	c.current = nil
	listening := c.state == domain.DictationStateListening
	c.state = domain.DictationStateIdle
	c.transcript.dropInterim()
	if listening {
		c.mic.SetListening(false)
	}
	c.mu.Unlock()

	if active == nil {
		return
	}
	c.abort(active)
	<-active.done
	active.log.Info().Msg("aborted")
}

// ClearTranscript forgets all dictated text and empties the field.
func (c *DictationController) ClearTranscript() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript.clear()
	c.field.SetText("")
}

// Transcript returns the confirmed text accumulated so far.
func (c *DictationController) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.final
}

// CopyTranscript puts the confirmed text on the clipboard.
func (c *DictationController) CopyTranscript(ctx context.Context, clipboard ports.Clipboard) error {
	text := strings.TrimSpace(c.Transcript())
	if text == "" {
		return domain.ErrEmptyTranscript
	}
	if err := clipboard.SetText(ctx, text); err != nil {
		c.log.Warn().Err(err).Msg("clipboard write failed")
		c.events.DictationError(domain.ErrorCodeClipboard, err.Error())
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	c.log.Info().Int("chars", len(text)).Msg("transcript copied")
	return nil
}

// Status returns the current controller status.
func (c *DictationController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:     c.state,
		Listening: c.state == domain.DictationStateListening,
		Available: c.available,
	}
}

func (c *DictationController) start(ctx context.Context) error {
	c.mu.Lock()
	if !c.available {
		c.mu.Unlock()
		return domain.ErrCapabilityUnavailable
	}
	if c.state == domain.DictationStateListening {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	session, err := c.recognizer.Start(ctx, c.cfg.Recognition)
	if err != nil {
		c.log.Warn().Err(err).Msg("recognition failed to start")
		c.events.DictationError(domain.ErrorCodeStart, err.Error())
		c.events.DictationStateChanged(domain.DictationStateIdle, domain.DictationReasonStartFailed)
		return err
	}

	active := newActiveSession(session, c.log)

	c.mu.Lock()
	c.current = active
	c.state = domain.DictationStateListening
	c.transcript.dropInterim()
	c.mic.SetListening(true)
	c.events.DictationStateChanged(domain.DictationStateListening, domain.DictationReasonListeningStarted)
	c.mu.Unlock()

	active.log.Info().Msg("listening")
	go c.consume(active)
	return nil
}

func (c *DictationController) stop() error {
	c.mu.Lock()
	if !c.available {
		c.mu.Unlock()
		return domain.ErrCapabilityUnavailable
	}
	if c.state != domain.DictationStateListening {
		c.mu.Unlock()
		return nil
	}
	active := c.current
	c.state = domain.DictationStateIdle
	c.mic.SetListening(false)
	c.events.DictationStateChanged(domain.DictationStateIdle, domain.DictationReasonListeningStopped)
	c.mu.Unlock()

	if err := active.session.Stop(); err != nil {
		active.log.Warn().Err(err).Msg("recognition did not stop cleanly")
	}
	<-active.done
	active.log.Info().Msg("stopped")
	return nil
}

func (c *DictationController) consume(active *activeSession) {
	defer close(active.done)

	for event := range active.session.Events() {
		c.handle(active, event)
	}
}

func (c *DictationController) handle(active *activeSession, event domain.RecognitionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != active {
		return
	}

	switch event.Kind {
	case domain.RecognitionEventStart:
		if c.state == domain.DictationStateListening {
			c.mic.SetListening(true)
		}
	case domain.RecognitionEventResult:
		c.applyResult(active, event)
	case domain.RecognitionEventError:
		detail := "recognition failed"
		if event.Err != nil {
			detail = event.Err.Error()
		}
		active.log.Warn().Str("detail", detail).Msg("recognition error")
		c.events.DictationError(domain.ErrorCodeRecognition, detail)
		c.finish(domain.DictationReasonRecognitionFailed)
		// Later results from a failed session must not reach the field.
		// Abort runs outside mu; consume still drains the stream and closes done.
		c.current = nil
		go c.abort(active)
	case domain.RecognitionEventEnd:
		c.finish(domain.DictationReasonPlatformEnded)
	}
}

func (c *DictationController) applyResult(active *activeSession, event domain.RecognitionEvent) {
	finals := make([]string, 0, len(event.Finals))
	for _, segment := range event.Finals {
		finals = append(finals, c.rewrite(active, segment))
	}
	c.field.SetText(c.transcript.apply(finals, event.Interim))
}

// rewrite runs substitution rules over a confirmed segment, keeping the raw
// segment when the rules fail.
func (c *DictationController) rewrite(active *activeSession, segment string) string {
	if c.rules == nil {
		return segment
	}
	out, err := c.rules.Apply(segment)
	if err != nil {
		active.log.Warn().Err(err).Msg("substitution rules failed")
		c.events.DictationError(domain.ErrorCodeRules, err.Error())
		return segment
	}
	return out
}

func (c *DictationController) abort(active *activeSession) {
	if err := active.session.Abort(); err != nil {
		active.log.Warn().Err(err).Msg("recognition did not abort cleanly")
	}
}

// finish returns to idle after the platform ended the session. Caller holds mu.
func (c *DictationController) finish(reason domain.DictationStateReason) {
	c.transcript.dropInterim()
	if c.state != domain.DictationStateListening {
		return
	}
	c.state = domain.DictationStateIdle
	c.mic.SetListening(false)
	c.events.DictationStateChanged(domain.DictationStateIdle, reason)
}
