package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/spice-capture/internal/analysis"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/ledger"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/google/uuid"
)

// errAbandoned is returned to a caller whose capture was superseded by a
// mode change, reset or close while it was blocked.
var errAbandoned = fmt.Errorf("capture abandoned: %w", context.Canceled)

// Classifier sends a payload to the classification service.
type Classifier interface {
	Classify(ctx context.Context, payload model.Payload) ([]byte, error)
}

// Recorder acquires the microphone.
type Recorder interface {
	Begin(ctx context.Context) (*media.AudioHandle, error)
}

// Finalizer submits a confirmed draft.
type Finalizer interface {
	Finalize(ctx context.Context, d ledger.Draft) (model.StoredTransaction, error)
}

// Deps are the collaborators of a Session. Recorder may be nil when audio
// capture is not available.
type Deps struct {
	Classifier Classifier
	Recorder   Recorder
	Finalizer  Finalizer
	Observer   Observer
	Logger     *slog.Logger
}

// Session is one open capture dialog. All methods are safe for concurrent
// use; blocking work runs without holding the lock.
type Session struct {
	deps Deps

	lastErr   error
	payload   model.Payload
	recording *media.AudioHandle
	cancel    context.CancelFunc
	logger    *slog.Logger
	analysis  analysis.Result
	id        string
	mode      model.InputMode
	manual    model.ManualFields

	mu         sync.Mutex
	generation uint64
	state      State
	submitting bool
}

// New opens a session in the Idle state.
func New(deps Deps) *Session {
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		deps:   deps,
		id:     id,
		state:  StateIdle,
		logger: deps.Logger.With("session_id", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		Mode:       s.mode,
		Manual:     s.manual,
		LastError:  s.lastErr,
		HasPayload: s.payload != nil,
		Recording:  s.recording != nil,
		Analyzing:  s.state == StateAnalyzing,
		Submitting: s.submitting,
	}
	if !s.analysis.IsZero() {
		a := s.analysis.Snapshot()
		snap.Analysis = &a
	}
	return snap
}

// SelectMode switches the input mode from any state except while a
// submission is outstanding. Everything captured so far is discarded.
func (s *Session) SelectMode(mode model.InputMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", common.ErrInvalidTransition, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFinalizing {
		return common.ErrSubmissionInFlight
	}

	s.abandonLocked()
	s.clearLocked()
	s.mode = mode
	s.setStateLocked(StateModeSelected)
	return nil
}

// SubmitText classifies typed text.
func (s *Session) SubmitText(ctx context.Context, text string) error {
	return s.capture(ctx, model.ModeText, func(context.Context) (model.Payload, error) {
		if strings.TrimSpace(text) == "" {
			return nil, common.ErrEmptyText
		}
		return model.TextPayload{Content: text}, nil
	})
}

// SelectImage reads an image from picker and classifies it. A cancelled
// picker (common.ErrNoFileChosen) leaves the session as it was.
func (s *Session) SelectImage(ctx context.Context, picker media.ImagePicker) error {
	return s.capture(ctx, model.ModePhoto, func(ctx context.Context) (model.Payload, error) {
		photo, err := picker.Select(ctx)
		if err != nil {
			return nil, err
		}
		return photo, nil
	})
}

// StartRecording acquires the microphone. The recording runs until
// StopRecording, a mode change, Reset or Close.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkCaptureLocked(model.ModeAudio); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.deps.Recorder == nil {
		s.mu.Unlock()
		return common.ErrDeviceUnavailable
	}
	gen, captureCtx := s.beginLocked(context.WithoutCancel(ctx))
	s.mu.Unlock()

	handle, err := s.deps.Recorder.Begin(captureCtx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		if handle != nil {
			handle.Release()
		}
		return errAbandoned
	}
	if err != nil {
		s.failLocked(model.ModeAudio, err)
		return err
	}

	s.recording = handle
	s.logger.Debug("recording started")
	return nil
}

// StopRecording ends the recording and classifies it. Calling it when no
// recording is active is a no-op.
func (s *Session) StopRecording(ctx context.Context) error {
	s.mu.Lock()
	handle := s.recording
	if handle == nil {
		s.mu.Unlock()
		s.logger.Debug("stop requested without an active recording")
		return nil
	}
	s.recording = nil
	gen := s.generation
	captureCtx := s.captureCtxLocked(ctx)
	s.mu.Unlock()

	payload, err := handle.End(captureCtx)
	return s.analyze(captureCtx, gen, model.ModeAudio, payload, err)
}

// capture runs the synchronous capture paths (text and photo).
func (s *Session) capture(ctx context.Context, mode model.InputMode, produce func(context.Context) (model.Payload, error)) error {
	s.mu.Lock()
	if err := s.checkCaptureLocked(mode); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.state
	gen, captureCtx := s.beginLocked(ctx)
	s.mu.Unlock()

	payload, err := produce(captureCtx)

	if errors.Is(err, common.ErrNoFileChosen) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen == s.generation {
			s.endCaptureLocked()
			s.setStateLocked(prev)
		}
		return err
	}

	return s.analyze(captureCtx, gen, mode, payload, err)
}

// analyze classifies and validates a captured payload. captureErr is the
// error from producing the payload, if any.
func (s *Session) analyze(ctx context.Context, gen uint64, mode model.InputMode, payload model.Payload, captureErr error) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return errAbandoned
	}
	if captureErr != nil {
		// The failed capture replaces any earlier attachment.
		s.payload = nil
		s.failLocked(mode, captureErr)
		s.mu.Unlock()
		return captureErr
	}
	s.payload = payload
	s.setStateLocked(StateAnalyzing)
	s.mu.Unlock()

	raw, err := s.deps.Classifier.Classify(ctx, payload)

	var result analysis.Result
	if err == nil {
		result, err = analysis.Validate(raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("dropping late classification result", "mode", mode)
		return errAbandoned
	}
	if err != nil {
		s.failLocked(mode, err)
		return err
	}

	s.analysis = result
	s.lastErr = nil
	s.endCaptureLocked()
	s.setStateLocked(StateReviewing)
	s.deps.Observer.CaptureFinished(mode, nil)
	s.logger.Info("analysis accepted",
		"mode", mode,
		"type", result.Type(),
		"category", result.Category(),
		"confidence", result.Confidence())
	return nil
}

// SetManualType sets the manual transaction type. TypeUnset clears it.
func (s *Session) SetManualType(t model.TransactionType) error {
	if t != model.TypeUnset && !t.Valid() {
		return fmt.Errorf("%w: invalid transaction type %q", common.ErrInvalidTransition, t)
	}
	return s.editManual(func(m *model.ManualFields) { m.Type = t })
}

// SetManualAmount stores the raw amount text; it is parsed at confirmation.
func (s *Session) SetManualAmount(amount string) error {
	return s.editManual(func(m *model.ManualFields) { m.Amount = amount })
}

// SetManualCategory sets the manual category.
func (s *Session) SetManualCategory(category string) error {
	return s.editManual(func(m *model.ManualFields) { m.Category = category })
}

// SetManualDescription sets the manual description.
func (s *Session) SetManualDescription(description string) error {
	return s.editManual(func(m *model.ManualFields) { m.Description = description })
}

func (s *Session) editManual(edit func(*model.ManualFields)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateClosed:
		return common.ErrInvalidTransition
	case StateFinalizing:
		return common.ErrSubmissionInFlight
	}
	edit(&s.manual)
	return nil
}

// Confirm submits the reviewed transaction. On success the session returns
// to Idle. A missing field keeps it in review; a failed submission moves it
// to Error with all data kept so the user can confirm again.
func (s *Session) Confirm(ctx context.Context) (model.StoredTransaction, error) {
	s.mu.Lock()
	switch {
	case s.submitting || s.state == StateFinalizing:
		s.mu.Unlock()
		return model.StoredTransaction{}, common.ErrSubmissionInFlight
	case s.state == StateCapturing || s.state == StateAnalyzing:
		s.mu.Unlock()
		return model.StoredTransaction{}, common.ErrAnalysisInFlight
	case s.state == StateIdle || s.state == StateClosed:
		s.mu.Unlock()
		return model.StoredTransaction{}, common.ErrInvalidTransition
	}

	draft := ledger.Draft{
		Mode:     s.mode,
		Analysis: s.analysis,
		Manual:   s.manual,
		Payload:  s.payload,
	}
	gen := s.generation
	s.submitting = true
	s.setStateLocked(StateFinalizing)
	s.mu.Unlock()

	stored, err := s.deps.Finalizer.Finalize(ctx, draft)
	s.deps.Observer.Finalized(draft.Source(), err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		// Closed while submitting; the store already owns the outcome.
		return stored, err
	}
	s.submitting = false

	switch {
	case err == nil:
		s.setStateLocked(StateClosed)
		s.abandonLocked()
		s.clearLocked()
		s.mode = ""
		s.setStateLocked(StateIdle)
		return stored, nil
	case errors.Is(err, common.ErrMissingRequiredField):
		s.lastErr = err
		s.setStateLocked(StateReviewing)
	default:
		s.lastErr = err
		s.setStateLocked(StateError)
		s.logger.Error("submission failed", "error", err)
	}
	return model.StoredTransaction{}, err
}

// Reset clears the capture and returns to ModeSelected in the same mode.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReviewing, StateError, StateModeSelected:
	case StateFinalizing:
		return common.ErrSubmissionInFlight
	default:
		return fmt.Errorf("%w: reset from %s", common.ErrInvalidTransition, s.state)
	}

	s.abandonLocked()
	s.clearLocked()
	s.setStateLocked(StateModeSelected)
	return nil
}

// Close discards everything, releases any held device and returns to Idle.
// It never fails and may be called repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandonLocked()
	s.clearLocked()
	s.mode = ""
	s.submitting = false
	s.setStateLocked(StateIdle)
	return nil
}

func (s *Session) checkCaptureLocked(mode model.InputMode) error {
	switch s.state {
	case StateModeSelected, StateReviewing:
	case StateCapturing, StateAnalyzing:
		return common.ErrAnalysisInFlight
	case StateFinalizing:
		return common.ErrSubmissionInFlight
	default:
		return fmt.Errorf("%w: capture from %s", common.ErrInvalidTransition, s.state)
	}
	if s.mode != mode {
		return fmt.Errorf("%w: %s capture in %s mode", common.ErrWrongMode, mode, s.mode)
	}
	return nil
}

// beginLocked starts a new capture generation and enters Capturing.
func (s *Session) beginLocked(parent context.Context) (uint64, context.Context) {
	s.abandonLocked()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.setStateLocked(StateCapturing)
	return s.generation, ctx
}

// captureCtxLocked returns a context cancelled when the current capture is
// abandoned, bounded by ctx.
func (s *Session) captureCtxLocked(ctx context.Context) context.Context {
	captureCtx, cancel := context.WithCancel(ctx)
	prev := s.cancel
	s.cancel = func() {
		cancel()
		if prev != nil {
			prev()
		}
	}
	return captureCtx
}

// abandonLocked drops whatever is in flight: a held microphone is released,
// a pending classification is cancelled and its late result will be ignored.
func (s *Session) abandonLocked() {
	s.generation++
	if s.recording != nil {
		s.recording.Release()
		s.recording = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) endCaptureLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) clearLocked() {
	s.payload = nil
	s.analysis = analysis.Result{}
	s.manual = model.ManualFields{}
	s.lastErr = nil
}

// failLocked records a capture, classification or validation failure and
// falls back to manual entry.
func (s *Session) failLocked(mode model.InputMode, err error) {
	s.lastErr = err
	s.analysis = analysis.Result{}
	s.endCaptureLocked()
	s.setStateLocked(StateError)
	s.logger.Warn("capture failed, falling back to manual entry",
		"mode", mode,
		"layer", common.Layer(err),
		"transient", common.IsTransient(err),
		"error", err)
	s.deps.Observer.CaptureFinished(mode, err)
	s.setStateLocked(StateReviewing)
}

func (s *Session) setStateLocked(next State) {
	if s.state != next {
		s.logger.Debug("state transition", "from", s.state.String(), "to", next.String())
	}
	s.state = next
}
