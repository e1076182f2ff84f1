package capture_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/ledger"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lunchReply = `{"type":"expense","amount":45.5,"category":"Food","description":"Lunch","confidence":0.95}`

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type harness struct {
	session    *capture.Session
	classifier *testutil.FakeClassifier
	store      *testutil.MemoryStore
	mic        *testutil.FakeMicrophone
	recorder   *media.AudioRecorder
	observer   *countingObserver
}

type countingObserver struct {
	captures  []error
	finalized []string
}

func (o *countingObserver) CaptureFinished(_ model.InputMode, err error) {
	o.captures = append(o.captures, err)
}

func (o *countingObserver) Finalized(source string, _ error) {
	o.finalized = append(o.finalized, source)
}

func newHarness(t *testing.T, replies ...testutil.ClassifierReply) *harness {
	t.Helper()

	h := &harness{
		classifier: testutil.NewFakeClassifier(replies...),
		store:      &testutil.MemoryStore{},
		mic:        &testutil.FakeMicrophone{Chunks: [][]byte{[]byte("opus-frame-1"), []byte("opus-frame-2")}},
		observer:   &countingObserver{},
	}
	h.recorder = media.NewAudioRecorder(h.mic)
	fixed := time.Date(2024, 5, 17, 15, 4, 0, 0, time.UTC)
	h.session = capture.New(capture.Deps{
		Classifier: h.classifier,
		Recorder:   h.recorder,
		Finalizer:  ledger.NewFinalizer(h.store, "user-1", ledger.WithClock(func() time.Time { return fixed })),
		Observer:   h.observer,
	})
	t.Cleanup(func() {
		_ = h.session.Close()
	})
	return h
}

func TestSession_TextCaptureConfirmed(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeText))
	require.NoError(t, h.session.SubmitText(ctx, "paid 45.50 for lunch"))

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateReviewing, snap.State)
	require.NotNil(t, snap.Analysis)
	assert.Equal(t, "Food", snap.Analysis.Category)
	assert.True(t, snap.CanConfirm())

	stored, err := h.session.Confirm(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, model.TypeExpense, stored.Type)
	assert.True(t, decimal.RequireFromString("45.5").Equal(stored.Amount))
	assert.Equal(t, "Food", stored.Category)
	assert.Equal(t, "Lunch", stored.Description)
	assert.Equal(t, model.ModeText, stored.InputMethod)
	assert.Equal(t, "user-1", stored.OwnerID)
	assert.Equal(t, "2024-05-17", stored.Date())
	require.NotNil(t, stored.SourceAnalysis)
	assert.InDelta(t, 0.95, stored.SourceAnalysis.Confidence, 1e-9)

	assert.Equal(t, 1, h.store.Creates())
	snap = h.session.Snapshot()
	assert.Equal(t, capture.StateIdle, snap.State)
	assert.Empty(t, snap.Mode)
	assert.Nil(t, snap.Analysis)
	assert.Equal(t, []string{"analysis"}, h.observer.finalized)
}

func TestSession_AudioCaptureConfirmed(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: `{"type":"income","amount":"1200","category":"Salary","description":"Paycheck","confidence":0.8}`})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeAudio))
	require.NoError(t, h.session.StartRecording(ctx))
	assert.True(t, h.session.Snapshot().Recording)
	assert.True(t, h.recorder.Busy())

	require.NoError(t, h.session.StopRecording(ctx))
	assert.False(t, h.recorder.Busy())

	require.Len(t, h.classifier.Payloads, 1)
	audio, ok := h.classifier.Payloads[0].(model.AudioPayload)
	require.True(t, ok)
	assert.Equal(t, "opus-frame-1opus-frame-2", string(audio.Data))
	assert.Equal(t, "audio/webm", audio.MIMEType)

	stored, err := h.session.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TypeIncome, stored.Type)
	assert.Equal(t, model.ModeAudio, stored.InputMethod)
}

func TestSession_PhotoFailureFallsBackToManual(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Err: common.ErrServiceUnavailable})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModePhoto))
	err := h.session.SelectImage(ctx, media.BytesPicker{Name: "receipt.png", Data: pngImage})
	require.ErrorIs(t, err, common.ErrServiceUnavailable)

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateReviewing, snap.State)
	assert.Nil(t, snap.Analysis)
	assert.True(t, snap.Retryable())
	assert.NotEmpty(t, snap.ErrorMessage())
	assert.False(t, snap.CanConfirm())

	require.NoError(t, h.session.SetManualType(model.TypeExpense))
	require.NoError(t, h.session.SetManualAmount("12,30"))
	require.NoError(t, h.session.SetManualCategory(" Transport "))
	require.NoError(t, h.session.SetManualDescription("Taxi"))
	assert.True(t, h.session.Snapshot().CanConfirm())

	stored, err := h.session.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.30").Equal(stored.Amount))
	assert.Equal(t, "Transport", stored.Category)
	assert.Equal(t, model.ModePhoto, stored.InputMethod)
	assert.Nil(t, stored.SourceAnalysis)
	assert.Equal(t, []string{"manual"}, h.observer.finalized)
	require.Len(t, h.observer.captures, 1)
	assert.ErrorIs(t, h.observer.captures[0], common.ErrServiceUnavailable)
}

type recordingArchiver struct {
	names []string
}

func (a *recordingArchiver) Archive(_ context.Context, name, _ string, _ []byte) (string, error) {
	a.names = append(a.names, name)
	return "file:///archive/" + name, nil
}

func TestSession_FailedRecaptureDropsEarlierPhoto(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply})
	archiver := &recordingArchiver{}
	h.session = capture.New(capture.Deps{
		Classifier: h.classifier,
		Recorder:   h.recorder,
		Finalizer:  ledger.NewFinalizer(h.store, "user-1", ledger.WithArchiver(archiver)),
		Observer:   h.observer,
	})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModePhoto))
	require.NoError(t, h.session.SelectImage(ctx, media.BytesPicker{Name: "receipt-a.png", Data: pngImage}))
	assert.True(t, h.session.Snapshot().HasPayload)

	err := h.session.SelectImage(ctx, media.BytesPicker{Name: "receipt-b.png", Data: []byte("not an image")})
	require.ErrorIs(t, err, common.ErrInvalidFileType)

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateReviewing, snap.State)
	assert.Nil(t, snap.Analysis)
	assert.False(t, snap.HasPayload)

	require.NoError(t, h.session.SetManualType(model.TypeExpense))
	require.NoError(t, h.session.SetManualAmount("9.90"))
	require.NoError(t, h.session.SetManualCategory("Food"))
	require.NoError(t, h.session.SetManualDescription("Coffee"))

	stored, err := h.session.Confirm(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored.AttachmentURI)
	assert.Empty(t, archiver.names)
	assert.Equal(t, 1, h.store.Creates())
}

func TestSession_InvalidContractFallsBack(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: `{"type":"transfer","amount":10,"category":"Food","description":"x"}`})

	require.NoError(t, h.session.SelectMode(model.ModeText))
	err := h.session.SubmitText(context.Background(), "moved money")
	require.ErrorIs(t, err, common.ErrInvalidContract)

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateReviewing, snap.State)
	assert.Nil(t, snap.Analysis)
	assert.False(t, snap.Retryable())
}

func TestSession_AnalysisWinsOverManualFields(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeText))
	require.NoError(t, h.session.SubmitText(ctx, "lunch"))
	require.NoError(t, h.session.SetManualType(model.TypeIncome))
	require.NoError(t, h.session.SetManualAmount("999"))
	require.NoError(t, h.session.SetManualCategory("Salary"))

	stored, err := h.session.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TypeExpense, stored.Type)
	assert.Equal(t, "Food", stored.Category)
	assert.True(t, decimal.RequireFromString("45.5").Equal(stored.Amount))
}

func TestSession_MissingFieldNeverReachesStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeText))
	require.NoError(t, h.session.SetManualAmount("10"))
	require.NoError(t, h.session.SetManualCategory("Food"))

	_, err := h.session.Confirm(ctx)
	require.ErrorIs(t, err, common.ErrMissingRequiredField)
	assert.Contains(t, err.Error(), "type")
	assert.Equal(t, 0, h.store.Creates())

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateReviewing, snap.State)
	assert.Equal(t, "10", snap.Manual.Amount)
}

func TestSession_EmptyTextFallsBack(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.SelectMode(model.ModeText))
	err := h.session.SubmitText(context.Background(), "   ")
	require.ErrorIs(t, err, common.ErrEmptyText)
	assert.Equal(t, 0, h.classifier.Calls())
	assert.Equal(t, capture.StateReviewing, h.session.Snapshot().State)
}

func TestSession_PickerCancelledKeepsState(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.SelectMode(model.ModePhoto))
	err := h.session.SelectImage(context.Background(), media.BytesPicker{})
	require.ErrorIs(t, err, common.ErrNoFileChosen)

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateModeSelected, snap.State)
	assert.NoError(t, snap.LastError)
	assert.Empty(t, h.observer.captures)
}

func TestSession_StopRecordingTwice(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeAudio))
	require.NoError(t, h.session.StartRecording(ctx))
	require.NoError(t, h.session.StopRecording(ctx))
	require.NoError(t, h.session.StopRecording(ctx))

	assert.Equal(t, 1, h.classifier.Calls())
	assert.Equal(t, capture.StateReviewing, h.session.Snapshot().State)
}

func TestSession_ModeSwitchReleasesMicrophone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeAudio))
	require.NoError(t, h.session.StartRecording(ctx))
	require.Len(t, h.mic.Streams(), 1)

	require.NoError(t, h.session.SelectMode(model.ModeText))
	assert.True(t, h.mic.Streams()[0].Closed())
	assert.False(t, h.recorder.Busy())
	assert.Equal(t, 0, h.classifier.Calls())

	snap := h.session.Snapshot()
	assert.Equal(t, model.ModeText, snap.Mode)
	assert.False(t, snap.Recording)

	// The device can be acquired again.
	require.NoError(t, h.session.SelectMode(model.ModeAudio))
	require.NoError(t, h.session.StartRecording(ctx))
	assert.Len(t, h.mic.Streams(), 2)
}

func TestSession_LateResultDropped(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply, Gate: gate})

	require.NoError(t, h.session.SelectMode(model.ModeText))

	done := make(chan error, 1)
	go func() {
		done <- h.session.SubmitText(context.Background(), "lunch")
	}()
	<-h.classifier.Started

	assert.Equal(t, capture.StateAnalyzing, h.session.Snapshot().State)
	require.NoError(t, h.session.SelectMode(model.ModePhoto))
	close(gate)

	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateModeSelected, snap.State)
	assert.Equal(t, model.ModePhoto, snap.Mode)
	assert.Nil(t, snap.Analysis)
	assert.Empty(t, h.observer.captures)
}

func TestSession_CaptureRejectedWhileAnalyzing(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply, Gate: gate})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeText))
	done := make(chan error, 1)
	go func() {
		done <- h.session.SubmitText(ctx, "lunch")
	}()
	<-h.classifier.Started

	assert.ErrorIs(t, h.session.SubmitText(ctx, "again"), common.ErrAnalysisInFlight)
	_, err := h.session.Confirm(ctx)
	assert.ErrorIs(t, err, common.ErrAnalysisInFlight)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.classifier.Calls())
}

func TestSession_ConfirmWhileSubmitting(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply})
	ctx := context.Background()
	h.store.Gate = make(chan struct{})

	require.NoError(t, h.session.SelectMode(model.ModeText))
	require.NoError(t, h.session.SubmitText(ctx, "lunch"))

	done := make(chan error, 1)
	go func() {
		_, err := h.session.Confirm(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return h.store.Creates() == 1 }, time.Second, time.Millisecond)

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateFinalizing, snap.State)
	assert.True(t, snap.Submitting)

	_, err := h.session.Confirm(ctx)
	assert.ErrorIs(t, err, common.ErrSubmissionInFlight)
	assert.ErrorIs(t, h.session.SelectMode(model.ModeAudio), common.ErrSubmissionInFlight)
	assert.ErrorIs(t, h.session.SetManualAmount("1"), common.ErrSubmissionInFlight)
	assert.ErrorIs(t, h.session.Reset(), common.ErrSubmissionInFlight)

	close(h.store.Gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.store.Creates())
}

func TestSession_SubmissionFailureRetry(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply})
	ctx := context.Background()
	h.store.SetErr(errors.New("disk full"))

	require.NoError(t, h.session.SelectMode(model.ModeText))
	require.NoError(t, h.session.SubmitText(ctx, "lunch"))

	_, err := h.session.Confirm(ctx)
	require.ErrorIs(t, err, common.ErrSubmissionFailed)

	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateError, snap.State)
	require.NotNil(t, snap.Analysis)
	assert.True(t, snap.CanConfirm())

	h.store.SetErr(nil)
	stored, err := h.session.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Food", stored.Category)
	assert.Equal(t, 2, h.store.Creates())
	assert.Len(t, h.store.Stored(), 1)
}

func TestSession_WrongModeAndTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.session.SubmitText(ctx, "lunch"), common.ErrInvalidTransition)
	assert.ErrorIs(t, h.session.SetManualAmount("1"), common.ErrInvalidTransition)
	assert.ErrorIs(t, h.session.Reset(), common.ErrInvalidTransition)
	assert.ErrorIs(t, h.session.SelectMode("video"), common.ErrInvalidTransition)

	require.NoError(t, h.session.SelectMode(model.ModeText))
	assert.ErrorIs(t, h.session.StartRecording(ctx), common.ErrWrongMode)
	assert.ErrorIs(t, h.session.SelectImage(ctx, media.BytesPicker{Name: "a.png", Data: pngImage}), common.ErrWrongMode)
	assert.NoError(t, h.session.StopRecording(ctx))
}

func TestSession_DeviceBusyFallsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	held, err := h.recorder.Begin(ctx)
	require.NoError(t, err)
	defer held.Release()

	require.NoError(t, h.session.SelectMode(model.ModeAudio))
	err = h.session.StartRecording(ctx)
	require.ErrorIs(t, err, common.ErrDeviceBusy)
	assert.Equal(t, capture.StateReviewing, h.session.Snapshot().State)
}

func TestSession_ResetKeepsMode(t *testing.T) {
	h := newHarness(t, testutil.ClassifierReply{Raw: lunchReply})
	ctx := context.Background()

	require.NoError(t, h.session.SelectMode(model.ModeText))
	require.NoError(t, h.session.SubmitText(ctx, "lunch"))
	require.NoError(t, h.session.SetManualDescription("note"))

	require.NoError(t, h.session.Reset())
	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateModeSelected, snap.State)
	assert.Equal(t, model.ModeText, snap.Mode)
	assert.Nil(t, snap.Analysis)
	assert.True(t, snap.Manual.IsZero())
	assert.False(t, snap.HasPayload)
}

func TestSession_CloseWhileRecording(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.SelectMode(model.ModeAudio))
	require.NoError(t, h.session.StartRecording(context.Background()))

	require.NoError(t, h.session.Close())
	require.NoError(t, h.session.Close())

	assert.True(t, h.mic.Streams()[0].Closed())
	assert.False(t, h.recorder.Busy())
	snap := h.session.Snapshot()
	assert.Equal(t, capture.StateIdle, snap.State)
	assert.Empty(t, snap.Mode)
	assert.Equal(t, 0, h.classifier.Calls())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		want  string
		state capture.State
		busy  bool
	}{
		{"idle", capture.StateIdle, false},
		{"capturing", capture.StateCapturing, true},
		{"analyzing", capture.StateAnalyzing, true},
		{"finalizing", capture.StateFinalizing, true},
		{"reviewing", capture.StateReviewing, false},
		{"unknown", capture.State(42), false},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
			assert.Equal(t, tt.busy, tt.state.Busy())
		})
	}
}
