package tui

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
	"github.com/Veraticus/spice-capture/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lunchReply = `{"type":"expense","amount":45.5,"category":"Food","description":"Lunch","confidence":0.95}`

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type dialog struct {
	t          *testing.T
	m          Model
	classifier *testutil.FakeClassifier
	store      *testutil.MemoryStore
	fs         afero.Fs
}

func newDialog(t *testing.T, mode model.InputMode, replies ...testutil.ClassifierReply) *dialog {
	t.Helper()

	d := &dialog{
		t:          t,
		classifier: testutil.NewFakeClassifier(replies...),
		store:      &testutil.MemoryStore{},
		fs:         afero.NewMemMapFs(),
	}
	mic := &testutil.FakeMicrophone{Chunks: [][]byte{[]byte("opus-frame")}}
	fixed := time.Date(2024, 5, 17, 15, 4, 0, 0, time.UTC)
	session := capture.New(capture.Deps{
		Classifier: d.classifier,
		Recorder:   media.NewAudioRecorder(mic),
		Finalizer:  ledger.NewFinalizer(d.store, "user-1", ledger.WithClock(func() time.Time { return fixed })),
	})
	t.Cleanup(func() {
		_ = session.Close()
	})

	d.m = newModel(context.Background(), Config{
		Session:     session,
		Fs:          d.fs,
		Theme:       themes.Default,
		InitialMode: mode,
		Width:       80,
		Height:      40,
	})
	return d
}

// press sends a key and runs the resulting command to completion, feeding
// its message back into the model.
func (d *dialog) press(k tea.KeyMsg) tea.Msg {
	d.t.Helper()

	next, cmd := d.m.Update(k)
	d.m = next.(Model)
	return d.run(cmd)
}

func (d *dialog) typeText(s string) {
	d.t.Helper()
	d.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (d *dialog) run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg.(type) {
	case captureDoneMsg, recordingStartedMsg, confirmDoneMsg:
		next, follow := d.m.Update(msg)
		d.m = next.(Model)
		if follow != nil {
			return follow()
		}
		return nil
	}
	return msg
}

func keyOf(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func TestModel_TextCaptureAndSave(t *testing.T) {
	d := newDialog(t, model.ModeText, testutil.ClassifierReply{Raw: lunchReply})

	d.typeText("paid 45.50 for lunch")
	d.press(keyOf(tea.KeyCtrlE))

	require.NotNil(t, d.m.snap.Analysis)
	assert.Equal(t, capture.StateReviewing, d.m.snap.State)
	assert.Equal(t, model.TextPayload{Content: "paid 45.50 for lunch"}, d.classifier.Payloads[0])

	view := d.m.View()
	assert.Contains(t, view, "Detected")
	assert.Contains(t, view, "-45.50 USD")
	assert.Contains(t, view, "95%")

	msg := d.press(keyOf(tea.KeyCtrlS))
	assert.IsType(t, tea.QuitMsg{}, msg)

	stored, ok := d.m.Saved()
	require.True(t, ok)
	assert.Equal(t, "Food", stored.Category)
	assert.Equal(t, 1, d.store.Creates())
	assert.Empty(t, d.m.View())
}

func TestModel_ClassificationFailureFallsBackToManual(t *testing.T) {
	d := newDialog(t, model.ModeText, testutil.ClassifierReply{Err: common.ErrServiceUnavailable})

	d.typeText("something")
	d.press(keyOf(tea.KeyCtrlE))

	assert.Nil(t, d.m.snap.Analysis)
	assert.True(t, d.m.showManual())
	assert.Equal(t, focusType, d.m.focus)

	view := d.m.View()
	assert.Contains(t, view, "Enter manually")
	assert.Contains(t, view, "Could not analyze the input")
	assert.True(t, d.m.snap.Retryable())

	d.press(keyOf(tea.KeyRight))
	assert.Equal(t, model.TypeExpense, d.m.snap.Manual.Type)
	d.press(keyOf(tea.KeyRight))
	assert.Equal(t, model.TypeIncome, d.m.snap.Manual.Type)
	d.press(keyOf(tea.KeyLeft))
	assert.Equal(t, model.TypeExpense, d.m.snap.Manual.Type)

	d.press(keyOf(tea.KeyDown))
	d.typeText("12,30")
	d.press(keyOf(tea.KeyDown))
	d.typeText("Food")
	d.press(keyOf(tea.KeyDown))
	d.typeText("Bakery")

	assert.Equal(t, "12,30", d.m.snap.Manual.Amount)
	assert.Equal(t, "Food", d.m.snap.Manual.Category)
	assert.Equal(t, "Bakery", d.m.snap.Manual.Description)
	assert.True(t, d.m.snap.CanConfirm())

	msg := d.press(keyOf(tea.KeyCtrlS))
	assert.IsType(t, tea.QuitMsg{}, msg)

	stored, ok := d.m.Saved()
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("12.30").Equal(stored.Amount))
	assert.Nil(t, stored.SourceAnalysis)
}

func TestModel_SaveBlockedUntilComplete(t *testing.T) {
	tests := []struct {
		name   string
		mode   model.InputMode
		notice string
	}{
		{name: "no mode", mode: "", notice: "Choose a mode"},
		{name: "empty manual form", mode: model.ModeText, notice: "Fill in type, amount, category to save."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDialog(t, tt.mode)

			msg := d.press(keyOf(tea.KeyCtrlS))
			assert.Nil(t, msg)
			assert.Contains(t, d.m.notice, tt.notice)
			assert.Zero(t, d.store.Creates())
			assert.Contains(t, d.m.View(), "Save")
		})
	}
}

func TestModel_ModeCycling(t *testing.T) {
	d := newDialog(t, "")

	steps := []struct {
		key  tea.KeyType
		want model.InputMode
	}{
		{tea.KeyTab, model.ModeText},
		{tea.KeyTab, model.ModeAudio},
		{tea.KeyTab, model.ModePhoto},
		{tea.KeyTab, model.ModeText},
		{tea.KeyShiftTab, model.ModePhoto},
		{tea.KeyShiftTab, model.ModeAudio},
	}
	for _, step := range steps {
		d.press(keyOf(step.key))
		assert.Equal(t, step.want, d.m.snap.Mode)
		assert.Equal(t, capture.StateModeSelected, d.m.snap.State)
	}

	t.Run("from no mode backwards", func(t *testing.T) {
		d := newDialog(t, "")
		d.press(keyOf(tea.KeyShiftTab))
		assert.Equal(t, model.ModePhoto, d.m.snap.Mode)
	})
}

func TestModel_ModeSwitchDiscardsAnalysis(t *testing.T) {
	d := newDialog(t, model.ModeText, testutil.ClassifierReply{Raw: lunchReply})
	d.typeText("lunch")
	d.press(keyOf(tea.KeyCtrlE))
	require.NotNil(t, d.m.snap.Analysis)

	d.press(keyOf(tea.KeyTab))

	assert.Nil(t, d.m.snap.Analysis)
	assert.Equal(t, model.ModeAudio, d.m.snap.Mode)
	assert.Empty(t, d.m.text.Value())
}

func TestModel_PhotoFromPath(t *testing.T) {
	d := newDialog(t, model.ModePhoto, testutil.ClassifierReply{Raw: lunchReply})
	require.NoError(t, afero.WriteFile(d.fs, "/receipts/lunch.png", pngImage, 0o600))

	d.typeText("/receipts/lunch.png")
	d.press(keyOf(tea.KeyCtrlE))

	require.NotNil(t, d.m.snap.Analysis)
	photo, ok := d.classifier.Payloads[0].(model.PhotoPayload)
	require.True(t, ok)
	assert.Equal(t, "lunch.png", photo.Name)
	assert.Equal(t, "image/png", photo.MIMEType)
}

func TestModel_PhotoWithoutFileKeepsState(t *testing.T) {
	d := newDialog(t, model.ModePhoto)

	d.press(keyOf(tea.KeyCtrlE))

	assert.Equal(t, capture.StateModeSelected, d.m.snap.State)
	assert.Equal(t, "No file chosen.", d.m.notice)
	assert.Zero(t, d.classifier.Calls())
}

func TestModel_AudioRecording(t *testing.T) {
	d := newDialog(t, model.ModeAudio, testutil.ClassifierReply{Raw: lunchReply})

	d.press(keyOf(tea.KeyCtrlR))
	assert.True(t, d.m.snap.Recording)
	assert.Contains(t, d.m.View(), "REC")

	d.press(keyOf(tea.KeyCtrlR))
	assert.False(t, d.m.snap.Recording)
	require.NotNil(t, d.m.snap.Analysis)

	audio, ok := d.classifier.Payloads[0].(model.AudioPayload)
	require.True(t, ok)
	assert.Equal(t, []byte("opus-frame"), audio.Data)
}

func TestModel_RecordOutsideAudioMode(t *testing.T) {
	d := newDialog(t, model.ModeText)

	msg := d.press(keyOf(tea.KeyCtrlR))

	assert.Nil(t, msg)
	assert.Equal(t, "Switch to audio mode to record.", d.m.notice)
}

func TestModel_SubmissionFailureCanBeRetried(t *testing.T) {
	d := newDialog(t, model.ModeText, testutil.ClassifierReply{Raw: lunchReply})
	d.typeText("lunch")
	d.press(keyOf(tea.KeyCtrlE))

	d.store.SetErr(errors.New("disk full"))
	msg := d.press(keyOf(tea.KeyCtrlS))

	assert.Nil(t, msg)
	assert.Equal(t, capture.StateError, d.m.snap.State)
	assert.Contains(t, d.m.View(), "Could not save the transaction")
	_, saved := d.m.Saved()
	assert.False(t, saved)

	d.store.SetErr(nil)
	msg = d.press(keyOf(tea.KeyCtrlS))

	assert.IsType(t, tea.QuitMsg{}, msg)
	assert.Len(t, d.store.Stored(), 1)
}

func TestModel_Reset(t *testing.T) {
	d := newDialog(t, model.ModeText, testutil.ClassifierReply{Raw: lunchReply})
	d.typeText("lunch")
	d.press(keyOf(tea.KeyCtrlE))
	require.NotNil(t, d.m.snap.Analysis)

	d.press(keyOf(tea.KeyCtrlN))

	assert.Equal(t, capture.StateModeSelected, d.m.snap.State)
	assert.Equal(t, model.ModeText, d.m.snap.Mode)
	assert.Nil(t, d.m.snap.Analysis)
	assert.Empty(t, d.m.text.Value())
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		d := newDialog(t, model.ModeText)

		msg := d.press(keyOf(k))

		assert.IsType(t, tea.QuitMsg{}, msg)
		assert.True(t, d.m.quitting)
		_, saved := d.m.Saved()
		assert.False(t, saved)
	}
}

func TestModel_WindowResize(t *testing.T) {
	d := newDialog(t, model.ModeText)

	next, _ := d.m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	m := next.(Model)

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 50, m.height)
	assert.Equal(t, 120, m.help.Width)
}

func TestRun_RequiresSession(t *testing.T) {
	_, err := Run(context.Background(), Config{})
	assert.Error(t, err)
}
