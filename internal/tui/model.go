package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// focus is the input receiving keystrokes.
type focus int

const (
	focusCapture focus = iota
	focusType
	focusAmount
	focusCategory
	focusDescription
)

var modeOrder = []model.InputMode{model.ModeText, model.ModeAudio, model.ModePhoto}

// Model is the capture dialog. It owns no capture state of its own: every
// render reads a fresh Snapshot from the session.
type Model struct {
	ctx         context.Context
	session     *capture.Session
	recorder    *Recorder
	saved       *model.StoredTransaction
	cfg         Config
	theme       themes.Theme
	keymap      KeyMap
	notice      string
	snap        capture.Snapshot
	help        help.Model
	spinner     spinner.Model
	text        textarea.Model
	path        textinput.Model
	amount      textinput.Model
	category    textinput.Model
	description textinput.Model
	focus       focus
	width       int
	height      int
	pending     bool
	saving      bool
	quitting    bool
}

func newModel(ctx context.Context, cfg Config) Model {
	text := textarea.New()
	text.Placeholder = "Paid 45.50 for lunch with the team"
	text.ShowLineNumbers = false
	text.SetHeight(3)

	path := textinput.New()
	path.Placeholder = "path/to/receipt.jpg"

	amount := textinput.New()
	amount.Placeholder = "0.00"
	amount.CharLimit = 20

	category := textinput.New()
	category.Placeholder = "Food"
	category.CharLimit = 40

	description := textinput.New()
	description.Placeholder = "optional"
	description.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		session:     cfg.Session,
		recorder:    NewRecorder(cfg.Fs, cfg.RecordDir),
		cfg:         cfg,
		theme:       cfg.Theme,
		keymap:      DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		text:        text,
		path:        path,
		amount:      amount,
		category:    category,
		description: description,
		width:       cfg.Width,
		height:      cfg.Height,
	}
	if cfg.InitialMode.Valid() {
		if err := m.session.SelectMode(cfg.InitialMode); err != nil {
			m.notice = common.UserMessage(err)
		}
	}
	m.refresh()
	m.focusInput(focusCapture)
	return m
}

// Init starts the cursor blink and the spinner that keeps the view fresh
// while work runs in the background.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.recorder.RecordState(next, msg)
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.text.SetWidth(max(20, msg.Width-12))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case captureDoneMsg:
		m.pending = false
		m.refresh()
		m.notice = ""
		if msg.err != nil && m.snap.LastError == nil && !errors.Is(msg.err, context.Canceled) {
			m.notice = common.UserMessage(msg.err)
		}
		m.syncManual()
		if m.showManual() {
			m.focusInput(focusType)
		}
		return m, nil

	case recordingStartedMsg:
		m.pending = false
		m.refresh()
		m.notice = ""
		if msg.err != nil && m.snap.LastError == nil && !errors.Is(msg.err, context.Canceled) {
			m.notice = common.UserMessage(msg.err)
		}
		m.syncManual()
		return m, nil

	case confirmDoneMsg:
		m.saving = false
		m.refresh()
		if msg.err == nil {
			stored := msg.stored
			m.saved = &stored
			m.quitting = true
			return m, tea.Quit
		}
		m.notice = ""
		if m.snap.LastError == nil {
			m.notice = common.UserMessage(msg.err)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.refresh()

	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.NextMode):
		return m.switchMode(1), nil

	case key.Matches(msg, m.keymap.PrevMode):
		return m.switchMode(-1), nil

	case key.Matches(msg, m.keymap.Analyze):
		return m.analyze()

	case key.Matches(msg, m.keymap.Record):
		return m.toggleRecording()

	case key.Matches(msg, m.keymap.Save):
		return m.save()

	case key.Matches(msg, m.keymap.Reset):
		if err := m.session.Reset(); err != nil {
			m.notice = common.UserMessage(err)
			return m, nil
		}
		m.clearInputs()
		m.refresh()
		m.focusInput(focusCapture)
		return m, nil
	}

	if m.showManual() {
		switch {
		case key.Matches(msg, m.keymap.Down) && m.canLeaveCapture():
			m.focusInput(min(m.focus+1, focusDescription))
			return m, nil
		case key.Matches(msg, m.keymap.Up) && m.focus != focusCapture:
			m.focusInput(m.focus - 1)
			return m, nil
		case m.focus == focusType && key.Matches(msg, m.keymap.Toggle):
			return m.toggleType(), nil
		}
	}

	return m.updateInput(msg)
}

func (m Model) switchMode(step int) Model {
	if m.saving {
		m.notice = common.UserMessage(common.ErrSubmissionInFlight)
		return m
	}
	idx := 0
	for i, mode := range modeOrder {
		if mode == m.snap.Mode {
			idx = i + step
			break
		}
	}
	if m.snap.Mode == "" && step < 0 {
		idx = len(modeOrder) - 1
	}
	idx = (idx%len(modeOrder) + len(modeOrder)) % len(modeOrder)

	if err := m.session.SelectMode(modeOrder[idx]); err != nil {
		m.notice = common.UserMessage(err)
		return m
	}
	m.pending = false
	m.notice = ""
	m.clearInputs()
	m.refresh()
	m.focusInput(focusCapture)
	return m
}

func (m Model) analyze() (Model, tea.Cmd) {
	if m.snap.Mode == model.ModeAudio {
		return m.toggleRecording()
	}
	if m.pending || m.snap.State.Busy() {
		m.notice = common.UserMessage(common.ErrAnalysisInFlight)
		return m, nil
	}

	switch m.snap.Mode {
	case model.ModeText:
		m.pending = true
		m.notice = ""
		return m, submitTextCmd(m.ctx, m.session, m.text.Value())
	case model.ModePhoto:
		picker := media.PathPicker{
			Fs:       m.cfg.Fs,
			Path:     strings.TrimSpace(m.path.Value()),
			MaxBytes: m.cfg.MaxImageBytes,
		}
		m.pending = true
		m.notice = ""
		return m, selectImageCmd(m.ctx, m.session, picker)
	default:
		m.notice = "Choose a mode with Tab first."
		return m, nil
	}
}

func (m Model) toggleRecording() (Model, tea.Cmd) {
	if m.snap.Mode != model.ModeAudio {
		m.notice = "Switch to audio mode to record."
		return m, nil
	}
	if m.pending {
		return m, nil
	}
	m.pending = true
	m.notice = ""
	if m.snap.Recording {
		return m, stopRecordingCmd(m.ctx, m.session)
	}
	return m, startRecordingCmd(m.ctx, m.session)
}

func (m Model) save() (Model, tea.Cmd) {
	if m.saving || m.snap.Submitting {
		m.notice = common.UserMessage(common.ErrSubmissionInFlight)
		return m, nil
	}
	if !m.snap.CanConfirm() {
		switch {
		case m.pending || m.snap.State.Busy():
			m.notice = common.UserMessage(common.ErrAnalysisInFlight)
		case m.snap.Mode == "":
			m.notice = "Choose a mode with Tab first."
		default:
			m.notice = "Fill in " + strings.Join(m.snap.Manual.Missing(), ", ") + " to save."
		}
		return m, nil
	}
	m.saving = true
	m.notice = ""
	return m, confirmCmd(m.ctx, m.session)
}

func (m Model) toggleType() Model {
	next := model.TypeExpense
	if m.snap.Manual.Type == model.TypeExpense {
		next = model.TypeIncome
	}
	if err := m.session.SetManualType(next); err != nil {
		m.notice = common.UserMessage(err)
		return m
	}
	m.refresh()
	return m
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	var err error

	switch m.focus {
	case focusCapture:
		switch m.snap.Mode {
		case model.ModeText:
			m.text, cmd = m.text.Update(msg)
		case model.ModePhoto:
			m.path, cmd = m.path.Update(msg)
		}
		return m, cmd
	case focusAmount:
		m.amount, cmd = m.amount.Update(msg)
		err = m.session.SetManualAmount(m.amount.Value())
	case focusCategory:
		m.category, cmd = m.category.Update(msg)
		err = m.session.SetManualCategory(m.category.Value())
	case focusDescription:
		m.description, cmd = m.description.Update(msg)
		err = m.session.SetManualDescription(m.description.Value())
	}

	if err != nil {
		m.notice = common.UserMessage(err)
	}
	m.refresh()
	return m, cmd
}

func (m *Model) focusInput(f focus) {
	if f < focusCapture {
		f = focusCapture
	}
	m.focus = f
	m.text.Blur()
	m.path.Blur()
	m.amount.Blur()
	m.category.Blur()
	m.description.Blur()

	switch f {
	case focusCapture:
		switch m.snap.Mode {
		case model.ModeText:
			m.text.Focus()
		case model.ModePhoto:
			m.path.Focus()
		}
	case focusAmount:
		m.amount.Focus()
	case focusCategory:
		m.category.Focus()
	case focusDescription:
		m.description.Focus()
	}
}

func (m *Model) refresh() {
	m.snap = m.session.Snapshot()
}

func (m *Model) syncManual() {
	m.amount.SetValue(m.snap.Manual.Amount)
	m.category.SetValue(m.snap.Manual.Category)
	m.description.SetValue(m.snap.Manual.Description)
}

func (m *Model) clearInputs() {
	m.text.Reset()
	m.path.Reset()
	m.amount.Reset()
	m.category.Reset()
	m.description.Reset()
}

// showManual reports whether the manual form is the active review path.
func (m Model) showManual() bool {
	return m.snap.Analysis == nil && m.snap.Mode != "" && m.snap.State != capture.StateIdle
}

// busyLabel names the work in flight, or "" when nothing is running.
func (m Model) busyLabel() string {
	switch {
	case m.saving || m.snap.Submitting:
		return "Saving..."
	case m.snap.Recording:
		return "Recording... press Ctrl+R to stop"
	case m.snap.Analyzing || (m.pending && m.snap.Mode != model.ModeAudio):
		return "Analyzing..."
	case m.pending:
		return "Working..."
	}
	return ""
}

// canLeaveCapture reports whether Down should move into the manual form
// rather than the multi-line text input.
func (m Model) canLeaveCapture() bool {
	if m.focus != focusCapture || m.snap.Mode != model.ModeText {
		return true
	}
	return m.text.Line() >= m.text.LineCount()-1
}

// Saved returns the transaction stored by the dialog, if any.
func (m Model) Saved() (model.StoredTransaction, bool) {
	if m.saved == nil {
		return model.StoredTransaction{}, false
	}
	return *m.saved, true
}
