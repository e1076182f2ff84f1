package tui

import (
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
)

// Recorder captures dialog state changes and rendered frames for debugging.
// A Recorder built without a directory does nothing.
type Recorder struct {
	fs       afero.Fs
	logFile  afero.File
	frameDir string
	mu       sync.Mutex
	frameNum int
	enabled  bool
}

// NewRecorder creates a recorder writing under dir on fs.
func NewRecorder(fs afero.Fs, dir string) *Recorder {
	if dir == "" {
		return &Recorder{}
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	recordDir := path.Join(dir, fmt.Sprintf("capture-%d", time.Now().UnixNano()))
	if err := fs.MkdirAll(recordDir, 0o750); err != nil {
		return &Recorder{}
	}

	logFile, err := fs.Create(path.Join(recordDir, "tui.log"))
	if err != nil {
		return &Recorder{}
	}

	r := &Recorder{
		fs:       fs,
		enabled:  true,
		logFile:  logFile,
		frameDir: recordDir,
	}
	r.Log("recorder started at %s", recordDir)
	return r
}

// Dir returns the recording directory, or "" when disabled.
func (r *Recorder) Dir() string {
	return r.frameDir
}

// RecordState captures the dialog after handling msg.
func (r *Recorder) RecordState(m Model, msg tea.Msg) {
	if r == nil || !r.enabled {
		return
	}
	if _, ok := msg.(spinner.TickMsg); ok {
		return
	}

	r.mu.Lock()
	r.frameNum++
	frame := r.frameNum
	r.mu.Unlock()

	r.Log("\n=== Frame %d ===", frame)
	r.Log("Time: %s", time.Now().Format("15:04:05.000"))
	r.Log("Message: %T", msg)
	r.Log("State: %s  Mode: %q  Focus: %d  Pending: %v  Saving: %v",
		m.snap.State, m.snap.Mode, m.focus, m.pending, m.saving)
	if m.notice != "" {
		r.Log("Notice: %s", m.notice)
	}

	view := m.View()
	framePath := path.Join(r.frameDir, fmt.Sprintf("frame-%04d.txt", frame))
	if err := afero.WriteFile(r.fs, framePath, []byte(view), 0o600); err != nil {
		r.Log("Error saving frame: %v", err)
	}
}

// Log writes to the log file.
func (r *Recorder) Log(format string, args ...any) {
	if r == nil || !r.enabled || r.logFile == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.logFile, format+"\n", args...)
}

// Frames returns the number of recorded frames.
func (r *Recorder) Frames() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameNum
}

// Close closes the recorder.
func (r *Recorder) Close() {
	if r == nil || r.logFile == nil {
		return
	}
	r.Log("Recording complete. %d frames captured.", r.Frames())
	_ = r.logFile.Close()
	r.logFile = nil
}
