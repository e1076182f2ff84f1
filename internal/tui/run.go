// Package tui is the terminal capture dialog built on bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
)

// Config holds the dialog configuration.
type Config struct {
	Session       *capture.Session
	Fs            afero.Fs
	Theme         themes.Theme
	InitialMode   model.InputMode
	RecordDir     string
	MaxImageBytes int64
	Width         int
	Height        int
}

// Result is what the dialog produced.
type Result struct {
	Transaction model.StoredTransaction
	Saved       bool
}

// Run shows the dialog until the user saves a transaction or closes it.
// The session is closed on return.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) (Result, error) {
	if cfg.Session == nil {
		return Result{}, errors.New("capture session is required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Theme.Primary == "" {
		cfg.Theme = themes.Default
	}
	defer func() {
		_ = cfg.Session.Close()
	}()

	m := newModel(ctx, cfg)
	defer m.recorder.Close()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return Result{}, fmt.Errorf("capture dialog: %w", err)
	}

	var result Result
	if fm, ok := final.(Model); ok {
		result.Transaction, result.Saved = fm.Saved()
	}
	if err != nil && !result.Saved {
		return result, ctx.Err()
	}
	return result, nil
}
