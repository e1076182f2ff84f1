package tui

import (
	"context"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Session calls block until classification or submission finishes, so each
// runs as a command off the update loop.

func submitTextCmd(ctx context.Context, s *capture.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return captureDoneMsg{mode: model.ModeText, err: s.SubmitText(ctx, text)}
	}
}

func selectImageCmd(ctx context.Context, s *capture.Session, picker media.ImagePicker) tea.Cmd {
	return func() tea.Msg {
		return captureDoneMsg{mode: model.ModePhoto, err: s.SelectImage(ctx, picker)}
	}
}

func startRecordingCmd(ctx context.Context, s *capture.Session) tea.Cmd {
	return func() tea.Msg {
		return recordingStartedMsg{err: s.StartRecording(ctx)}
	}
}

func stopRecordingCmd(ctx context.Context, s *capture.Session) tea.Cmd {
	return func() tea.Msg {
		return captureDoneMsg{mode: model.ModeAudio, err: s.StopRecording(ctx)}
	}
}

func confirmCmd(ctx context.Context, s *capture.Session) tea.Cmd {
	return func() tea.Msg {
		stored, err := s.Confirm(ctx)
		return confirmDoneMsg{stored: stored, err: err}
	}
}
