package tui

import "github.com/Veraticus/spice-capture/internal/model"

// captureDoneMsg reports the end of a text, photo or audio capture,
// including its classification.
type captureDoneMsg struct {
	err  error
	mode model.InputMode
}

type recordingStartedMsg struct {
	err error
}

type confirmDoneMsg struct {
	err    error
	stored model.StoredTransaction
}
