package capture

import (
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
)

// Snapshot is a read-only view of a Session for presentation layers.
type Snapshot struct {
	LastError  error
	Analysis   *model.AnalysisSnapshot
	ID         string
	Mode       model.InputMode
	Manual     model.ManualFields
	State      State
	HasPayload bool
	Recording  bool
	Analyzing  bool
	Submitting bool
}

// CanConfirm mirrors the save button: enabled when nothing is in flight and
// either an analysis exists or the manual form is complete.
func (s Snapshot) CanConfirm() bool {
	if s.State.Busy() || s.State == StateIdle {
		return false
	}
	return s.Analysis != nil || s.Manual.Complete()
}

// ErrorMessage is the user-facing text for LastError.
func (s Snapshot) ErrorMessage() string {
	if s.LastError == nil {
		return ""
	}
	return common.UserMessage(s.LastError)
}

// Retryable reports whether LastError was a transient service failure that
// a manual retry may fix.
func (s Snapshot) Retryable() bool {
	return common.IsTransient(s.LastError)
}
