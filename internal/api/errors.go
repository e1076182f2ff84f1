package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/storage"
)

var (
	errBadRequest      = errors.New("bad request")
	errUploadTooLarge  = errors.New("upload too large")
	errSessionNotFound = errors.New("session not found")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, common.ErrNoFileChosen),
		errors.Is(err, storage.ErrInvalidDateRange),
		errors.Is(err, storage.ErrInvalidTransaction):
		return http.StatusBadRequest
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errSessionNotFound), errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrMissingRequiredField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrSubmissionFailed):
		return http.StatusServiceUnavailable
	case common.Layer(err) == common.LayerSession, errors.Is(err, context.Canceled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fellBack reports whether a capture error was absorbed by the session,
// which is now waiting for manual entry.
func fellBack(err error) bool {
	return !errors.Is(err, common.ErrNoFileChosen) &&
		!errors.Is(err, context.Canceled) &&
		common.Layer(err) != common.LayerSession
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, session *capture.Session) {
	status := statusFor(err)
	logger := common.LoggerFrom(r.Context())

	body := errorResponse{Error: common.UserMessage(err)}
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		logger.Error("request failed", "error", err)
		body.Error = "internal error"
	case status == http.StatusServiceUnavailable:
		logger.Error("request failed", "error", err)
		body.Retryable = true
	default:
		logger.Warn("request rejected", "status", status, "error", err)
	}
	if errors.Is(err, errBadRequest) || errors.Is(err, errSessionNotFound) {
		body.Error = err.Error()
	}
	if session != nil {
		v := newSessionView(session.Snapshot())
		body.Session = &v
	}
	writeJSON(w, status, body)
}
