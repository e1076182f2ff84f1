package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/model"
)

type analysisView struct {
	Type           model.TransactionType `json:"type"`
	Amount         string                `json:"amount"`
	AmountText     string                `json:"amount_text"`
	Category       string                `json:"category"`
	Description    string                `json:"description"`
	ConfidenceText string                `json:"confidence_text"`
	Confidence     float64               `json:"confidence"`
}

type sessionView struct {
	Analysis   *analysisView      `json:"analysis,omitempty"`
	ID         string             `json:"id"`
	State      string             `json:"state"`
	Mode       model.InputMode    `json:"mode,omitempty"`
	Error      string             `json:"error,omitempty"`
	Manual     model.ManualFields `json:"manual"`
	Missing    []string           `json:"missing,omitempty"`
	Retryable  bool               `json:"retryable"`
	Recording  bool               `json:"recording"`
	Analyzing  bool               `json:"analyzing"`
	Submitting bool               `json:"submitting"`
	CanConfirm bool               `json:"can_confirm"`
}

func newSessionView(snap capture.Snapshot) sessionView {
	v := sessionView{
		ID:         snap.ID,
		State:      snap.State.String(),
		Mode:       snap.Mode,
		Manual:     snap.Manual,
		Error:      snap.ErrorMessage(),
		Retryable:  snap.Retryable(),
		Recording:  snap.Recording,
		Analyzing:  snap.Analyzing,
		Submitting: snap.Submitting,
		CanConfirm: snap.CanConfirm(),
	}
	if a := snap.Analysis; a != nil {
		v.Analysis = &analysisView{
			Type:           a.Type,
			Amount:         a.Amount.StringFixed(2),
			AmountText:     model.FormatAmount(a.Amount, ""),
			Category:       a.Category,
			Description:    a.Description,
			Confidence:     a.Confidence,
			ConfidenceText: model.FormatConfidence(a.Confidence),
		}
	} else if snap.Mode != "" {
		v.Missing = snap.Manual.Missing()
	}
	return v
}

type transactionView struct {
	CreatedAt     time.Time               `json:"created_at"`
	Analysis      *model.AnalysisSnapshot `json:"source_analysis,omitempty"`
	ID            string                  `json:"id"`
	Date          string                  `json:"date"`
	Type          model.TransactionType   `json:"type"`
	Amount        string                  `json:"amount"`
	Display       string                  `json:"display"`
	Category      string                  `json:"category"`
	Description   string                  `json:"description,omitempty"`
	InputMethod   model.InputMode         `json:"input_method,omitempty"`
	AttachmentURI string                  `json:"attachment_uri,omitempty"`
}

func newTransactionView(tx model.StoredTransaction) transactionView {
	return transactionView{
		ID:            tx.ID,
		Date:          tx.Date(),
		Type:          tx.Type,
		Amount:        tx.Amount.StringFixed(2),
		Display:       model.FormatSignedAmount(tx.Type, tx.Amount, ""),
		Category:      tx.Category,
		Description:   tx.Description,
		InputMethod:   tx.InputMethod,
		AttachmentURI: tx.AttachmentURI,
		Analysis:      tx.SourceAnalysis,
		CreatedAt:     tx.CreatedAt,
	}
}

type confirmResponse struct {
	Transaction transactionView `json:"transaction"`
	Session     sessionView     `json:"session"`
}

// listResponse totals cover the whole date range and category, regardless of
// type and limit.
type listResponse struct {
	Income       string            `json:"income"`
	Expense      string            `json:"expense"`
	Transactions []transactionView `json:"transactions"`
	Count        int               `json:"count"`
}

type errorResponse struct {
	Session   *sessionView `json:"session,omitempty"`
	Error     string       `json:"error"`
	Retryable bool         `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
