package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/storage"
	"github.com/go-chi/chi/v5"
)

const (
	maxJSONBody       = 1 << 20
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
)

type createSessionRequest struct {
	Mode string `json:"mode"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type textRequest struct {
	Text string `json:"text"`
}

// manualRequest carries only the fields being edited.
type manualRequest struct {
	Type        *string `json:"type"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := s.deps.Store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(r.Context()); err != nil {
			common.LoggerFrom(r.Context()).Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.OpenSessions(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	entry := s.newSession()
	if req.Mode != "" {
		mode, err := model.ParseInputMode(req.Mode)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err), nil)
			return
		}
		if err := entry.session.SelectMode(mode); err != nil {
			s.writeError(w, r, err, nil)
			return
		}
	}
	s.sessions.add(entry)

	common.LoggerFrom(r.Context()).Info("session opened", "session_id", entry.session.ID(), "mode", req.Mode)
	writeJSON(w, http.StatusCreated, newSessionView(entry.session.Snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(entry.session.Snapshot()))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.remove(id) {
		s.writeError(w, r, errSessionNotFound, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectMode(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	mode, err := model.ParseInputMode(req.Mode)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err), nil)
		return
	}
	if err := entry.session.SelectMode(mode); err != nil {
		s.writeError(w, r, err, entry.session)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(entry.session.Snapshot()))
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	err := entry.session.SubmitText(r.Context(), sanitizeText(req.Text))
	s.respondCapture(w, r, entry.session, err)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	up, err := s.readUpload(w, r, s.cfg.MaxRecordingBytes)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	mimeType := up.contentType
	if !strings.HasPrefix(mimeType, "audio/") {
		mimeType = media.AudioMIMEType(up.name)
	}
	entry.mic.load(up.data, mimeType)

	if err := entry.session.StartRecording(r.Context()); err != nil {
		s.respondCapture(w, r, entry.session, err)
		return
	}
	err = entry.session.StopRecording(r.Context())
	s.respondCapture(w, r, entry.session, err)
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	up, err := s.readUpload(w, r, s.cfg.MaxImageBytes)
	if err != nil && !errors.Is(err, common.ErrNoFileChosen) {
		s.writeError(w, r, err, nil)
		return
	}

	picker := media.BytesPicker{Name: up.name, Data: up.data, MaxBytes: s.cfg.MaxImageBytes}
	err = entry.session.SelectImage(r.Context(), picker)
	s.respondCapture(w, r, entry.session, err)
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req manualRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	session := entry.session
	if req.Type != nil {
		t := model.TypeUnset
		if strings.TrimSpace(*req.Type) != "" {
			parsed, err := model.ParseTransactionType(*req.Type)
			if err != nil {
				s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err), nil)
				return
			}
			t = parsed
		}
		if err := session.SetManualType(t); err != nil {
			s.writeError(w, r, err, session)
			return
		}
	}
	edits := []struct {
		value *string
		set   func(string) error
	}{
		{req.Amount, session.SetManualAmount},
		{req.Category, session.SetManualCategory},
		{req.Description, session.SetManualDescription},
	}
	for _, edit := range edits {
		if edit.value == nil {
			continue
		}
		if err := edit.set(sanitizeText(*edit.value)); err != nil {
			s.writeError(w, r, err, session)
			return
		}
	}
	writeJSON(w, http.StatusOK, newSessionView(session.Snapshot()))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	stored, err := entry.session.Confirm(r.Context())
	if err != nil {
		s.writeError(w, r, err, entry.session)
		return
	}

	common.LoggerFrom(r.Context()).Info("transaction confirmed",
		"session_id", entry.session.ID(),
		"transaction_id", stored.ID)
	writeJSON(w, http.StatusCreated, confirmResponse{
		Transaction: newTransactionView(stored),
		Session:     newSessionView(entry.session.Snapshot()),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := entry.session.Reset(); err != nil {
		s.writeError(w, r, err, entry.session)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(entry.session.Snapshot()))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	txs, err := s.deps.Store.List(r.Context(), s.cfg.OwnerID, filter)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	income, expense, err := s.deps.Store.Totals(r.Context(), s.cfg.OwnerID, filter)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	resp := listResponse{
		Income:       income.StringFixed(2),
		Expense:      expense.StringFixed(2),
		Transactions: make([]transactionView, 0, len(txs)),
		Count:        len(txs),
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, newTransactionView(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if tx.OwnerID != s.cfg.OwnerID {
		s.writeError(w, r, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound), nil)
		return
	}
	if err := s.deps.Store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	common.LoggerFrom(r.Context()).Info("transaction deleted", "transaction_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*sessionEntry, bool) {
	entry, ok := s.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, r, errSessionNotFound, nil)
		return nil, false
	}
	return entry, true
}

// respondCapture answers a capture request. Failures the session absorbed
// into manual entry are reported inside the session view.
func (s *Server) respondCapture(w http.ResponseWriter, r *http.Request, session *capture.Session, err error) {
	if err != nil && !fellBack(err) {
		s.writeError(w, r, err, session)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session.Snapshot()))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload{}, fmt.Errorf("%w: limit is %d bytes", errUploadTooLarge, maxBytes)
		}
		return upload{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return upload{}, common.ErrNoFileChosen
		}
		return upload{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return upload{}, fmt.Errorf("%w: read upload: %w", errBadRequest, err)
	}

	contentType := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	return upload{name: header.Filename, contentType: contentType, data: data}, nil
}

func parseFilter(r *http.Request) (storage.Filter, error) {
	q := r.URL.Query()
	var f storage.Filter

	parseDate := func(key string) (*time.Time, error) {
		v := q.Get(key)
		if v == "" {
			return nil, nil
		}
		d, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadRequest, key)
		}
		return &d, nil
	}

	var err error
	if f.From, err = parseDate("from"); err != nil {
		return storage.Filter{}, err
	}
	if f.To, err = parseDate("to"); err != nil {
		return storage.Filter{}, err
	}
	if v := q.Get("type"); v != "" {
		if f.Type, err = model.ParseTransactionType(v); err != nil {
			return storage.Filter{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
	}
	f.Category = sanitizeText(q.Get("category"))
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return storage.Filter{}, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
		}
		f.Limit = n
	}
	return f, nil
}
