package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-intake/internal/api/middleware"
	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/jobs"
	"github.com/dvloznov/ledger-intake/internal/pipeline"
	"github.com/dvloznov/ledger-intake/internal/session"
	"github.com/dvloznov/ledger-intake/internal/staging"
)

// SessionManager is the session registry used by the handlers.
type SessionManager interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Close(id string) error
	List() []*session.Session
}

// SessionsHandler serves sessions and their staging batches.
type SessionsHandler struct {
	sessions  SessionManager
	publisher jobs.Publisher
	log       zerolog.Logger
}

func NewSessionsHandler(sessions SessionManager, publisher jobs.Publisher, log zerolog.Logger) *SessionsHandler {
	return &SessionsHandler{sessions: sessions, publisher: publisher, log: log}
}

type sessionView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Busy      bool      `json:"busy"`
	Staged    int       `json:"staged"`
}

func viewSession(s *session.Session) sessionView {
	return sessionView{ID: s.ID, CreatedAt: s.CreatedAt, Busy: s.Busy(), Staged: s.Batch().Len()}
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, &h.log, err, "Session not found")
		return nil, false
	}
	return s, true
}

// CreateSession handles POST /api/sessions
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	h.log.Info().Str("session_id", s.ID).Msg("Session created")
	middleware.WriteJSON(w, http.StatusCreated, viewSession(s))
}

// ListSessions handles GET /api/sessions
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.List()
	views := make([]sessionView, 0, len(list))
	for _, s := range list {
		views = append(views, viewSession(s))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": views, "count": len(views)})
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		middleware.WriteJSON(w, http.StatusOK, viewSession(s))
	}
}

// CloseSession handles DELETE /api/sessions/{id}
func (h *SessionsHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.PathValue("id")); err != nil {
		writeError(w, &h.log, err, "Failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Extract handles POST /api/sessions/{id}/extract. Extraction runs as a job;
// the response carries the job id to poll.
func (h *SessionsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	job := &jobs.ExtractionJob{SessionID: s.ID, Text: req.Text}
	if err := h.publisher.PublishExtraction(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("session_id", s.ID).Msg("Extraction job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"session_id": s.ID,
		"status":     string(job.Status),
	})
}

// ImportCSV handles POST /api/sessions/{id}/import. The body is the CSV file.
func (h *SessionsHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read CSV body")
		return
	}

	report, err := s.ImportCSV(r.Context(), data)
	if err != nil {
		writeError(w, &h.log, err, "Failed to import CSV")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"staging_ids": report.StagingIDs,
		"row_issues":  report.RowIssues,
		"rejected":    report.Rejected(),
	})
}

// ListStaged handles GET /api/sessions/{id}/staged
func (h *SessionsHandler) ListStaged(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	items := s.Batch().List()
	if items == nil {
		items = []domain.CandidateTransaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": items,
		"count":      len(items),
		"busy":       s.Busy(),
	})
}

// EditStaged handles PATCH /api/sessions/{id}/staged/{stagingID}
func (h *SessionsHandler) EditStaged(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.Batch().Edit(domain.StagingID(r.PathValue("stagingID")), staging.Field(req.Field), req.Value)
	if err != nil {
		writeError(w, &h.log, err, "Failed to edit staged candidate")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// RemoveStaged handles DELETE /api/sessions/{id}/staged/{stagingID}
func (h *SessionsHandler) RemoveStaged(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Batch().Remove(domain.StagingID(r.PathValue("stagingID"))); err != nil {
		writeError(w, &h.log, err, "Failed to remove staged candidate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Commit handles POST /api/sessions/{id}/commit
func (h *SessionsHandler) Commit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	txs, err := s.Commit(r.Context())
	if err != nil {
		writeError(w, &h.log, err, "Failed to commit batch")
		return
	}
	if txs == nil {
		txs = []domain.LedgerTransaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Cancel handles POST /api/sessions/{id}/cancel
func (h *SessionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// CSVTemplate handles GET /api/import/template
func (h *SessionsHandler) CSVTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions-template.csv"`)
	if err := pipeline.WriteCSVTemplate(w, r.URL.Query().Get("account")); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV template")
	}
}
