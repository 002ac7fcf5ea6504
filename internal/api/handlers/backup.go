package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-intake/internal/api/middleware"
	"github.com/dvloznov/ledger-intake/internal/backup"
	"github.com/dvloznov/ledger-intake/internal/ledger"
)

// Archiver stores and fetches backup documents in object storage.
type Archiver interface {
	Archive(ctx context.Context, store *ledger.Store, now time.Time) (string, error)
	RestoreObject(ctx context.Context, store *ledger.Store, objectName string) (backup.Document, error)
}

// BackupHandler exports and restores the ledger.
type BackupHandler struct {
	store    *ledger.Store
	archiver Archiver
	now      func() time.Time
	log      zerolog.Logger
}

// NewBackupHandler creates a backup handler. archiver may be nil, in which
// case the archive endpoints answer 503.
func NewBackupHandler(store *ledger.Store, archiver Archiver, log zerolog.Logger) *BackupHandler {
	return &BackupHandler{store: store, archiver: archiver, now: time.Now, log: log}
}

// Export handles GET /api/backup
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	now := h.now()
	if _, err := backup.Export(r.Context(), h.store, &buf, now); err != nil {
		writeError(w, &h.log, err, "Failed to export ledger")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger-`+now.UTC().Format("20060102")+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type restoreView struct {
	Accounts     int       `json:"accounts"`
	Transactions int       `json:"transactions"`
	ExportedAt   time.Time `json:"exported_at"`
}

func viewRestore(doc backup.Document) restoreView {
	return restoreView{Accounts: len(doc.Accounts), Transactions: len(doc.Transactions), ExportedAt: doc.ExportedAt}
}

// Restore handles POST /api/backup/restore. The body is a backup document.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	doc, err := backup.Restore(r.Context(), h.store, bytes.NewReader(body))
	if err != nil {
		writeError(w, &h.log, err, "Failed to restore ledger")
		return
	}
	h.log.Info().Int("transactions", len(doc.Transactions)).Msg("Ledger restored")
	middleware.WriteJSON(w, http.StatusOK, viewRestore(doc))
}

// Archive handles POST /api/backup/archive
func (h *BackupHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backup archive is not configured")
		return
	}
	uri, err := h.archiver.Archive(r.Context(), h.store, h.now())
	if err != nil {
		writeError(w, &h.log, err, "Failed to archive ledger")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"uri": uri})
}

// RestoreArchive handles POST /api/backup/archive/restore with {"object": name}.
func (h *BackupHandler) RestoreArchive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backup archive is not configured")
		return
	}
	var req struct {
		Object string `json:"object"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Object == "" {
		middleware.WriteError(w, http.StatusBadRequest, "object is required")
		return
	}
	doc, err := h.archiver.RestoreObject(r.Context(), h.store, req.Object)
	if err != nil {
		writeError(w, &h.log, err, "Failed to restore archived ledger")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, viewRestore(doc))
}
