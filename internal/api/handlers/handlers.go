// Package handlers implements the HTTP endpoints of the ingestion API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-intake/internal/api/middleware"
	"github.com/dvloznov/ledger-intake/internal/backup"
	"github.com/dvloznov/ledger-intake/internal/jobs"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/session"
	"github.com/dvloznov/ledger-intake/internal/staging"
)

// MaxBodyBytes caps request bodies, including CSV uploads and backups.
const MaxBodyBytes = 10 << 20

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: unexpected data after JSON object")
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var commitErr *ledger.CommitError
	switch {
	case errors.As(err, &commitErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, staging.ErrNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrIngestionInProgress),
		errors.Is(err, session.ErrSessionDiscarded),
		errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, ledger.ErrAccountInUse):
		return http.StatusConflict
	case errors.Is(err, staging.ErrInvalidValue),
		errors.Is(err, ledger.ErrInvalidTransfer),
		errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, backup.ErrRestoreFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it with the mapped status. Server errors
// get a generic message instead of the error text.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	log.Warn().Err(err).Int("status", status).Msg(msg)

	var commitErr *ledger.CommitError
	if errors.As(err, &commitErr) {
		middleware.WriteJSON(w, status, map[string]interface{}{
			"error":      err.Error(),
			"staging_id": commitErr.StagingID,
			"index":      commitErr.Index,
		})
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func queryInt(r *http.Request, key string) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
