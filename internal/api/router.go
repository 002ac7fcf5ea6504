// Package api wires the HTTP handlers and middleware into one router.
package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-intake/internal/api/handlers"
	"github.com/dvloznov/ledger-intake/internal/api/middleware"
	"github.com/dvloznov/ledger-intake/internal/jobs"
	"github.com/dvloznov/ledger-intake/internal/ledger"
)

// Deps holds everything the router needs. Archiver may be nil.
type Deps struct {
	Ledger    *ledger.Store
	Sessions  handlers.SessionManager
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Archiver  handlers.Archiver
	AuthToken string
	Logger    zerolog.Logger
}

// NewRouter returns the API handler with the middleware chain applied.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger

	sessionsHandler := handlers.NewSessionsHandler(deps.Sessions, deps.Publisher, log)
	accountsHandler := handlers.NewAccountsHandler(deps.Ledger, log)
	transactionsHandler := handlers.NewTransactionsHandler(deps.Ledger, log)
	categoriesHandler := handlers.NewCategoriesHandler(deps.Ledger, log)
	backupHandler := handlers.NewBackupHandler(deps.Ledger, deps.Archiver, log)
	jobsHandler := handlers.NewJobsHandler(deps.Jobs, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Sessions and staging
	mux.HandleFunc("POST /api/sessions", sessionsHandler.CreateSession)
	mux.HandleFunc("GET /api/sessions", sessionsHandler.ListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", sessionsHandler.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", sessionsHandler.CloseSession)
	mux.HandleFunc("POST /api/sessions/{id}/extract", sessionsHandler.Extract)
	mux.HandleFunc("POST /api/sessions/{id}/import", sessionsHandler.ImportCSV)
	mux.HandleFunc("GET /api/sessions/{id}/staged", sessionsHandler.ListStaged)
	mux.HandleFunc("PATCH /api/sessions/{id}/staged/{stagingID}", sessionsHandler.EditStaged)
	mux.HandleFunc("DELETE /api/sessions/{id}/staged/{stagingID}", sessionsHandler.RemoveStaged)
	mux.HandleFunc("POST /api/sessions/{id}/commit", sessionsHandler.Commit)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", sessionsHandler.Cancel)
	mux.HandleFunc("GET /api/import/template", sessionsHandler.CSVTemplate)

	// Ledger
	mux.HandleFunc("GET /api/accounts", accountsHandler.ListAccounts)
	mux.HandleFunc("POST /api/accounts", accountsHandler.CreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", accountsHandler.GetAccount)
	mux.HandleFunc("PATCH /api/accounts/{id}", accountsHandler.RenameAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", accountsHandler.DeleteAccount)
	mux.HandleFunc("GET /api/transactions", transactionsHandler.ListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", transactionsHandler.GetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", transactionsHandler.EditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactionsHandler.DeleteTransaction)
	mux.HandleFunc("POST /api/transfers", transactionsHandler.CreateTransfer)
	mux.HandleFunc("GET /api/categories", categoriesHandler.ListCategories)
	mux.HandleFunc("PUT /api/categories", categoriesHandler.ReplaceCategories)
	mux.HandleFunc("GET /api/settings", categoriesHandler.GetSettings)
	mux.HandleFunc("PUT /api/settings", categoriesHandler.UpdateSettings)

	// Backup
	mux.HandleFunc("GET /api/backup", backupHandler.Export)
	mux.HandleFunc("POST /api/backup/restore", backupHandler.Restore)
	mux.HandleFunc("POST /api/backup/archive", backupHandler.Archive)
	mux.HandleFunc("POST /api/backup/archive/restore", backupHandler.RestoreArchive)

	// Jobs
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
		middleware.Auth(deps.AuthToken),
	)
}
