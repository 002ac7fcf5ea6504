package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-intake/internal/jobs"
	"github.com/dvloznov/ledger-intake/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/pipeline"
	"github.com/dvloznov/ledger-intake/internal/session"
)

type MockExtractor struct {
	ExtractFunc func(ctx context.Context, req pipeline.ExtractionRequest) pipeline.ExtractionResult
}

func (m *MockExtractor) Extract(ctx context.Context, req pipeline.ExtractionRequest) pipeline.ExtractionResult {
	return m.ExtractFunc(ctx, req)
}

type testServer struct {
	handler http.Handler
	store   *ledger.Store
	token   string
}

func newTestServer(t *testing.T, token string, raw ...pipeline.RawCandidate) *testServer {
	t.Helper()
	ex := &MockExtractor{ExtractFunc: func(ctx context.Context, req pipeline.ExtractionRequest) pipeline.ExtractionResult {
		return pipeline.ExtractionResult{Outcome: pipeline.OutcomePrimary, Candidates: raw}
	}}

	store := ledger.NewStore()
	mgr := session.NewManager(pipeline.NewIngestor(ex, nil), store)
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(inmemory.Config{Workers: 1, Backoff: time.Millisecond}, jobStore)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Start(ctx, jobs.NewExtractionHandler(mgr)))
	t.Cleanup(func() {
		cancel()
		_ = queue.Stop(context.Background())
	})

	return &testServer{
		handler: NewRouter(Deps{
			Ledger:    store,
			Sessions:  mgr,
			Publisher: queue,
			Jobs:      jobStore,
			AuthToken: token,
			Logger:    zerolog.Nop(),
		}),
		store: store,
		token: token,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_AuthRequired(t *testing.T) {
	srv := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ExtractEditCommit(t *testing.T) {
	srv := newTestServer(t, "", pipeline.RawCandidate{
		Date: "2024-03-10", Description: "Groceries", Amount: "20", Type: "EXPENSE", AccountName: "cash",
	})

	rec := srv.do(t, http.MethodPost, "/api/accounts", map[string]interface{}{
		"name": "Cash Wallet", "type": "wallet", "openingBalance": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	accountID := decode(t, rec)["id"].(string)

	rec = srv.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := decode(t, rec)["id"].(string)

	rec = srv.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/extract", map[string]string{"text": "groceries 20 cash"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := decode(t, rec)["job_id"].(string)

	require.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/api/jobs/"+jobID, nil)
		return rec.Code == http.StatusOK && decode(t, rec)["status"] == string(jobs.JobStatusCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	rec = srv.do(t, http.MethodGet, "/api/sessions/"+sessionID+"/staged", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = srv.do(t, http.MethodPatch, "/api/sessions/"+sessionID+"/staged/stg-0001", map[string]string{"field": "amount", "value": "25"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPatch, "/api/sessions/"+sessionID+"/staged/stg-0001", map[string]string{"field": "amount", "value": "-3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/commit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	acct, err := srv.store.Account(accountID)
	require.NoError(t, err)
	assert.Equal(t, "75", acct.Balance.String())

	rec = srv.do(t, http.MethodGet, "/api/transactions?account_id="+accountID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestRouter_NotFound(t *testing.T) {
	srv := newTestServer(t, "")

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/sessions/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/jobs/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/api/accounts/nope", nil).Code)
}

func TestRouter_ArchiveNotConfigured(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(t, http.MethodPost, "/api/backup/archive", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
