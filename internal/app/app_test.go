package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-intake/internal/config"
	"github.com/dvloznov/ledger-intake/internal/domain"
)

func testConfig(backend, path string) *config.Config {
	cfg := config.Default()
	cfg.Ledger.Backend = backend
	cfg.Ledger.Path = path
	return cfg
}

func TestOpenPersister_Memory(t *testing.T) {
	p, closer, err := OpenPersister(context.Background(), config.LedgerConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, closer)
}

func TestOpenPersister_Unknown(t *testing.T) {
	_, _, err := OpenPersister(context.Background(), config.LedgerConfig{Backend: "postgres"})
	assert.Error(t, err)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(backend, filepath.Join(t.TempDir(), "ledger.data"))

			a, err := Open(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			_, err = a.Store.CreateAccount(ctx, "Cash", domain.AccountWallet, decimal.NewFromInt(10))
			require.NoError(t, err)
			require.NoError(t, a.Close())

			b, err := Open(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			defer b.Close()
			require.Len(t, b.Store.Accounts(), 1)
			assert.Equal(t, "Cash", b.Store.Accounts()[0].Name)
			assert.Nil(t, b.Archiver)
		})
	}
}

func TestApp_NewCSVIngestor(t *testing.T) {
	a, err := Open(context.Background(), testConfig(config.BackendMemory, ""), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	in, err := a.NewCSVIngestor()
	require.NoError(t, err)
	assert.NotNil(t, in)
}

func TestApp_NewNotionSyncer(t *testing.T) {
	cfg := testConfig(config.BackendMemory, "")
	a, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.NewNotionSyncer(true)
	assert.Error(t, err)

	cfg.Notion = config.NotionConfig{Token: "secret", TransactionsDB: "db1"}
	s, err := a.NewNotionSyncer(true)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestLedgerDirectory_BeforeStore(t *testing.T) {
	d := &ledgerDirectory{}
	assert.Empty(t, d.Accounts())
	assert.Equal(t, domain.DefaultSettings(), d.Settings())
}
