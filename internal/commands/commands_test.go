package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dvloznov/ledger-intake/internal/app"
	"github.com/dvloznov/ledger-intake/internal/config"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// writeConfig writes a config for a JSON file ledger in a temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"LEDGER_BACKEND", "LEDGER_DB", "GCS_BUCKET", "NOTION_TOKEN", "LOG_FORMAT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ledger.Backend = config.BackendFile
	cfg.Ledger.Path = filepath.Join(dir, "ledger.json")
	cfg.Log.Level = "error"

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "ledger-intake.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func openLedger(t *testing.T, cfgPath string) *app.App {
	t.Helper()
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	a, err := app.Open(context.Background(), cfg, logger.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAccountsAndTransfer(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := run(t, cfgPath, "", "accounts", "add", "Cash Wallet", "--type", "wallet", "--opening", "50")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "", "accounts", "add", "Main Bank", "--type", "savings", "--opening", "1000")
	require.NoError(t, err)

	_, err = run(t, cfgPath, "", "accounts", "add", "cash wallet")
	assert.Error(t, err)

	out, err := run(t, cfgPath, "", "transfer", "--from", "bank", "--to", "cash", "--amount", "200", "--date", "2024-04-02")
	require.NoError(t, err)
	assert.Contains(t, out, "200.00")

	out, err = run(t, cfgPath, "", "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "Cash Wallet")
	assert.Contains(t, out, "250.00")
	assert.Contains(t, out, "800.00")

	_, err = run(t, cfgPath, "", "accounts", "delete", "cash")
	assert.Error(t, err)

	_, err = run(t, cfgPath, "", "transfer", "--from", "bank", "--to", "nowhere", "--amount", "1")
	assert.Error(t, err)
}

func TestImportCSV(t *testing.T) {
	cfgPath := writeConfig(t)
	_, err := run(t, cfgPath, "", "accounts", "add", "Cash Wallet", "--opening", "100")
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "tx.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"date,description,amount,type,accountName\n"+
			"2024-03-01,Coffee,4.50,EXPENSE,cash\n"+
			"2024-03-02,Refund,10,INCOME,cash\n"+
			"2024-03-03,Odd,1,TRANSFER,cash\n",
	), 0o600))

	out, err := run(t, cfgPath, "n\n", "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.Empty(t, openLedger(t, cfgPath).Store.Transactions())

	out, err = run(t, cfgPath, "", "import", csvPath, "--yes", "--remove", "stg-0002")
	require.NoError(t, err)
	assert.Contains(t, out, "line 4 skipped")
	assert.Contains(t, out, "committed 1 transaction(s)")

	txs := openLedger(t, cfgPath).Store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "Coffee", txs[0].Description)
}

func TestImportTemplate(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := run(t, cfgPath, "", "import", "template", "--account", "Cash")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "date,description,amount,type,accountName\n"))
	assert.Contains(t, out, ",Cash")
}

func TestBackupAndRestore(t *testing.T) {
	src := writeConfig(t)
	_, err := run(t, src, "", "accounts", "add", "Cash Wallet", "--opening", "75")
	require.NoError(t, err)

	backupPath := filepath.Join(t.TempDir(), "backup.json")
	_, err = run(t, src, "", "backup", "--out", backupPath)
	require.NoError(t, err)

	dst := writeConfig(t)
	out, err := run(t, dst, "no\n", "restore", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.Empty(t, openLedger(t, dst).Store.Accounts())

	_, err = run(t, dst, "", "restore", backupPath, "--yes")
	require.NoError(t, err)
	accounts := openLedger(t, dst).Store.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "75", accounts[0].Balance.String())

	_, err = run(t, dst, "", "restore", "--yes")
	assert.Error(t, err)

	_, err = run(t, dst, "", "backup", "--gcs")
	assert.Error(t, err)
}

func TestSyncNotion_NotConfigured(t *testing.T) {
	cfgPath := writeConfig(t)
	_, err := run(t, cfgPath, "", "sync-notion", "--dry-run")
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("Y\n"), &out, "ok?"))
	assert.True(t, confirm(strings.NewReader("yes"), &out, "ok?"))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "ok?"))
	assert.False(t, confirm(strings.NewReader(""), &out, "ok?"))
	assert.Contains(t, out.String(), "ok? [y/N]: ")
}
