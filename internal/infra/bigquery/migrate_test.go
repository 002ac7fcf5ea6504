package bigquery

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, 1, "init_schema_migrations"},
		{"0012_add_index.sql", true, 12, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := ParseMigrationName(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_tables.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (x INT64);")},
		"m/0001_init.sql":   {Data: []byte("SELECT 1;")},
		"m/README.md":       {Data: []byte("ignored")},
	}

	got, err := ReadMigrations(fsys, "m", "proj", "ds")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "tables", got[1].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.t` (x INT64);", got[1].SQL)

	other, err := ReadMigrations(fsys, "m", "other", "elsewhere")
	require.NoError(t, err)
	assert.Equal(t, got[1].Checksum, other[1].Checksum, "checksum ignores placeholder values")
	assert.NotEqual(t, got[0].Checksum, got[1].Checksum)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("a")},
		"m/0001_b.sql": {Data: []byte("b")},
	}
	_, err := ReadMigrations(fsys, "m", "p", "d")
	require.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ReadMigrations(embeddedMigrations, "migrations", "p", "d")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, 1, got[0].Version)
	assert.Contains(t, got[1].SQL, "`p.d.transactions`")
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	pending := PendingMigrations(all, applied)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}
