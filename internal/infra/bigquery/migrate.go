package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledger-intake/internal/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one versioned DDL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// ParseMigrationName splits "0002_create_tables.sql" into its version and name.
func ParseMigrationName(filename string) (int, string, bool) {
	m := migrationPattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// ReadMigrations loads every migration under dir in fsys, substitutes the
// project and dataset placeholders and sorts by version. The checksum is taken
// before substitution so it does not depend on the target dataset.
func ReadMigrations(fsys fs.FS, dir, projectID, datasetID string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: reading %s: %w", dir, err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := ParseMigrationName(e.Name())
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("ReadMigrations: version %04d used by %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading %s: %w", e.Name(), err)
		}
		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: e.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// PendingMigrations returns the migrations whose version is not in applied.
func PendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}
	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// MigrateWithClient applies the embedded migrations that have not run yet and
// returns how many were applied.
func MigrateWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	all, err := ReadMigrations(embeddedMigrations, "migrations", projectID, datasetID)
	if err != nil {
		return 0, fmt.Errorf("MigrateWithClient: %w", err)
	}
	// 0001 creates schema_migrations itself, so it always runs first.
	if len(all) > 0 && all[0].Version == 1 {
		if err := runDDL(ctx, client, all[0].SQL); err != nil {
			return 0, fmt.Errorf("MigrateWithClient: ensuring schema_migrations: %w", err)
		}
	}

	applied, err := appliedMigrations(ctx, client, projectID, datasetID)
	if err != nil {
		return 0, fmt.Errorf("MigrateWithClient: %w", err)
	}

	count := 0
	for _, m := range PendingMigrations(all, applied) {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
		if err := runDDL(ctx, client, m.SQL); err != nil {
			return count, fmt.Errorf("MigrateWithClient: executing %s: %w", m.Filename, err)
		}
		if err := recordMigration(ctx, client, projectID, datasetID, appliedBy, m); err != nil {
			return count, fmt.Errorf("MigrateWithClient: recording %s: %w", m.Filename, err)
		}
		count++
	}
	log.Info().Int("applied", count).Int("known", len(all)).Msg("migrations complete")
	return count, nil
}

func appliedMigrations(ctx context.Context, client *bigquery.Client, projectID, datasetID string) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, projectID, datasetID)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, projectID, datasetID, appliedBy string, m Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, projectID, datasetID)

	q := client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return waitQuery(ctx, q)
}

func runDDL(ctx context.Context, client *bigquery.Client, sql string) error {
	return waitQuery(ctx, client.Query(sql))
}

func waitQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
