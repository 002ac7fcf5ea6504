// Package config loads the ledger-intake YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Ledger storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

// Config is the top-level ledger-intake.yaml configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Backup     BackupConfig     `yaml:"backup,omitempty"`
	Notion     NotionConfig     `yaml:"notion,omitempty"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// AuthToken, when set, is required as a bearer token on /api routes.
	AuthToken string `yaml:"auth_token,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// LedgerConfig selects where the ledger is persisted.
type LedgerConfig struct {
	Backend  string         `yaml:"backend"`
	Path     string         `yaml:"path,omitempty"` // sqlite database or JSON file
	BigQuery BigQueryConfig `yaml:"bigquery,omitempty"`
}

type BigQueryConfig struct {
	ProjectID       string `yaml:"project_id"`
	Dataset         string `yaml:"dataset"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

type ExtractionConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key,omitempty"`
	// DuplicateTolerance is a relative amount tolerance, e.g. "0.01" for 1%.
	DuplicateTolerance string `yaml:"duplicate_tolerance"`
}

type JobsConfig struct {
	Workers    int           `yaml:"workers"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

// BackupConfig enables archiving backups to a GCS bucket.
type BackupConfig struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

// NotionConfig enables mirroring the ledger into Notion databases.
type NotionConfig struct {
	Token          string `yaml:"token,omitempty"`
	TransactionsDB string `yaml:"transactions_db,omitempty"`
	AccountsDB     string `yaml:"accounts_db,omitempty"`
	ExportOnCommit bool   `yaml:"export_on_commit,omitempty"`
}

// Enabled reports whether Notion credentials and a target are set.
func (n NotionConfig) Enabled() bool {
	return n.Token != "" && (n.TransactionsDB != "" || n.AccountsDB != "")
}

// Default returns a Config for a local single-user setup.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info", Format: "console"},
		Ledger: LedgerConfig{
			Backend:  BackendSQLite,
			Path:     "ledger.db",
			BigQuery: BigQueryConfig{Dataset: "ledger"},
		},
		Extraction: ExtractionConfig{
			Model:              "gemini-2.5-flash",
			DuplicateTolerance: "0.01",
		},
		Jobs: JobsConfig{
			Workers:    4,
			MaxRetries: 3,
			Backoff:    time.Second,
		},
		Backup: BackupConfig{Prefix: "backups/"},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. Unset or empty
// variables leave the field alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &c.Server.Port)
	str("API_TOKEN", &c.Server.AuthToken)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LEDGER_BACKEND", &c.Ledger.Backend)
	str("LEDGER_DB", &c.Ledger.Path)
	str("GCP_PROJECT", &c.Ledger.BigQuery.ProjectID)
	str("BQ_DATASET", &c.Ledger.BigQuery.Dataset)
	str("GEMINI_MODEL", &c.Extraction.Model)
	str("GEMINI_API_KEY", &c.Extraction.APIKey)
	str("GCS_BUCKET", &c.Backup.Bucket)
	str("NOTION_TOKEN", &c.Notion.Token)
	str("NOTION_TRANSACTIONS_DB", &c.Notion.TransactionsDB)
	str("NOTION_ACCOUNTS_DB", &c.Notion.AccountsDB)

	if v, ok := lookup("JOB_WORKERS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Jobs.Workers = n
		}
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error

	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Ledger.Path == "" {
			errs = append(errs, fmt.Errorf("ledger.path is required for the %s backend", c.Ledger.Backend))
		}
	case BackendBigQuery:
		if c.Ledger.BigQuery.ProjectID == "" {
			errs = append(errs, errors.New("ledger.bigquery.project_id is required for the bigquery backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger.backend %q", c.Ledger.Backend))
	}

	if _, err := c.Tolerance(); err != nil {
		errs = append(errs, err)
	}
	if c.Jobs.Workers < 0 || c.Jobs.MaxRetries < 0 {
		errs = append(errs, errors.New("jobs.workers and jobs.max_retries must not be negative"))
	}
	if c.Log.Format != "" && c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Tolerance parses the duplicate tolerance.
func (c *Config) Tolerance() (decimal.Decimal, error) {
	tol, err := decimal.NewFromString(c.Extraction.DuplicateTolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("extraction.duplicate_tolerance %q: %w", c.Extraction.DuplicateTolerance, err)
	}
	if tol.IsNegative() {
		return decimal.Zero, fmt.Errorf("extraction.duplicate_tolerance must not be negative")
	}
	return tol, nil
}
