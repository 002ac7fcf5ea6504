package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/ledger-intake/internal/ledger"
)

// FilePersister keeps the ledger in a single backup document on disk.
// Saves go to a temporary file that is renamed over the target, so a crash
// never leaves a half-written ledger behind.
type FilePersister struct {
	path string
	now  func() time.Time
}

// NewFilePersister creates a persister for path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path, now: time.Now}
}

// Load reads the ledger. A missing file is an empty ledger.
func (p *FilePersister) Load(ctx context.Context) (ledger.Snapshot, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.Snapshot{}, nil
	}
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("FilePersister.Load: %w", err)
	}
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("FilePersister.Load: %s: %w", p.path, err)
	}
	return doc.Snapshot(), nil
}

// Save writes the snapshot atomically.
func (p *FilePersister) Save(ctx context.Context, snap ledger.Snapshot) error {
	var buf bytes.Buffer
	if err := Encode(&buf, FromSnapshot(snap, p.now())); err != nil {
		return fmt.Errorf("FilePersister.Save: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("FilePersister.Save: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("FilePersister.Save: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("FilePersister.Save: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("FilePersister.Save: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("FilePersister.Save: rename temp file: %w", err)
	}
	return nil
}

var _ ledger.Persister = (*FilePersister)(nil)
