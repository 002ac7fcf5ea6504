package backup

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-intake/internal/gcsuploader"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// Archiver stores backup documents in an object store.
type Archiver struct {
	objects gcsuploader.ObjectStore
	prefix  string
}

// NewArchiver creates an archiver writing objects under prefix.
func NewArchiver(objects gcsuploader.ObjectStore, prefix string) *Archiver {
	return &Archiver{objects: objects, prefix: prefix}
}

// ObjectName returns the object name used for a backup taken at t.
func (a *Archiver) ObjectName(t time.Time) string {
	name := "ledger-" + t.UTC().Format("20060102T150405Z") + ".json"
	prefix := strings.TrimSuffix(a.prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Archive uploads the current ledger and returns the object URI.
func (a *Archiver) Archive(ctx context.Context, store *ledger.Store, now time.Time) (string, error) {
	var buf bytes.Buffer
	if _, err := Export(ctx, store, &buf, now); err != nil {
		return "", fmt.Errorf("Archive: %w", err)
	}
	uri, err := a.objects.Upload(ctx, a.ObjectName(now), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("Archive: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("uri", uri).Msg("backup archived")
	return uri, nil
}

// RestoreObject downloads a backup object and restores it.
func (a *Archiver) RestoreObject(ctx context.Context, store *ledger.Store, objectName string) (Document, error) {
	data, err := a.objects.Download(ctx, objectName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	return Restore(ctx, store, bytes.NewReader(data))
}
