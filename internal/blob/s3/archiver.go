package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
)

// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy them through dedicated time-ranged queries; the archiver never
// needs the full store surface.

// EventArchiveStore provides read access to settled events for archival.
type EventArchiveStore interface {
	// ListResolvedBefore returns events resolved strictly before the cutoff.
	ListResolvedBefore(ctx context.Context, before time.Time) ([]domain.Event, error)
}

// PackArchiveStore provides read access to settled packs for archival.
type PackArchiveStore interface {
	// ListFullyResolvedBefore returns packs whose every pick settled strictly
	// before the cutoff.
	ListFullyResolvedBefore(ctx context.Context, before time.Time) ([]domain.Pack, error)
}

// Archiver serializes settled events and packs to JSONL and uploads the
// result to cold storage. Deletion of archived rows from the primary store
// is intentionally not performed here; that is a separate, explicit step to
// run after the archive has been verified.
type Archiver struct {
	writer domain.BlobWriter
	events EventArchiveStore
	packs  PackArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, events EventArchiveStore, packs PackArchiveStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		events: events,
		packs:  packs,
		audit:  audit,
	}
}

// ArchiveEvents uploads all events resolved before the cutoff to
// archive/events/YYYY-MM.jsonl, records the run in the audit log, and
// returns the number of archived records.
func (a *Archiver) ArchiveEvents(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.events.ListResolvedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal: %w", err)
	}

	key := archiveKey("events", before)
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}

	count := int64(len(events))

	if err := a.audit.Log(ctx, "archive.events", map[string]any{
		"key":    key,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive events audit log: %w", err)
	}

	return count, nil
}

// ArchivePacks uploads all fully settled packs before the cutoff to
// archive/packs/YYYY-MM.jsonl, records the run in the audit log, and returns
// the number of archived records.
func (a *Archiver) ArchivePacks(ctx context.Context, before time.Time) (int64, error) {
	packs, err := a.packs.ListFullyResolvedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive packs query: %w", err)
	}
	if len(packs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(packs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive packs marshal: %w", err)
	}

	key := archiveKey("packs", before)
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive packs upload: %w", err)
	}

	count := int64(len(packs))

	if err := a.audit.Log(ctx, "archive.packs", map[string]any{
		"key":    key,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive packs audit log: %w", err)
	}

	return count, nil
}

// archiveKey builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/events/2026-08.jsonl
//	archive/packs/2026-08.jsonl
func archiveKey(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
