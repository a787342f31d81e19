package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendbook/internal/amqp"
	"spendbook/internal/core"
	"spendbook/internal/records"
	"spendbook/internal/sheets"
)

// Store is the slice of the repository the export worker needs.
type Store interface {
	GetRecord(ctx context.Context, id string) (core.Record, error)
	ListUnexported(ctx context.Context, limit int) ([]core.Record, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

// ExportWorker copies records from the database to a spreadsheet. It is
// driven by AMQP record events, with a periodic scan as backup for lost
// messages.
type ExportWorker struct {
	store     Store
	writer    sheets.RecordWriter
	batchSize int
}

func NewExportWorker(store Store, writer sheets.RecordWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleRecordEvent processes a single record event from AMQP.
func (w *ExportWorker) HandleRecordEvent(ctx context.Context, msg *amqp.RecordEventMessage) error {
	slog.InfoContext(ctx, "Processing record event",
		"id", msg.ID,
		"action", msg.Action)

	if msg.Action == records.EventDeleted {
		// The row stays in the sheet as history; nothing to export.
		slog.InfoContext(ctx, "Record deleted, nothing to export", "id", msg.ID)
		return nil
	}

	rec, err := w.store.GetRecord(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between event and processing, drop the message.
			slog.WarnContext(ctx, "Record vanished before export", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get record from storage: %w", err)
	}

	if err := w.exportRecord(ctx, rec); err != nil {
		return fmt.Errorf("export record: %w", err)
	}

	return nil
}

// ProcessPending exports records the event pipeline missed.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListUnexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported records: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, rec := range pending {
		if err := w.exportRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export record", "id", rec.ID, "error", err)
		}
	}

	return nil
}

// StartupCheck exports a larger pending backlog once at worker startup to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.ListUnexported(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unexported records for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, rec := range pending {
		if err := w.exportRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during startup",
				"id", rec.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) exportRecord(ctx context.Context, rec core.Record) error {
	ref, err := w.writer.Append(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, rec.ID); err != nil {
		// The row was written; log and move on.
		slog.ErrorContext(ctx, "Failed to mark record exported", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported record",
		"id", rec.ID,
		"sheet_ref", ref,
		"amount_cents", rec.Amount.Cents)

	return nil
}
