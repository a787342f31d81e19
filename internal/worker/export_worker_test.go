package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbook/internal/amqp"
	"spendbook/internal/core"
	"spendbook/internal/records"
	"spendbook/internal/sheets/memory"
)

type stubStore struct {
	recs        map[string]core.Record
	pending     []core.Record
	exported    []string
	exportError []string
}

func newStubStore(recs ...core.Record) *stubStore {
	s := &stubStore{recs: map[string]core.Record{}}
	for _, r := range recs {
		s.recs[r.ID] = r
		s.pending = append(s.pending, r)
	}
	return s
}

func (s *stubStore) GetRecord(_ context.Context, id string) (core.Record, error) {
	r, ok := s.recs[id]
	if !ok {
		return core.Record{}, core.ErrNotFound
	}
	return r, nil
}

func (s *stubStore) ListUnexported(_ context.Context, limit int) ([]core.Record, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubStore) MarkExported(_ context.Context, id string) error {
	s.exported = append(s.exported, id)
	return nil
}

func (s *stubStore) MarkExportError(_ context.Context, id string) error {
	s.exportError = append(s.exportError, id)
	return nil
}

type failingWriter struct{}

func (failingWriter) Append(context.Context, core.Record) (string, error) {
	return "", errors.New("sheet unavailable")
}

func validRecord(id string) core.Record {
	return core.Record{
		ID:       id,
		Owner:    "alice",
		Text:     "groceries",
		Amount:   core.Money{Cents: 2000},
		Category: core.CategoryFood,
		Date:     core.NewDate(2024, 1, 15),
	}
}

func TestHandleRecordEventExports(t *testing.T) {
	store := newStubStore(validRecord("rec-1"))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 10)

	msg := amqp.NewRecordEventMessage("rec-1", "alice", records.EventCreated)
	require.NoError(t, w.HandleRecordEvent(context.Background(), msg))

	require.Len(t, sheet.Rows(), 1)
	assert.Equal(t, []string{"rec-1"}, store.exported)
}

func TestHandleRecordEventDeletedIsNoop(t *testing.T) {
	store := newStubStore()
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 10)

	msg := amqp.NewRecordEventMessage("rec-1", "alice", records.EventDeleted)
	require.NoError(t, w.HandleRecordEvent(context.Background(), msg))
	assert.Empty(t, sheet.Rows())
}

func TestHandleRecordEventVanishedRecord(t *testing.T) {
	store := newStubStore()
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 10)

	msg := amqp.NewRecordEventMessage("gone", "alice", records.EventUpdated)
	// Dropped, not requeued.
	require.NoError(t, w.HandleRecordEvent(context.Background(), msg))
}

func TestHandleRecordEventWriterFailure(t *testing.T) {
	store := newStubStore(validRecord("rec-1"))
	w := NewExportWorker(store, failingWriter{}, 10)

	msg := amqp.NewRecordEventMessage("rec-1", "alice", records.EventCreated)
	err := w.HandleRecordEvent(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, []string{"rec-1"}, store.exportError)
	assert.Empty(t, store.exported)
}

func TestProcessPendingRespectsBatchSize(t *testing.T) {
	store := newStubStore(validRecord("a"), validRecord("b"), validRecord("c"))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 2)

	require.NoError(t, w.ProcessPending(context.Background()))
	assert.Len(t, sheet.Rows(), 2)
}

func TestStartupCheckExportsBacklog(t *testing.T) {
	store := newStubStore(validRecord("a"), validRecord("b"))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 1)

	require.NoError(t, w.StartupCheck(context.Background()))
	assert.Len(t, sheet.Rows(), 2)
}
