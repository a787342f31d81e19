package memory

import (
	"context"
	"fmt"
	"sync"

	"spendbook/internal/core"
)

// Store is an in-memory sheet used when no spreadsheet is configured and in
// tests.
type Store struct {
	mu   sync.Mutex
	rows []core.Record
}

func New() *Store {
	return &Store{}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the appended records.
func (s *Store) Rows() []core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record(nil), s.rows...)
}
