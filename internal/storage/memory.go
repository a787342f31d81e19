package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendbook/internal/core"
	"spendbook/internal/identity"
)

// MemoryStore is an in-memory implementation of records.Store and
// identity.Store for tests and the "memory" backend.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]core.Record
	users    map[string]identity.User // by id
	hashes   map[string]string        // username -> password hash
	sessions map[string]identity.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]core.Record),
		users:    make(map[string]identity.User),
		hashes:   make(map[string]string),
		sessions: make(map[string]identity.Session),
	}
}

func (s *MemoryStore) CreateRecord(_ context.Context, rec core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.NewString()
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) GetRecord(_ context.Context, id string) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return core.Record{}, core.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Record
	for _, rec := range s.records {
		if rec.Owner == owner {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

func (s *MemoryStore) UpdateRecord(_ context.Context, rec core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.ID]
	if !ok {
		return core.Record{}, core.ErrNotFound
	}
	existing.Text = rec.Text
	existing.Amount = rec.Amount
	existing.Category = rec.Category
	s.records[rec.ID] = existing
	return existing, nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[username]; ok {
		return identity.User{}, identity.ErrUserExists
	}
	user := identity.User{ID: uuid.NewString(), Username: username, CreatedAt: time.Now().UTC()}
	s.users[user.ID] = user
	s.hashes[username] = passwordHash
	return user, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (identity.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[username]
	if !ok {
		return identity.User{}, "", identity.ErrInvalidCredentials
	}
	for _, u := range s.users {
		if u.Username == username {
			return u, hash, nil
		}
	}
	return identity.User{}, "", identity.ErrInvalidCredentials
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return identity.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) CreateSession(_ context.Context, sess identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, token string) (identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return identity.Session{}, errors.New("session not found")
	}
	return sess, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for token, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}
