// Package records implements the record access layer: create, list, update
// and delete of expense records, each scoped to the resolved principal.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendbook/internal/core"
	"spendbook/internal/identity"
)

// Service enforces ownership and validation around the record store. Every
// operation resolves the principal first; without one it fails with
// core.ErrUnauthenticated and has no side effect.
type Service struct {
	store        Store
	resolver     identity.Resolver
	events       EventPublisher // optional
	invalidators []Invalidator
}

func NewService(store Store, resolver identity.Resolver, events EventPublisher) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		events:   events,
	}
}

// RegisterInvalidator adds a cache invalidator notified after every
// successful mutation.
func (s *Service) RegisterInvalidator(inv Invalidator) {
	s.invalidators = append(s.invalidators, inv)
}

// Create validates the input, normalizes the date to midday UTC and persists
// a new record owned by the principal.
func (s *Service) Create(ctx context.Context, text string, amount core.Money, category, date string) (core.Record, error) {
	owner, err := s.resolver.Resolve(ctx)
	if err != nil {
		return core.Record{}, core.ErrUnauthenticated
	}

	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.Record{}, err
	}
	day, err := core.ParseDate(date)
	if err != nil {
		return core.Record{}, err
	}

	rec := core.Record{
		Owner:    owner,
		Text:     text,
		Amount:   amount,
		Category: cat,
		Date:     day,
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	created, err := s.store.CreateRecord(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: create record: %v", core.ErrPersistence, err)
	}

	slog.InfoContext(ctx, "Record created",
		"record_id", created.ID,
		"owner", created.Owner,
		"category", created.Category,
		"amount_cents", created.Amount.Cents)

	s.afterMutation(ctx, EventCreated, created)
	return created, nil
}

// List returns all records owned by the principal, date descending. An empty
// result is not an error.
func (s *Service) List(ctx context.Context) ([]core.Record, error) {
	owner, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, core.ErrUnauthenticated
	}

	recs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", core.ErrPersistence, err)
	}
	return recs, nil
}

// Update changes text, amount and category of an owned record. Owner, id and
// date are never altered by this path.
func (s *Service) Update(ctx context.Context, id, text string, amount core.Money, category string) (core.Record, error) {
	owner, err := s.resolver.Resolve(ctx)
	if err != nil {
		return core.Record{}, core.ErrUnauthenticated
	}

	existing, err := s.loadOwned(ctx, id, owner)
	if err != nil {
		return core.Record{}, err
	}

	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.Record{}, err
	}

	updated := existing
	updated.Text = text
	updated.Amount = amount
	updated.Category = cat
	if err := updated.Validate(); err != nil {
		return core.Record{}, err
	}

	persisted, err := s.store.UpdateRecord(ctx, updated)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Record{}, core.ErrNotFound
		}
		return core.Record{}, fmt.Errorf("%w: update record: %v", core.ErrPersistence, err)
	}

	slog.InfoContext(ctx, "Record updated",
		"record_id", persisted.ID,
		"owner", persisted.Owner,
		"category", persisted.Category)

	s.afterMutation(ctx, EventUpdated, persisted)
	return persisted, nil
}

// Delete removes an owned record permanently. A second delete of the same id
// fails with core.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	owner, err := s.resolver.Resolve(ctx)
	if err != nil {
		return core.ErrUnauthenticated
	}

	existing, err := s.loadOwned(ctx, id, owner)
	if err != nil {
		return err
	}

	if err := s.store.DeleteRecord(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return fmt.Errorf("%w: delete record: %v", core.ErrPersistence, err)
	}

	slog.InfoContext(ctx, "Record deleted", "record_id", id, "owner", owner)

	s.afterMutation(ctx, EventDeleted, existing)
	return nil
}

// loadOwned fetches a record and checks ownership: unknown ids map to
// ErrNotFound, foreign records to ErrForbidden.
func (s *Service) loadOwned(ctx context.Context, id, owner string) (core.Record, error) {
	if id == "" {
		return core.Record{}, core.ErrNotFound
	}
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Record{}, core.ErrNotFound
		}
		return core.Record{}, fmt.Errorf("%w: load record: %v", core.ErrPersistence, err)
	}
	if rec.Owner != owner {
		return core.Record{}, core.ErrForbidden
	}
	return rec, nil
}

func (s *Service) afterMutation(ctx context.Context, action string, rec core.Record) {
	for _, inv := range s.invalidators {
		inv.InvalidateOwner(rec.Owner)
	}

	if s.events == nil {
		return
	}
	if err := s.events.PublishRecordEvent(ctx, action, rec); err != nil {
		// Export is asynchronous best effort; the mutation already
		// succeeded.
		slog.ErrorContext(ctx, "Failed to publish record event",
			"action", action,
			"record_id", rec.ID,
			"error", err)
	}
}
