package records

import (
	"context"

	"spendbook/internal/core"
)

// Ports for the record access layer's outbound dependencies.
type (
	// Store persists expense records. Implementations must return
	// core.ErrNotFound for unknown ids and keep ListByOwner ordered by
	// date descending.
	Store interface {
		CreateRecord(ctx context.Context, r core.Record) (core.Record, error)
		GetRecord(ctx context.Context, id string) (core.Record, error)
		ListByOwner(ctx context.Context, owner string) ([]core.Record, error)
		UpdateRecord(ctx context.Context, r core.Record) (core.Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	// EventPublisher emits record lifecycle events for the export pipeline.
	// Publishing is best effort and never fails an operation.
	EventPublisher interface {
		PublishRecordEvent(ctx context.Context, action string, r core.Record) error
	}

	// Invalidator drops cached views for an owner after a mutation. The
	// HTTP server registers its list/summary caches here so a List issued
	// after a completed mutation observes the change.
	Invalidator interface {
		InvalidateOwner(owner string)
	}
)

// Record event actions published on successful mutations.
const (
	EventCreated = "record.created"
	EventUpdated = "record.updated"
	EventDeleted = "record.deleted"
)
