// Package store provides the event storage interface and SQLite implementation.
package store

import (
	"context"

	"github.com/rcliao/engram/internal/model"
)

// RecentParams holds parameters for fetching recent events of one type.
type RecentParams struct {
	Type   model.EventType
	Limit  int
	Since  string       // ISO timestamp, inclusive lower bound
	Scope  string       // path prefix/substring match
	Status model.Status // empty = any status
}

// SessionFilter holds parameters for listing sessions.
type SessionFilter struct {
	ActiveOnly bool
	AgentID    string
}

// Store defines the event storage contract. All other components sit on top
// of this interface and never touch the database directly.
type Store interface {
	// Insert persists a single event, assigning id/timestamp if missing.
	// The full-text index is updated in the same transaction.
	Insert(ctx context.Context, e model.Event) (model.Event, error)

	// InsertBatch persists events in one transaction, all or nothing.
	InsertBatch(ctx context.Context, events []model.Event) (int, error)

	// Get fetches a single event by id.
	Get(ctx context.Context, id string) (model.Event, error)

	// UpdateStatus applies a lifecycle transition and returns the updated
	// event. Resolving requires a reason; superseding requires the
	// superseding event's id.
	UpdateStatus(ctx context.Context, id string, status model.Status, resolvedReason, supersededBy string) (model.Event, error)

	// QueryFTS runs a full-text match. Results are ordered by recency, not
	// relevance: matching is a filter, browsing order is always newest first.
	QueryFTS(ctx context.Context, text string, limit int) ([]model.Event, error)

	// QueryStructured combines filters with AND semantics. A text-only
	// filter degenerates to QueryFTS.
	QueryStructured(ctx context.Context, f model.QueryFilter) ([]model.Event, error)

	// RecentByType is the briefing generator's primary access pattern.
	RecentByType(ctx context.Context, p RecentParams) ([]model.Event, error)

	// RecentResolved fetches resolved events since the given timestamp.
	RecentResolved(ctx context.Context, since string, limit int) ([]model.Event, error)

	// QueryRelated finds events whose related ids contain eventID, matched
	// exactly as a list element.
	QueryRelated(ctx context.Context, eventID string, limit int) ([]model.Event, error)

	// EventsBefore fetches events of the given types older than cutoff,
	// oldest first. Used by the archiver.
	EventsBefore(ctx context.Context, types []model.EventType, cutoff string) ([]model.Event, error)

	// DeleteEvents removes events and their outgoing links by id.
	DeleteEvents(ctx context.Context, ids []string) error

	Count(ctx context.Context) (int, error)
	LastActivity(ctx context.Context) (string, error)
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	InsertSession(ctx context.Context, s model.Session) (model.Session, error)
	GetSession(ctx context.Context, id string) (model.Session, error)
	EndSession(ctx context.Context, id string) (model.Session, error)
	GetActiveSession(ctx context.Context, agentID string) (model.Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, error)
	CleanupStaleSessions(ctx context.Context, timeoutHours int) (int, error)

	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) (model.Checkpoint, error)
	GetCheckpoint(ctx context.Context, id string) (model.Checkpoint, error)
	GetLatestCheckpoint(ctx context.Context) (model.Checkpoint, error)

	Close() error
}
