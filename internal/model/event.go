// Package model defines the core event data types.
package model

import "fmt"

// EventType classifies an observation. Closed set.
type EventType string

const (
	Discovery EventType = "discovery"
	Decision  EventType = "decision"
	Warning   EventType = "warning"
	Mutation  EventType = "mutation"
	Outcome   EventType = "outcome"
)

// Status is an event's lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusResolved   Status = "resolved"
	StatusSuperseded Status = "superseded"
)

// Priority orders events within briefing sections.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// MaxContentLen is the hard cap on event content, enforced at the store
// boundary.
const MaxContentLen = 2000

// Event is one observation by one agent. Immutable after insert except for
// the lifecycle fields (Status, ResolvedReason, SupersededBy).
type Event struct {
	ID             string    `json:"id"`
	Timestamp      string    `json:"timestamp"`
	Type           EventType `json:"event_type"`
	AgentID        string    `json:"agent_id"`
	Content        string    `json:"content"`
	Scope          []string  `json:"scope,omitempty"`
	RelatedIDs     []string  `json:"related_ids,omitempty"`
	Status         Status    `json:"status"`
	Priority       Priority  `json:"priority"`
	ResolvedReason string    `json:"resolved_reason,omitempty"`
	SupersededBy   string    `json:"superseded_by,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
}

// Session is a declared span of agent work. Active while EndedAt is empty.
type Session struct {
	ID          string   `json:"id"`
	AgentID     string   `json:"agent_id"`
	Focus       string   `json:"focus"`
	Scope       []string `json:"scope,omitempty"`
	Description string   `json:"description,omitempty"`
	StartedAt   string   `json:"started_at"`
	EndedAt     string   `json:"ended_at,omitempty"`
}

// Checkpoint points at an externally authored context snapshot file.
type Checkpoint struct {
	ID                   string   `json:"id"`
	FilePath             string   `json:"file_path"`
	AgentID              string   `json:"agent_id"`
	CreatedAt            string   `json:"created_at"`
	EventCountAtCreation int      `json:"event_count_at_creation"`
	EnrichedSections     []string `json:"enriched_sections,omitempty"`
	SessionID            string   `json:"session_id,omitempty"`
}

// QueryFilter combines structured query criteria with AND semantics.
// Zero-valued fields are no-ops.
type QueryFilter struct {
	Text      string
	Types     []EventType
	AgentID   string
	Scope     string
	Since     string
	RelatedTo string
	Limit     int
}

// ParseEventType validates an event type string.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case Discovery, Decision, Warning, Mutation, Outcome:
		return EventType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusResolved, StatusSuperseded:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q (must be active, resolved, or superseded)", ErrInvalidStatus, s)
}

// ParsePriority validates a priority string.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return Priority(s), nil
	}
	return "", fmt.Errorf("%w: %q (must be critical, high, normal, or low)", ErrInvalidPriority, s)
}
