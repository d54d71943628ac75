package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing event, session, or checkpoint record.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable reports a database file that is missing,
	// unreadable, or not yet initialized. Project-level, unlike ErrNotFound.
	ErrStoreUnavailable = errors.New("cannot open store")

	// ErrContentTooLong reports event content over MaxContentLen characters.
	ErrContentTooLong = errors.New("content exceeds 2000 character limit")

	// ErrUnknownEventType reports an event type outside the closed set.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidStatus reports a status outside the closed set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPriority reports a priority outside the closed set.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrReasonRequired reports a resolve attempt without a reason.
	ErrReasonRequired = errors.New("resolved_reason is required to resolve an event")

	// ErrSupersederRequired reports a supersede attempt without the
	// superseding event's id.
	ErrSupersederRequired = errors.New("superseded_by event id is required to supersede an event")

	// ErrSessionEnded reports an end attempt on an already-ended session.
	ErrSessionEnded = errors.New("session is already ended")
)

// InvalidTransitionError reports a lifecycle status change that violates the
// state machine.
type InvalidTransitionError struct {
	EventID      string
	Current      Status
	Requested    Status
	SupersededBy string // set when Current is superseded
}

func (e *InvalidTransitionError) Error() string {
	if e.Current == StatusSuperseded {
		return fmt.Sprintf("event %s is superseded by %s and cannot transition to %s",
			e.EventID, e.SupersededBy, e.Requested)
	}
	return fmt.Sprintf("event %s cannot transition from %s to %s",
		e.EventID, e.Current, e.Requested)
}

// ValidateTransition checks an event lifecycle status change:
//
//	active    -> resolved | superseded
//	resolved  -> active (reopen)
//	superseded -> (terminal)
func ValidateTransition(e *Event, next Status) error {
	switch {
	case e.Status == StatusSuperseded:
		return &InvalidTransitionError{
			EventID: e.ID, Current: e.Status, Requested: next,
			SupersededBy: e.SupersededBy,
		}
	case next == StatusResolved && e.Status != StatusActive,
		next == StatusSuperseded && e.Status != StatusActive,
		next == StatusActive && e.Status != StatusResolved:
		return &InvalidTransitionError{EventID: e.ID, Current: e.Status, Requested: next}
	}
	return nil
}
