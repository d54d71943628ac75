// Package query normalizes heterogeneous filter inputs into one query plan
// against the event store.
package query

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/engram/internal/model"
	"github.com/rcliao/engram/internal/store"
)

var relativeTimeRegex = regexp.MustCompile(`^(\d+)(m|h|d|w)$`)

var timeUnits = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseSince converts a relative or absolute time string to an ISO timestamp
// the store can compare lexicographically.
//
// Accepts "30m", "24h", "7d", "2w" relative to now, a date ("2026-02-20",
// start of day UTC), or an ISO datetime. Unrecognized strings pass through
// untouched and are left to the store's lexicographic comparison.
func ParseSince(since string) string {
	since = strings.TrimSpace(since)

	if m := relativeTimeRegex.FindStringSubmatch(since); m != nil {
		amount, _ := strconv.Atoi(m[1])
		dt := time.Now().UTC().Add(-time.Duration(amount) * timeUnits[m[2]])
		return dt.Format(time.RFC3339)
	}

	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339} {
		if dt, err := time.Parse(layout, since); err == nil {
			return dt.UTC().Format(time.RFC3339)
		}
	}

	return since
}

// ParseEventTypes parses a comma-separated, case-insensitive type list.
// Unknown tokens are a hard error, never silently dropped.
func ParseEventTypes(s string) ([]model.EventType, error) {
	var types []model.EventType
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		t, err := model.ParseEventType(tok)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// Params holds one query's raw inputs before normalization.
type Params struct {
	Text      string
	Types     []model.EventType
	AgentID   string
	Scope     string
	Since     string // raw, run through ParseSince
	RelatedTo string
	Limit     int
}

// Engine normalizes query parameters and delegates to the store. It holds no
// state of its own.
type Engine struct {
	store store.Store
}

func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// Execute runs a normalized query. A related-to lookup with no other filter
// takes the cheap path straight to QueryRelated.
func (e *Engine) Execute(ctx context.Context, p Params) ([]model.Event, error) {
	if p.RelatedTo != "" && p.Text == "" && len(p.Types) == 0 &&
		p.AgentID == "" && p.Scope == "" && p.Since == "" {
		return e.store.QueryRelated(ctx, p.RelatedTo, p.Limit)
	}

	since := ""
	if p.Since != "" {
		since = ParseSince(p.Since)
	}

	return e.store.QueryStructured(ctx, model.QueryFilter{
		Text:      p.Text,
		Types:     p.Types,
		AgentID:   p.AgentID,
		Scope:     p.Scope,
		Since:     since,
		RelatedTo: p.RelatedTo,
		Limit:     p.Limit,
	})
}
