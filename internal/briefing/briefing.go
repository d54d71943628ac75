// Package briefing reconstitutes stored events into a token-efficient
// summary for a new agent session.
package briefing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/engram/internal/model"
	"github.com/rcliao/engram/internal/query"
	"github.com/rcliao/engram/internal/store"
)

// Per-type candidate caps. These bound worst-case briefing size regardless
// of project activity volume.
const (
	maxWarnings    = 20
	maxDecisions   = 15
	maxMutations   = 20
	maxDiscoveries = 10
	maxOutcomes    = 5
	maxResolved    = 10
)

// DefaultResolvedWindowHours is the lookback for the recently-resolved
// section.
const DefaultResolvedWindowHours = 48

var priorityOrder = map[model.Priority]int{
	model.PriorityCritical: 0,
	model.PriorityHigh:     1,
	model.PriorityNormal:   2,
	model.PriorityLow:      3,
}

// Result is a bucketed briefing. Sections 1-3 are mutually exclusive: an
// active event appears in exactly one of CriticalWarnings, FocusRelevant,
// and OtherActive.
type Result struct {
	ProjectName      string          `json:"project_name"`
	GeneratedAt      string          `json:"generated_at"`
	TotalEvents      int             `json:"total_events"`
	TimeRange        string          `json:"time_range"`
	CriticalWarnings []model.Event   `json:"critical_warnings"`
	FocusRelevant    []model.Event   `json:"focus_relevant"`
	OtherActive      []model.Event   `json:"other_active"`
	RecentlyResolved []model.Event   `json:"recently_resolved"`
	RecentMutations  []model.Event   `json:"recent_mutations"`
	PotentiallyStale []model.Event   `json:"potentially_stale"`
	ActiveSessions   []model.Session `json:"active_sessions"`
}

// Params holds briefing inputs. Zero values take defaults: Since = 7 days
// ago, ResolvedWindowHours = 48.
type Params struct {
	Scope               string
	Since               string // raw, run through query.ParseSince
	Focus               string
	ResolvedWindowHours int
}

// Generator produces briefings from the event store.
type Generator struct {
	store store.Store
}

func NewGenerator(s store.Store) *Generator {
	return &Generator{store: s}
}

// Generate builds a briefing:
//
//  1. fetch capped active candidates per type
//  2. deduplicate mutation bursts
//  3. flag potentially stale warnings/decisions
//  4. assign sections (critical / focus-relevant / other-active)
//  5. fetch recently resolved
//  6. sort each section by recency, then priority (two stable passes)
func (g *Generator) Generate(ctx context.Context, p Params) (*Result, error) {
	sinceISO := g.defaultSince()
	if p.Since != "" {
		sinceISO = query.ParseSince(p.Since)
	}
	resolvedWindow := p.ResolvedWindowHours
	if resolvedWindow <= 0 {
		resolvedWindow = DefaultResolvedWindowHours
	}

	fetch := func(t model.EventType, limit int) ([]model.Event, error) {
		return g.store.RecentByType(ctx, store.RecentParams{
			Type: t, Limit: limit, Since: sinceISO, Scope: p.Scope,
			Status: model.StatusActive,
		})
	}

	warnings, err := fetch(model.Warning, maxWarnings)
	if err != nil {
		return nil, err
	}
	decisions, err := fetch(model.Decision, maxDecisions)
	if err != nil {
		return nil, err
	}
	mutations, err := fetch(model.Mutation, maxMutations)
	if err != nil {
		return nil, err
	}
	discoveries, err := fetch(model.Discovery, maxDiscoveries)
	if err != nil {
		return nil, err
	}
	outcomes, err := fetch(model.Outcome, maxOutcomes)
	if err != nil {
		return nil, err
	}

	mutations = deduplicateMutations(mutations)

	// Staleness runs against the deduplicated list: a mutation collapsed
	// into a roll-up is represented by the roll-up's timestamp.
	warningsAndDecisions := append(append([]model.Event{}, warnings...), decisions...)
	stale := detectStale(warningsAndDecisions, mutations)

	allActive := concat(warnings, decisions, discoveries, outcomes)

	// Section 1: critical-priority warnings plus global (unscoped) warnings,
	// which always surface regardless of focus.
	var criticalWarnings []model.Event
	criticalIDs := map[string]bool{}
	for _, e := range warnings {
		if e.Priority == model.PriorityCritical || len(e.Scope) == 0 {
			criticalWarnings = append(criticalWarnings, e)
			criticalIDs[e.ID] = true
		}
	}

	// Section 2: focus-relevant, only when a focus path was supplied.
	var focusRelevant []model.Event
	focusIDs := map[string]bool{}
	if p.Focus != "" {
		for _, e := range allActive {
			if criticalIDs[e.ID] {
				continue
			}
			if scopeRelevance(e, p.Focus) > 0 {
				focusRelevant = append(focusRelevant, e)
				focusIDs[e.ID] = true
			}
		}
		sortByPriorityRecency(focusRelevant)
	}

	// Section 3: everything remaining.
	var otherActive []model.Event
	for _, e := range allActive {
		if !criticalIDs[e.ID] && !focusIDs[e.ID] {
			otherActive = append(otherActive, e)
		}
	}
	sortByPriorityRecency(otherActive)

	// Section 4: recently resolved, independent of the active sections.
	resolvedSince := time.Now().UTC().
		Add(-time.Duration(resolvedWindow) * time.Hour).Format(time.RFC3339)
	recentlyResolved, err := g.store.RecentResolved(ctx, resolvedSince, maxResolved)
	if err != nil {
		return nil, err
	}

	sortByPriorityRecency(criticalWarnings)

	activeSessions, err := g.store.ListSessions(ctx, store.SessionFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	projectName, err := g.store.GetMeta(ctx, "project_name")
	if err != nil {
		return nil, err
	}
	if projectName == "" {
		projectName = "unknown"
	}
	total, err := g.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	last, err := g.store.LastActivity(ctx)
	if err != nil {
		return nil, err
	}

	firstTS := "unknown"
	if len(sinceISO) >= 10 {
		firstTS = sinceISO[:10]
	}
	lastTS := "now"
	if len(last) >= 10 {
		lastTS = last[:10]
	}

	return &Result{
		ProjectName:      projectName,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		TotalEvents:      total,
		TimeRange:        firstTS + " to " + lastTS,
		CriticalWarnings: criticalWarnings,
		FocusRelevant:    focusRelevant,
		OtherActive:      otherActive,
		RecentlyResolved: recentlyResolved,
		RecentMutations:  mutations,
		PotentiallyStale: stale,
		ActiveSessions:   activeSessions,
	}, nil
}

func (g *Generator) defaultSince() string {
	return time.Now().UTC().Add(-7 * 24 * time.Hour).Format(time.RFC3339)
}

// scopeRelevance scores an event's scope against a focus path:
//
//	3 = exact scope match
//	2 = event scope is an ancestor of focus
//	1 = event scope is a descendant of focus
//	0 = no prefix relation (excluded)
//
// The first matching scope entry wins.
func scopeRelevance(e model.Event, focusPath string) int {
	for _, s := range e.Scope {
		switch {
		case s == focusPath:
			return 3
		case strings.HasPrefix(focusPath, s):
			return 2
		case strings.HasPrefix(s, focusPath):
			return 1
		}
	}
	return 0
}

// sortByPriorityRecency orders events by priority (critical first) then
// recency (newest first), as two stable sorts: timestamp descending first,
// then priority ascending. The priority pass is stable, so priority ties
// keep the recency order. A single composite comparator is not equivalent
// when timestamps collide after rounding.
func sortByPriorityRecency(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})
	sort.SliceStable(events, func(i, j int) bool {
		return priorityRank(events[i].Priority) < priorityRank(events[j].Priority)
	})
}

func priorityRank(p model.Priority) int {
	if r, ok := priorityOrder[p]; ok {
		return r
	}
	return priorityOrder[model.PriorityNormal]
}

// detectStale finds warnings/decisions whose scope overlaps a strictly later
// mutation. Scopeless events are never flagged: there is nothing to
// correlate against.
func detectStale(warningsAndDecisions, mutations []model.Event) []model.Event {
	var stale []model.Event

	for _, e := range warningsAndDecisions {
		if len(e.Scope) == 0 {
			continue
		}
		scopes := map[string]bool{}
		for _, s := range e.Scope {
			scopes[s] = true
		}

		for _, m := range mutations {
			if len(m.Scope) == 0 || m.Timestamp <= e.Timestamp {
				continue
			}
			if overlaps(scopes, m.Scope) {
				stale = append(stale, e)
				break
			}
		}
	}
	return stale
}

func overlaps(set map[string]bool, scope []string) bool {
	for _, s := range scope {
		if set[s] {
			return true
		}
	}
	return false
}

func concat(lists ...[]model.Event) []model.Event {
	var out []model.Event
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
