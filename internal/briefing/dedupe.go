package briefing

import (
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/engram/internal/model"
)

// dedupeWindow is the maximum gap between consecutive edits that still
// counts as one burst. Exactly 30:00 collapses; 30:01 does not.
const dedupeWindow = 30 * time.Minute

type groupKey struct {
	file  string
	agent string
}

// deduplicateMutations collapses rapid edit bursts to the same file by the
// same agent into one synthetic roll-up event. Only mutations whose scope is
// exactly one file are eligible for grouping; multi-file and scopeless
// mutations pass through untouched.
func deduplicateMutations(mutations []model.Event) []model.Event {
	if len(mutations) == 0 {
		return mutations
	}

	// Group in first-seen key order so equal-timestamp output is stable.
	groups := map[groupKey][]model.Event{}
	var keys []groupKey
	var ungrouped []model.Event

	for _, e := range mutations {
		if len(e.Scope) == 1 {
			k := groupKey{file: e.Scope[0], agent: e.AgentID}
			if _, seen := groups[k]; !seen {
				keys = append(keys, k)
			}
			groups[k] = append(groups[k], e)
		} else {
			ungrouped = append(ungrouped, e)
		}
	}

	result := append([]model.Event{}, ungrouped...)

	for _, k := range keys {
		group := groups[k]
		if len(group) == 1 {
			result = append(result, group[0])
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp < group[j].Timestamp
		})

		var windows [][]model.Event
		current := []model.Event{group[0]}
		for _, e := range group[1:] {
			if withinWindow(current[len(current)-1].Timestamp, e.Timestamp) {
				current = append(current, e)
			} else {
				windows = append(windows, current)
				current = []model.Event{e}
			}
		}
		windows = append(windows, current)

		for _, window := range windows {
			if len(window) == 1 {
				result = append(result, window[0])
				continue
			}

			// The roll-up inherits the latest event's identity and carries
			// every collapsed id, preserving the audit trail.
			latest := window[len(window)-1]
			relatedIDs := make([]string, len(window))
			for i, e := range window {
				relatedIDs[i] = e.ID
			}
			result = append(result, model.Event{
				ID:        latest.ID,
				Timestamp: latest.Timestamp,
				Type:      latest.Type,
				AgentID:   latest.AgentID,
				Content: fmt.Sprintf("Modified %s (%d edits, %s-%s)",
					k.file, len(window),
					shortClock(window[0].Timestamp),
					shortClock(latest.Timestamp)),
				Scope:      latest.Scope,
				RelatedIDs: relatedIDs,
				Status:     latest.Status,
				Priority:   latest.Priority,
			})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	return result
}

// withinWindow compares seconds-truncated timestamps. Unparseable
// timestamps extend the current window rather than splitting it.
func withinWindow(prev, curr string) bool {
	prevDT, err1 := parseSeconds(prev)
	currDT, err2 := parseSeconds(curr)
	if err1 != nil || err2 != nil {
		return true
	}
	return currDT.Sub(prevDT) <= dedupeWindow
}

func parseSeconds(ts string) (time.Time, error) {
	if len(ts) > 19 {
		ts = ts[:19]
	}
	return time.Parse("2006-01-02T15:04:05", ts)
}

// shortClock extracts "HH:MM" from an ISO timestamp.
func shortClock(ts string) string {
	if len(ts) >= 16 {
		return ts[11:16]
	}
	return ts
}
