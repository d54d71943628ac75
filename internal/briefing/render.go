package briefing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/engram/internal/format"
	"github.com/rcliao/engram/internal/model"
)

// Compact renders the briefing as token-efficient markdown for LLM context.
func (r *Result) Compact() string {
	lines := []string{
		fmt.Sprintf("# Engram Briefing — %s (%s UTC)",
			r.ProjectName, format.ShortTimestamp(r.GeneratedAt)),
		fmt.Sprintf("# %d events | %s", r.TotalEvents, r.TimeRange),
		"",
	}

	if len(r.ActiveSessions) > 0 {
		lines = append(lines, fmt.Sprintf("## Active Sessions (%d)", len(r.ActiveSessions)))
		for _, s := range r.ActiveSessions {
			lines = append(lines, format.Session(s))
		}
		lines = append(lines, "")
	}

	if len(r.PotentiallyStale) > 0 {
		lines = append(lines, fmt.Sprintf("## Possibly Stale (%d)", len(r.PotentiallyStale)))
		for _, e := range r.PotentiallyStale {
			lines = append(lines, "[POSSIBLY STALE] "+format.Event(e))
		}
		lines = append(lines, "")
	}

	sections := []struct {
		title  string
		events []model.Event
	}{
		{"Critical Warnings", r.CriticalWarnings},
		{"Focus-Relevant", r.FocusRelevant},
		{"Other Active", r.OtherActive},
		{"Recently Resolved", r.RecentlyResolved},
		{"Recent Changes", r.RecentMutations},
	}

	for _, sec := range sections {
		if len(sec.events) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("## %s (%d)", sec.title, len(sec.events)))
		for _, e := range sec.events {
			prefix := ""
			if sec.title == "Recently Resolved" && e.ResolvedReason != "" {
				prefix = fmt.Sprintf("[resolved: %s] ", e.ResolvedReason)
			}
			lines = append(lines, prefix+format.Event(e))
		}
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// JSON renders the full structured briefing.
func (r *Result) JSON() string {
	out := *r
	// Empty sections serialize as [] rather than null.
	for _, p := range []*[]model.Event{
		&out.CriticalWarnings, &out.FocusRelevant, &out.OtherActive,
		&out.RecentlyResolved, &out.RecentMutations, &out.PotentiallyStale,
	} {
		if *p == nil {
			*p = []model.Event{}
		}
	}
	if out.ActiveSessions == nil {
		out.ActiveSessions = []model.Session{}
	}
	b, _ := json.MarshalIndent(&out, "", "  ")
	return string(b)
}
