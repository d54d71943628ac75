// Package format renders events, sessions, and checkpoints in two encodings:
// a dense single-line compact form for terminals and LLM context, and JSON
// for programmatic consumers.
package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/engram/internal/model"
)

// ShortTimestamp converts an ISO timestamp to "2026-02-23 14:30".
func ShortTimestamp(ts string) string {
	if len(ts) > 16 {
		ts = ts[:16]
	}
	return strings.Replace(ts, "T", " ", 1)
}

// ScopeString formats a scope list for compact output.
func ScopeString(scope []string) string {
	switch len(scope) {
	case 0:
		return ""
	case 1:
		return scope[0]
	}
	return fmt.Sprintf("%s +%d more", scope[0], len(scope)-1)
}

// Event renders one event on a single line:
//
//	[ts] [type] [PRIORITY?] [agent] scope — content (links: n)?
func Event(e model.Event) string {
	ts := ShortTimestamp(e.Timestamp)
	scopePart := " —"
	if s := ScopeString(e.Scope); s != "" {
		scopePart = " " + s + " —"
	}
	links := ""
	if len(e.RelatedIDs) > 0 {
		links = fmt.Sprintf(" (links: %d)", len(e.RelatedIDs))
	}
	priorityTag := ""
	if e.Priority != "" && e.Priority != model.PriorityNormal {
		priorityTag = " [" + strings.ToUpper(string(e.Priority)) + "]"
	}
	return fmt.Sprintf("[%s] [%s]%s [%s]%s %s%s",
		ts, e.Type, priorityTag, e.AgentID, scopePart, e.Content, links)
}

// Events renders a list of events, one line each.
func Events(events []model.Event) string {
	if len(events) == 0 {
		return "(no events)"
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = Event(e)
	}
	return strings.Join(lines, "\n")
}

// EventsJSON renders a JSON array of events.
func EventsJSON(events []model.Event) string {
	if events == nil {
		events = []model.Event{}
	}
	b, _ := json.MarshalIndent(events, "", "  ")
	return string(b)
}

// RelativeTime converts an ISO timestamp to "2h ago", "30m ago".
func RelativeTime(ts string) string {
	dt, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ShortTimestamp(ts)
	}
	seconds := int(time.Since(dt).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	}
	return fmt.Sprintf("%dd ago", seconds/86400)
}

// Session renders one session on a single line.
func Session(s model.Session) string {
	scopePart := ""
	if len(s.Scope) > 0 {
		scopePart = " (" + ScopeString(s.Scope) + ")"
	}
	status := "active"
	if s.EndedAt != "" {
		status = "ended"
	}
	desc := ""
	if s.Description != "" {
		desc = " — " + s.Description
	}
	return fmt.Sprintf("[%s] %s: %q%s — %s, started %s%s",
		s.ID, s.AgentID, s.Focus, scopePart, status, RelativeTime(s.StartedAt), desc)
}

// Sessions renders a list of sessions, one line each.
func Sessions(sessions []model.Session) string {
	if len(sessions) == 0 {
		return "(no sessions)"
	}
	lines := make([]string, len(sessions))
	for i, s := range sessions {
		lines[i] = Session(s)
	}
	return strings.Join(lines, "\n")
}

// SessionsJSON renders a JSON array of sessions.
func SessionsJSON(sessions []model.Session) string {
	if sessions == nil {
		sessions = []model.Session{}
	}
	b, _ := json.MarshalIndent(sessions, "", "  ")
	return string(b)
}

// Checkpoint renders one checkpoint on a single line.
func Checkpoint(cp model.Checkpoint) string {
	enriched := ""
	if len(cp.EnrichedSections) > 0 {
		enriched = " (enriched: " + strings.Join(cp.EnrichedSections, ", ") + ")"
	}
	return fmt.Sprintf("[%s] [%s] %s%s",
		cp.ID, ShortTimestamp(cp.CreatedAt), cp.FilePath, enriched)
}

// CheckpointJSON renders a checkpoint as JSON.
func CheckpointJSON(cp model.Checkpoint) string {
	b, _ := json.MarshalIndent(cp, "", "  ")
	return string(b)
}
