// Package checkpoint links externally authored context snapshot files into
// the event store: save records a pointer (optionally enriching the file
// with recent events), restore combines the saved context with a briefing of
// activity since.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rcliao/engram/internal/briefing"
	"github.com/rcliao/engram/internal/format"
	"github.com/rcliao/engram/internal/model"
	"github.com/rcliao/engram/internal/store"
)

// Markers delimiting engram-injected content inside a context file, so a
// later enrichment can replace an earlier one.
const (
	markerStart = "<!-- engram:start -->"
	markerEnd   = "<!-- engram:end -->"
)

// enrichableSections maps recognized context-file headings to the event type
// appended under them.
var enrichableSections = []struct {
	name string
	typ  model.EventType
}{
	{"Key Design Decisions", model.Decision},
	{"Design Decisions", model.Decision},
	{"Known Issues", model.Warning},
	{"Technical Debt", model.Warning},
	{"Known Issues / Technical Debt", model.Warning},
	{"Recent Discoveries", model.Discovery},
	{"Discoveries", model.Discovery},
}

// Engine handles context file enrichment and checkpoint recording.
type Engine struct {
	store store.Store
}

func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// Save records a checkpoint for a context file. Enrichment is best-effort:
// if it fails, the checkpoint is still recorded without enriched sections.
func (e *Engine) Save(ctx context.Context, filePath, agentID string, enrich bool, sessionID string) (model.Checkpoint, error) {
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		return model.Checkpoint{}, fmt.Errorf("context file not found: %s: %w", filePath, model.ErrNotFound)
	}

	var enriched []string
	if enrich {
		enriched, _ = e.enrichFile(ctx, filePath)
	}

	return e.store.SaveCheckpoint(ctx, model.Checkpoint{
		FilePath:         filePath,
		AgentID:          agentID,
		EnrichedSections: enriched,
		SessionID:        sessionID,
	})
}

// Restore generates a combined briefing: the saved context file followed by
// recent activity since the checkpoint. An empty checkpointID uses the
// latest checkpoint; with no checkpoint at all, only the dynamic briefing is
// produced.
func (e *Engine) Restore(ctx context.Context, checkpointID, since, scope, focus string) (string, error) {
	var cp model.Checkpoint
	var err error
	if checkpointID != "" {
		cp, err = e.store.GetCheckpoint(ctx, checkpointID)
		if err != nil {
			return "", err
		}
	} else {
		cp, err = e.store.GetLatestCheckpoint(ctx)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return "", err
		}
	}

	var sections []string

	if cp.ID != "" {
		if content, readErr := os.ReadFile(cp.FilePath); readErr == nil {
			sections = append(sections,
				fmt.Sprintf("# Saved Context (checkpoint %s, %s UTC)",
					cp.ID, format.ShortTimestamp(cp.CreatedAt)),
				"",
				string(content))
		} else {
			sections = append(sections,
				"# Checkpoint "+cp.ID,
				"Warning: Context file not found at "+cp.FilePath)
		}
		if since == "" {
			since = cp.CreatedAt
		}
	} else {
		sections = append(sections,
			"# No checkpoint found",
			"Showing full dynamic briefing instead.")
	}

	sections = append(sections, "", "---", "", "# Activity Since Checkpoint", "")

	gen := briefing.NewGenerator(e.store)
	result, err := gen.Generate(ctx, briefing.Params{Scope: scope, Since: since, Focus: focus})
	if err != nil {
		return "", err
	}
	sections = append(sections, result.Compact())

	return strings.Join(sections, "\n"), nil
}

// enrichFile appends recent events under recognized headings of a context
// markdown file. Returns the names of sections that were enriched.
func (e *Engine) enrichFile(ctx context.Context, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(raw)

	var enriched []string
	for _, sec := range enrichableSections {
		pattern := regexp.MustCompile(`(?s)(## ` + regexp.QuoteMeta(sec.name) + `.*?)(\n## |\z)`)
		m := pattern.FindStringSubmatchIndex(content)
		if m == nil {
			continue
		}
		sectionText := content[m[2]:m[3]]

		events, err := e.store.RecentByType(ctx, store.RecentParams{
			Type: sec.typ, Limit: 10, Status: model.StatusActive,
		})
		if err != nil {
			return enriched, err
		}
		if len(events) == 0 {
			continue
		}

		// Skip events already mentioned in the section.
		var fresh []model.Event
		for _, ev := range events {
			check := ev.Content
			if len(check) > 80 {
				check = check[:80]
			}
			if !strings.Contains(sectionText, check) {
				fresh = append(fresh, ev)
			}
		}
		if len(fresh) == 0 {
			continue
		}

		// Replace any previous enrichment block for this section.
		cleanup := regexp.MustCompile(`(?s)(## ` + regexp.QuoteMeta(sec.name) + `.*?)` +
			regexp.QuoteMeta(markerStart) + `.*?` + regexp.QuoteMeta(markerEnd) + `\n?`)
		content = cleanup.ReplaceAllString(content, "$1")

		lines := []string{markerStart,
			fmt.Sprintf("*Enriched by Engram (%d events):*", len(fresh))}
		for _, ev := range fresh {
			lines = append(lines, "- "+format.Event(ev))
		}
		lines = append(lines, markerEnd)
		block := strings.Join(lines, "\n")

		m = pattern.FindStringSubmatchIndex(content)
		if m != nil {
			insert := m[3]
			content = content[:insert] + "\n" + block + "\n" + content[insert:]
			enriched = append(enriched, sec.name)
		}
	}

	if len(enriched) > 0 {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	return enriched, nil
}
