package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/engram/internal/model"
	"github.com/rcliao/engram/internal/store"
)

const contextMarkdown = `# Project Context

## Architecture

Single binary, SQLite store.

## Known Issues

- flaky TestFoo on CI

## Key Design Decisions

- events are append-only
`

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Create(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewEngine(s), s
}

func writeContextFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "context.md")
	require.NoError(t, os.WriteFile(path, []byte(contextMarkdown), 0o644))
	return path
}

func TestSaveMissingFile(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.Save(ctx, "nope/context.md", "claude-1", false, "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSaveWithoutEnrichment(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	path := writeContextFile(t)

	s.Insert(ctx, model.Event{Type: model.Warning, AgentID: "a", Content: "unsaved warning"})

	cp, err := engine.Save(ctx, path, "claude-1", false, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cp.ID, "chk-"))
	assert.Empty(t, cp.EnrichedSections)

	raw, _ := os.ReadFile(path)
	assert.Equal(t, contextMarkdown, string(raw), "file is untouched without enrichment")
}

func TestSaveEnrichesRecognizedSections(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	path := writeContextFile(t)

	s.Insert(ctx, model.Event{Type: model.Warning, AgentID: "claude-1",
		Content: "session sweep races with end"})
	s.Insert(ctx, model.Event{Type: model.Decision, AgentID: "claude-1",
		Content: "checkpoints live in the meta table"})

	cp, err := engine.Save(ctx, path, "claude-1", true, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Known Issues", "Key Design Decisions"}, cp.EnrichedSections)

	raw, _ := os.ReadFile(path)
	content := string(raw)
	assert.Contains(t, content, "<!-- engram:start -->")
	assert.Contains(t, content, "session sweep races with end")
	assert.Contains(t, content, "checkpoints live in the meta table")
	// The warning lands under Known Issues, before the next heading.
	issuesIdx := strings.Index(content, "## Known Issues")
	decisionsIdx := strings.Index(content, "## Key Design Decisions")
	warnIdx := strings.Index(content, "session sweep races with end")
	assert.Greater(t, warnIdx, issuesIdx)
	assert.Less(t, warnIdx, decisionsIdx)
}

func TestSaveEnrichmentReplacesPreviousBlock(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	path := writeContextFile(t)

	s.Insert(ctx, model.Event{Type: model.Warning, AgentID: "a", Content: "first warning"})
	_, err := engine.Save(ctx, path, "claude-1", true, "")
	require.NoError(t, err)

	s.Insert(ctx, model.Event{Type: model.Warning, AgentID: "a", Content: "second warning"})
	_, err = engine.Save(ctx, path, "claude-1", true, "")
	require.NoError(t, err)

	content, _ := os.ReadFile(path)
	assert.Equal(t, 1, strings.Count(string(content), "<!-- engram:start -->"),
		"re-enrichment replaces the old block instead of stacking")
	assert.Contains(t, string(content), "second warning")
}

func TestRestoreWithCheckpoint(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	path := writeContextFile(t)

	cp, err := engine.Save(ctx, path, "claude-1", false, "")
	require.NoError(t, err)

	s.Insert(ctx, model.Event{Type: model.Discovery, AgentID: "a",
		Content: "found after the checkpoint"})

	out, err := engine.Restore(ctx, "", "", "", "")
	require.NoError(t, err)
	assert.Contains(t, out, "# Saved Context (checkpoint "+cp.ID)
	assert.Contains(t, out, "Single binary, SQLite store.")
	assert.Contains(t, out, "# Activity Since Checkpoint")
	assert.Contains(t, out, "found after the checkpoint")
}

func TestRestoreByID(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	path := writeContextFile(t)

	first, err := engine.Save(ctx, path, "claude-1", false, "")
	require.NoError(t, err)
	_, err = engine.Save(ctx, path, "claude-1", false, "")
	require.NoError(t, err)

	out, err := engine.Restore(ctx, first.ID, "", "", "")
	require.NoError(t, err)
	assert.Contains(t, out, first.ID)

	_, err = engine.Restore(ctx, "chk-nope", "", "", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRestoreWithoutCheckpoint(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	s.Insert(ctx, model.Event{Type: model.Warning, AgentID: "a", Content: "still here"})

	out, err := engine.Restore(ctx, "", "", "", "")
	require.NoError(t, err)
	assert.Contains(t, out, "# No checkpoint found")
	assert.Contains(t, out, "still here")
}

func TestRestoreMissingContextFile(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	path := writeContextFile(t)

	cp, err := engine.Save(ctx, path, "claude-1", false, "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	out, err := engine.Restore(ctx, "", "", "", "")
	require.NoError(t, err)
	assert.Contains(t, out, "# Checkpoint "+cp.ID)
	assert.Contains(t, out, "Context file not found at "+path)
}
