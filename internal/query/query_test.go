package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/engram/internal/model"
	"github.com/rcliao/engram/internal/store"
)

func TestParseSinceRelative(t *testing.T) {
	cases := []struct {
		input string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}

	for _, tc := range cases {
		got, err := time.Parse(time.RFC3339, ParseSince(tc.input))
		require.NoError(t, err, tc.input)
		diff := time.Since(got) - tc.want
		assert.Less(t, diff.Abs(), time.Minute, tc.input)
	}
}

func TestParseSinceAbsolute(t *testing.T) {
	assert.Equal(t, "2026-02-20T00:00:00Z", ParseSince("2026-02-20"))
	assert.Equal(t, "2026-02-20T14:30:00Z", ParseSince("2026-02-20T14:30:00"))
	assert.Equal(t, "2026-02-20T14:30:00Z", ParseSince("2026-02-20T14:30:00Z"))
	assert.Equal(t, "2026-02-20T13:30:00Z", ParseSince("2026-02-20T14:30:00+01:00"))
}

func TestParseSincePassthrough(t *testing.T) {
	// Unrecognized strings go to the store untouched; lexicographic
	// comparison there decides what they match.
	assert.Equal(t, "yesterday", ParseSince("yesterday"))
	assert.Equal(t, "", ParseSince("  "))
}

func TestParseEventTypes(t *testing.T) {
	types, err := ParseEventTypes("warning, Decision ,MUTATION")
	require.NoError(t, err)
	assert.Equal(t, []model.EventType{model.Warning, model.Decision, model.Mutation}, types)

	_, err = ParseEventTypes("warning,observation")
	assert.ErrorIs(t, err, model.ErrUnknownEventType)

	types, err = ParseEventTypes(",,")
	require.NoError(t, err)
	assert.Empty(t, types)
}

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Create(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewEngine(s), s
}

func TestExecuteRelatedFastPath(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	s.Insert(ctx, model.Event{ID: "evt-base", Type: model.Decision, AgentID: "a", Content: "base"})
	s.Insert(ctx, model.Event{ID: "evt-ref", Type: model.Outcome, AgentID: "a",
		Content: "follow-up", RelatedIDs: []string{"evt-base"}})

	results, err := engine.Execute(ctx, Params{RelatedTo: "evt-base"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "evt-ref", results[0].ID)
}

func TestExecuteRelatedCombinedWithFilters(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	s.Insert(ctx, model.Event{ID: "evt-base", Type: model.Decision, AgentID: "a", Content: "base"})
	s.Insert(ctx, model.Event{ID: "evt-out", Type: model.Outcome, AgentID: "a",
		Content: "outcome ref", RelatedIDs: []string{"evt-base"}})
	s.Insert(ctx, model.Event{ID: "evt-warn", Type: model.Warning, AgentID: "a",
		Content: "warning ref", RelatedIDs: []string{"evt-base"}})

	results, err := engine.Execute(ctx, Params{
		RelatedTo: "evt-base",
		Types:     []model.EventType{model.Warning},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "evt-warn", results[0].ID)
}

func TestExecuteNormalizesSince(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	old := time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC3339)
	s.Insert(ctx, model.Event{ID: "evt-old", Timestamp: old,
		Type: model.Discovery, AgentID: "a", Content: "old"})
	s.Insert(ctx, model.Event{ID: "evt-new",
		Type: model.Discovery, AgentID: "a", Content: "new"})

	results, err := engine.Execute(ctx, Params{Since: "24h"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "evt-new", results[0].ID)
}

func TestExecuteTextSearch(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	s.Insert(ctx, model.Event{Type: model.Discovery, AgentID: "a",
		Content: "scheduler starvation under load"})
	s.Insert(ctx, model.Event{Type: model.Discovery, AgentID: "a",
		Content: "cache invalidation order matters"})

	results, err := engine.Execute(ctx, Params{Text: "starvation"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "starvation")
}
