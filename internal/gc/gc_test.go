package gc

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

func newTestCollector(t *testing.T) (*Collector, *store.SQLiteStore, string) {
	t.Helper()
	engramDir := t.TempDir()
	s, err := store.Create(filepath.Join(engramDir, "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewCollector(s, engramDir), s, engramDir
}

func seedForArchival(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	old := time.Now().UTC().Add(-100 * 24 * time.Hour).Format(time.RFC3339)

	_, err := s.InsertBatch(ctx, []model.Event{
		{ID: "evt-old-mut", Timestamp: old, Type: model.Mutation, AgentID: "a", Content: "old edit"},
		{ID: "evt-old-out", Timestamp: old, Type: model.Outcome, AgentID: "a", Content: "old test run"},
		{ID: "evt-old-warn", Timestamp: old, Type: model.Warning, AgentID: "a", Content: "old warning"},
		{ID: "evt-old-dec", Timestamp: old, Type: model.Decision, AgentID: "a", Content: "old decision"},
		{ID: "evt-new-mut", Type: model.Mutation, AgentID: "a", Content: "recent edit"},
	})
	require.NoError(t, err)
}

func TestCollectDryRun(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCollector(t)
	seedForArchival(t, s)

	r, err := c.Collect(ctx, 90, true)
	require.NoError(t, err)
	assert.Equal(t, 2, r.WouldArchive)
	assert.Equal(t, 0, r.Archived)
	assert.Empty(t, r.ArchivePath)

	n, _ := s.Count(ctx)
	assert.Equal(t, 5, n, "dry run moves nothing")
}

func TestCollectArchivesOldMutationsAndOutcomes(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCollector(t)
	seedForArchival(t, s)

	r, err := c.Collect(ctx, 90, false)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Archived)
	require.NotEmpty(t, r.ArchivePath)

	// Warnings and decisions stay regardless of age; recent mutations stay.
	n, _ := s.Count(ctx)
	assert.Equal(t, 3, n)
	_, err = s.Get(ctx, "evt-old-warn")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "evt-old-dec")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "evt-new-mut")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "evt-old-mut")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// The archive is a regular store holding the moved events.
	archive, err := store.Open(r.ArchivePath)
	require.NoError(t, err)
	defer archive.Close()
	archived, _ := archive.Count(ctx)
	assert.Equal(t, 2, archived)
	moved, err := archive.Get(ctx, "evt-old-mut")
	require.NoError(t, err)
	assert.Equal(t, "old edit", moved.Content)
}

func TestCollectMonthlyArchivePath(t *testing.T) {
	ctx := context.Background()
	c, s, engramDir := newTestCollector(t)
	seedForArchival(t, s)

	r, err := c.Collect(ctx, 90, false)
	require.NoError(t, err)
	want := filepath.Join(engramDir, "archive", time.Now().UTC().Format("2006-01")+".db")
	assert.Equal(t, want, r.ArchivePath)
}

func TestCollectNothingToArchive(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCollector(t)

	_, err := s.Insert(ctx, model.Event{Type: model.Mutation, AgentID: "a", Content: "fresh"})
	require.NoError(t, err)

	r, err := c.Collect(ctx, 90, false)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Archived)
	assert.Empty(t, r.ArchivePath, "no archive file is created for an empty pass")
}
