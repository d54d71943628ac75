package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/engram/internal/model"
)

func TestSaveAndGetCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Insert(ctx, model.Event{Type: model.Discovery, AgentID: "a", Content: "x"})
	s.Insert(ctx, model.Event{Type: model.Discovery, AgentID: "a", Content: "y"})

	cp, err := s.SaveCheckpoint(ctx, model.Checkpoint{
		FilePath: "docs/context.md",
		AgentID:  "claude-1",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cp.ID, "chk-"))
	assert.NotEmpty(t, cp.CreatedAt)
	assert.Equal(t, 2, cp.EventCountAtCreation)

	got, err := s.GetCheckpoint(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs/context.md", got.FilePath)
	assert.Equal(t, "claude-1", got.AgentID)
}

func TestLatestCheckpointPointer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetLatestCheckpoint(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)

	first, err := s.SaveCheckpoint(ctx, model.Checkpoint{FilePath: "a.md", AgentID: "a"})
	require.NoError(t, err)
	second, err := s.SaveCheckpoint(ctx, model.Checkpoint{FilePath: "b.md", AgentID: "a"})
	require.NoError(t, err)

	latest, err := s.GetLatestCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	// Earlier checkpoints stay addressable by id.
	got, err := s.GetCheckpoint(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.md", got.FilePath)
}

func TestGetCheckpointMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetCheckpoint(ctx, "chk-nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
