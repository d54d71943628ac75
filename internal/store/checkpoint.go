package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcliao/engram/internal/model"
)

// Checkpoints live in the meta table as JSON: one key per checkpoint plus a
// "latest" pointer. Append-only; the core never deletes them.

const checkpointLatestKey = "checkpoint:latest"

func checkpointKey(id string) string {
	return "checkpoint:" + id
}

// SaveCheckpoint records a checkpoint, assigning id/created_at/event count
// if missing, and updates the latest pointer.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) (model.Checkpoint, error) {
	if cp.ID == "" {
		cp.ID = s.newID("chk")
	}
	if cp.CreatedAt == "" {
		cp.CreatedAt = nowISO()
	}
	if cp.EventCountAtCreation == 0 {
		n, err := s.Count(ctx)
		if err != nil {
			return model.Checkpoint{}, err
		}
		cp.EventCountAtCreation = n
	}

	b, err := json.Marshal(cp)
	if err != nil {
		return model.Checkpoint{}, err
	}
	if err := s.SetMeta(ctx, checkpointKey(cp.ID), string(b)); err != nil {
		return model.Checkpoint{}, err
	}
	if err := s.SetMeta(ctx, checkpointLatestKey, string(b)); err != nil {
		return model.Checkpoint{}, err
	}
	return cp, nil
}

func (s *SQLiteStore) GetCheckpoint(ctx context.Context, id string) (model.Checkpoint, error) {
	return s.checkpointFromMeta(ctx, checkpointKey(id), id)
}

func (s *SQLiteStore) GetLatestCheckpoint(ctx context.Context) (model.Checkpoint, error) {
	return s.checkpointFromMeta(ctx, checkpointLatestKey, "latest")
}

func (s *SQLiteStore) checkpointFromMeta(ctx context.Context, key, label string) (model.Checkpoint, error) {
	raw, err := s.GetMeta(ctx, key)
	if err != nil {
		return model.Checkpoint{}, err
	}
	if raw == "" {
		return model.Checkpoint{}, fmt.Errorf("checkpoint %s: %w", label, model.ErrNotFound)
	}
	var cp model.Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return model.Checkpoint{}, fmt.Errorf("checkpoint %s: %w", label, err)
	}
	return cp, nil
}
