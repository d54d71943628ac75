// Package gc archives old events to keep the main store lean.
package gc

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rcliao/engram/internal/model"
	"github.com/rcliao/engram/internal/store"
)

// DefaultMaxAgeDays is the default archival cutoff.
const DefaultMaxAgeDays = 90

// Result reports what a collection pass did (or would do).
type Result struct {
	Archived     int    `json:"archived"`
	WouldArchive int    `json:"would_archive,omitempty"`
	Cutoff       string `json:"cutoff"`
	ArchivePath  string `json:"archive_path,omitempty"`
}

// Collector moves old mutation/outcome events into monthly archive
// databases. Warnings and decisions are always preserved regardless of age.
type Collector struct {
	store     store.Store
	engramDir string
}

func NewCollector(s store.Store, engramDir string) *Collector {
	return &Collector{store: s, engramDir: engramDir}
}

// Collect archives mutations and outcomes older than maxAgeDays. With
// dryRun, nothing is moved and WouldArchive reports the candidate count.
func (c *Collector) Collect(ctx context.Context, maxAgeDays int, dryRun bool) (Result, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	cutoff := time.Now().UTC().
		Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Format(time.RFC3339)

	archivable, err := c.store.EventsBefore(ctx,
		[]model.EventType{model.Mutation, model.Outcome}, cutoff)
	if err != nil {
		return Result{}, err
	}

	if dryRun {
		return Result{WouldArchive: len(archivable), Cutoff: cutoff}, nil
	}
	if len(archivable) == 0 {
		return Result{Cutoff: cutoff}, nil
	}

	archivePath := filepath.Join(c.engramDir, "archive",
		time.Now().UTC().Format("2006-01")+".db")
	archive, err := store.Create(archivePath)
	if err != nil {
		return Result{}, fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	if _, err := archive.InsertBatch(ctx, archivable); err != nil {
		return Result{}, fmt.Errorf("copy to archive: %w", err)
	}

	ids := make([]string, len(archivable))
	for i, e := range archivable {
		ids[i] = e.ID
	}
	if err := c.store.DeleteEvents(ctx, ids); err != nil {
		return Result{}, fmt.Errorf("delete archived events: %w", err)
	}

	return Result{Archived: len(ids), Cutoff: cutoff, ArchivePath: archivePath}, nil
}
