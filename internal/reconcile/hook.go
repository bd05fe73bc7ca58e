package reconcile

import (
	"context"
	"fmt"

	"github.com/chxlky/homework-board-sync/internal/models"
	"go.uber.org/zap"
)

type SnapshotSource interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// AddFunc stores one new item; the callee assigns its id and creation time.
type AddFunc func(models.LocalAssignment) error

// ReplaceFunc atomically replaces the whole local collection.
type ReplaceFunc func([]models.LocalAssignment) error

type Summary struct {
	Fetched int  `json:"fetched"`
	Added   int  `json:"added"`
	Total   int  `json:"total"`
	Legacy  bool `json:"legacy"`
}

// SyncFromCanvas fetches a snapshot and folds it into existing. With a
// replaceAll function it runs Merge and calls replaceAll exactly once. A nil
// replaceAll selects the additive compatibility merge through addManual.
// Nothing is written when the fetch or the merge fails.
func (r *Reconciler) SyncFromCanvas(ctx context.Context, src SnapshotSource, existing []models.LocalAssignment, addManual AddFunc, replaceAll ReplaceFunc) (Summary, error) {
	snap, err := src.Fetch(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("canvas sync failed: %w", err)
	}

	if replaceAll == nil {
		if addManual == nil {
			return Summary{}, fmt.Errorf("canvas sync needs a replace or add function")
		}
		if err := Validate(snap); err != nil {
			return Summary{}, err
		}
		added, err := MergeAdditive(existing, snap, addManual)
		if err != nil {
			return Summary{}, fmt.Errorf("unable to add synced assignment: %w", err)
		}
		zap.L().Info("Canvas sync complete (additive)", zap.Int("fetched", len(snap.Assignments)), zap.Int("added", added))
		return Summary{Fetched: len(snap.Assignments), Added: added, Total: len(existing) + added, Legacy: true}, nil
	}

	merged, err := r.Merge(existing, snap, r.Now())
	if err != nil {
		return Summary{}, err
	}
	if err := replaceAll(merged); err != nil {
		return Summary{}, fmt.Errorf("unable to replace assignments: %w", err)
	}
	zap.L().Info("Canvas sync complete", zap.Int("fetched", len(snap.Assignments)), zap.Int("total", len(merged)))
	return Summary{Fetched: len(snap.Assignments), Total: len(merged)}, nil
}
