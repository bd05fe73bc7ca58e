// Package board runs a sync against the persisted board: fetch, reconcile,
// publish to the calendar and save.
package board

import (
	"context"
	"sync"

	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/chxlky/homework-board-sync/internal/reconcile"
	"go.uber.org/zap"
)

// Publisher mirrors board items to an external calendar and returns the items
// with their event ids filled in.
type Publisher interface {
	Publish(ctx context.Context, items, dropped []models.LocalAssignment) []models.LocalAssignment
	DeleteEvent(ctx context.Context, eventID string) error
}

// Store is the persisted board collection.
type Store interface {
	Load() ([]models.LocalAssignment, error)
	Save(items []models.LocalAssignment) error
	Add(a models.LocalAssignment) (models.LocalAssignment, error)
}

type Service struct {
	Source     reconcile.SnapshotSource
	Store      Store
	Reconciler *reconcile.Reconciler
	Calendar   Publisher // nil when calendar export is disabled

	mu sync.Mutex
}

type Options struct {
	// Legacy selects the additive title and due date merge.
	Legacy bool
	// DryRun computes the result without writing to the store or calendar.
	DryRun bool
}

type Result struct {
	Summary     reconcile.Summary        `json:"summary"`
	Assignments []models.LocalAssignment `json:"assignments"`
}

// Sync folds one fresh snapshot into the stored board. Syncs are serialized;
// a failed fetch leaves the board untouched.
func (s *Service) Sync(ctx context.Context, opts Options) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Store.Load()
	if err != nil {
		return Result{}, err
	}

	var result []models.LocalAssignment
	var replace reconcile.ReplaceFunc
	if !opts.Legacy {
		replace = func(items []models.LocalAssignment) error {
			if opts.DryRun {
				result = items
				return nil
			}
			if err := s.Store.Save(items); err != nil {
				return err
			}
			result = items
			if s.Calendar != nil {
				result = s.publish(ctx, items, reconcile.Dropped(existing, items))
			}
			return nil
		}
	}

	pending := append([]models.LocalAssignment(nil), existing...)
	add := func(a models.LocalAssignment) error {
		if opts.DryRun {
			pending = append(pending, a)
			return nil
		}
		stored, err := s.Store.Add(a)
		if err != nil {
			return err
		}
		pending = append(pending, stored)
		return nil
	}

	summary, err := s.Reconciler.SyncFromCanvas(ctx, s.Source, existing, add, replace)
	if err != nil {
		zap.L().Error("Board sync failed", zap.Bool("legacy", opts.Legacy), zap.Error(err))
		return Result{}, err
	}
	if opts.Legacy {
		result = pending
	}
	if result == nil {
		result = []models.LocalAssignment{}
	}
	return Result{Summary: summary, Assignments: result}, nil
}

// publish mirrors the saved items to the calendar and stores the event ids it
// hands back. When those cannot be stored, events created in this pass are
// deleted again and the board keeps the items as they were saved.
func (s *Service) publish(ctx context.Context, saved, dropped []models.LocalAssignment) []models.LocalAssignment {
	published := s.Calendar.Publish(ctx, saved, dropped)
	err := s.Store.Save(published)
	if err == nil {
		return published
	}
	zap.L().Error("Unable to store calendar event ids, removing new events", zap.Error(err))

	for i, a := range published {
		if a.EventID == "" || a.EventID == saved[i].EventID {
			continue
		}
		if err := s.Calendar.DeleteEvent(ctx, a.EventID); err != nil {
			zap.L().Error("Error deleting calendar event", zap.String("title", a.Title), zap.Error(err))
		}
	}
	return saved
}
