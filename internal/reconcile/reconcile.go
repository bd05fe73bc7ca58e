// Package reconcile folds a freshly fetched Snapshot into the board's local
// collection.
package reconcile

import (
	"fmt"
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/google/uuid"
)

// ReconciliationError reports a snapshot whose shape cannot be merged.
type ReconciliationError struct {
	Reason string
}

func (e *ReconciliationError) Error() string {
	return "reconciliation failed: " + e.Reason
}

// itemKey identifies a synced item. Assignment ids belong to a course, so
// siblings enrolled in the same course share them; the student tells them apart.
type itemKey struct {
	canvasID int64
	student  string
}

// Validate rejects snapshots with missing canvas ids, with the same canvas id
// twice for one student, or with statuses outside the known values.
func Validate(snap *models.Snapshot) error {
	if snap == nil {
		return &ReconciliationError{Reason: "snapshot is missing"}
	}
	seen := make(map[itemKey]struct{}, len(snap.Assignments))
	for i, a := range snap.Assignments {
		if a.CanvasID == 0 {
			return &ReconciliationError{Reason: fmt.Sprintf("assignment %d has no canvasId", i)}
		}
		key := itemKey{a.CanvasID, a.StudentName}
		if _, dup := seen[key]; dup {
			return &ReconciliationError{Reason: fmt.Sprintf("duplicate canvasId %d for student %q", a.CanvasID, a.StudentName)}
		}
		seen[key] = struct{}{}
		if !a.Status.Valid() {
			return &ReconciliationError{Reason: fmt.Sprintf("assignment %d has unknown status %q", a.CanvasID, a.Status)}
		}
		if !a.DueStatus.Valid() {
			return &ReconciliationError{Reason: fmt.Sprintf("assignment %d has unknown dueStatus %q", a.CanvasID, a.DueStatus)}
		}
	}
	return nil
}

type Reconciler struct {
	NewID func() string
	Now   func() time.Time
}

func New() *Reconciler {
	return &Reconciler{NewID: uuid.NewString, Now: time.Now}
}

// Merge replaces every synced item in existing with the items of fresh and
// keeps manual items untouched. Items are matched on canvas id and student
// name. A refreshed item keeps the local id, creation time and calendar event
// of its predecessor, and keeps its column when the user had moved it off the
// remote status. Synced items missing from fresh are dropped. New items get
// ids and creation times derived from now, in snapshot order.
func (r *Reconciler) Merge(existing []models.LocalAssignment, fresh *models.Snapshot, now time.Time) ([]models.LocalAssignment, error) {
	if err := Validate(fresh); err != nil {
		return nil, err
	}

	var manual []models.LocalAssignment
	synced := make(map[itemKey]models.LocalAssignment)
	for _, a := range existing {
		if a.Synced() {
			synced[itemKey{*a.CanvasID, a.StudentName}] = a
			continue
		}
		manual = append(manual, a)
	}

	merged := make([]models.LocalAssignment, 0, len(manual)+len(fresh.Assignments))
	merged = append(merged, manual...)
	for i, na := range fresh.Assignments {
		item := fromNormalized(na)
		if old, ok := synced[itemKey{na.CanvasID, na.StudentName}]; ok {
			item.ID = old.ID
			item.BoardKey = old.BoardKey
			item.CreatedAt = old.CreatedAt
			item.EventID = old.EventID
			if overridden(old) {
				item.ColumnID = old.ColumnID
			}
		} else {
			item.ID = r.NewID()
			item.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		}
		merged = append(merged, item)
	}
	return merged, nil
}

// overridden reports whether the user moved a synced item off the column its
// remote status implied. Items stored without a status keep their column.
func overridden(a models.LocalAssignment) bool {
	if !a.ColumnID.Valid() {
		return false
	}
	return a.Status == "" || a.ColumnID != a.Status
}

func fromNormalized(na models.NormalizedAssignment) models.LocalAssignment {
	canvasID := na.CanvasID
	return models.LocalAssignment{
		CanvasID:    &canvasID,
		Title:       na.Title,
		Subject:     na.Subject,
		DueDate:     na.DueDate,
		Status:      na.Status,
		ColumnID:    na.Status,
		Emoji:       SubjectEmoji(na.Subject),
		Grade:       na.Grade,
		Score:       na.Score,
		TotalPoints: na.TotalPoints,
		DueStatus:   na.DueStatus,
		CanvasURL:   na.CanvasURL,
		StudentName: na.StudentName,
	}
}

// Dropped returns the synced items of before that are absent from after.
func Dropped(before, after []models.LocalAssignment) []models.LocalAssignment {
	kept := make(map[string]struct{}, len(after))
	for _, a := range after {
		kept[a.ID] = struct{}{}
	}
	var dropped []models.LocalAssignment
	for _, a := range before {
		if !a.Synced() {
			continue
		}
		if _, ok := kept[a.ID]; !ok {
			dropped = append(dropped, a)
		}
	}
	return dropped
}
