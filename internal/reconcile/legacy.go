package reconcile

import "github.com/chxlky/homework-board-sync/internal/models"

// MergeAdditive is the compatibility merge: every snapshot item whose title
// and due date match no existing item is handed to add as a new item without
// a canvas id. Nothing is updated or removed. Two distinct assignments that
// share a title and due date collapse into one.
func MergeAdditive(existing []models.LocalAssignment, fresh *models.Snapshot, add AddFunc) (int, error) {
	type key struct{ title, due string }
	seen := make(map[key]struct{}, len(existing))
	for _, a := range existing {
		seen[key{a.Title, a.DueDate}] = struct{}{}
	}

	added := 0
	for _, na := range fresh.Assignments {
		k := key{na.Title, na.DueDate}
		if _, ok := seen[k]; ok {
			continue
		}
		item := fromNormalized(na)
		item.CanvasID = nil
		if err := add(item); err != nil {
			return added, err
		}
		seen[k] = struct{}{}
		added++
	}
	return added, nil
}
