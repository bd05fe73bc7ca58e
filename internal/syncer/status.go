package syncer

import (
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
)

// DueStatus classifies an effective date against now.
func DueStatus(effective *time.Time, now time.Time) models.DueStatus {
	switch {
	case effective == nil:
		return models.DueUndated
	case effective.Before(now):
		return models.DueOverdue
	default:
		return models.DueUpcoming
	}
}

// WorkStatus derives the board column implied by the remote submission.
// A recorded score wins over the workflow state.
func WorkStatus(a models.RemoteAssignment) models.WorkflowStatus {
	sub := a.Submission
	if sub != nil && (sub.Score != nil || sub.WorkflowState == "graded") {
		return models.StatusDone
	}
	if sub != nil && (sub.WorkflowState == "submitted" || sub.WorkflowState == "pending_review") {
		return models.StatusProgress
	}
	if a.HasSubmission {
		return models.StatusProgress
	}
	return models.StatusTodo
}

func Classify(a models.RemoteAssignment, now time.Time) (models.WorkflowStatus, models.DueStatus) {
	return WorkStatus(a), DueStatus(a.EffectiveDate(), now)
}
