package syncer

import (
	"testing"

	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		assignment models.RemoteAssignment
		wantWork   models.WorkflowStatus
		wantDue    models.DueStatus
	}{
		{
			name: "graded with score in the past",
			assignment: models.RemoteAssignment{
				DueAt:          daysFromNow(-2),
				PointsPossible: ptr(100.0),
				Submission:     &models.SubmissionRecord{WorkflowState: "graded", Score: ptr(95.0)},
			},
			wantWork: models.StatusDone,
			wantDue:  models.DueOverdue,
		},
		{
			name: "graded with score in the future",
			assignment: models.RemoteAssignment{
				DueAt:      daysFromNow(2),
				Submission: &models.SubmissionRecord{WorkflowState: "graded", Score: ptr(95.0)},
			},
			wantWork: models.StatusDone,
			wantDue:  models.DueUpcoming,
		},
		{
			name: "score present while still submitted",
			assignment: models.RemoteAssignment{
				DueAt:      daysFromNow(1),
				Submission: &models.SubmissionRecord{WorkflowState: "submitted", Score: ptr(7.0)},
			},
			wantWork: models.StatusDone,
			wantDue:  models.DueUpcoming,
		},
		{
			name: "submitted without score",
			assignment: models.RemoteAssignment{
				DueAt:      daysFromNow(1),
				Submission: &models.SubmissionRecord{WorkflowState: "submitted"},
			},
			wantWork: models.StatusProgress,
			wantDue:  models.DueUpcoming,
		},
		{
			name: "pending review",
			assignment: models.RemoteAssignment{
				DueAt:      daysFromNow(-1),
				Submission: &models.SubmissionRecord{WorkflowState: "pending_review"},
			},
			wantWork: models.StatusProgress,
			wantDue:  models.DueOverdue,
		},
		{
			name:       "has submission without record",
			assignment: models.RemoteAssignment{DueAt: daysFromNow(3), HasSubmission: true},
			wantWork:   models.StatusProgress,
			wantDue:    models.DueUpcoming,
		},
		{
			name:       "no submission future",
			assignment: models.RemoteAssignment{DueAt: daysFromNow(2)},
			wantWork:   models.StatusTodo,
			wantDue:    models.DueUpcoming,
		},
		{
			name: "unsubmitted past",
			assignment: models.RemoteAssignment{
				DueAt:      daysFromNow(-2),
				Submission: &models.SubmissionRecord{WorkflowState: "unsubmitted"},
			},
			wantWork: models.StatusTodo,
			wantDue:  models.DueOverdue,
		},
		{
			name:       "lock date wins over due date",
			assignment: models.RemoteAssignment{DueAt: daysFromNow(-2), LockAt: daysFromNow(3)},
			wantWork:   models.StatusTodo,
			wantDue:    models.DueUpcoming,
		},
		{
			name:       "undated",
			assignment: models.RemoteAssignment{},
			wantWork:   models.StatusTodo,
			wantDue:    models.DueUndated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			work, due := Classify(tt.assignment, testNow)
			assert.Equal(t, tt.wantWork, work)
			assert.Equal(t, tt.wantDue, due)
		})
	}
}

func TestDueStatusAtNowIsUpcoming(t *testing.T) {
	now := testNow
	assert.Equal(t, models.DueUpcoming, DueStatus(&now, testNow))
}
