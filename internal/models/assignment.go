package models

import "time"

type WorkflowStatus string

const (
	StatusTodo     WorkflowStatus = "todo"
	StatusProgress WorkflowStatus = "progress"
	StatusDone     WorkflowStatus = "done"
)

func (s WorkflowStatus) Valid() bool {
	return s == StatusTodo || s == StatusProgress || s == StatusDone
}

type DueStatus string

const (
	DueOverdue  DueStatus = "overdue"
	DueUpcoming DueStatus = "upcoming"
	DueUndated  DueStatus = "undated"
)

func (s DueStatus) Valid() bool {
	return s == DueOverdue || s == DueUpcoming || s == DueUndated
}

type SubmissionRecord struct {
	WorkflowState string
	Grade         *string
	Score         *float64
}

// RemoteAssignment is an assignment as fetched for one course.
type RemoteAssignment struct {
	ID             ID
	Name           string
	DueAt          *time.Time
	LockAt         *time.Time
	PointsPossible *float64
	CourseID       ID
	HasSubmission  bool
	Submission     *SubmissionRecord
}

// EffectiveDate prefers the lock date over the due date.
func (a RemoteAssignment) EffectiveDate() *time.Time {
	if a.LockAt != nil {
		return a.LockAt
	}
	return a.DueAt
}

type GradingPeriod struct {
	ID    ID
	Title string
	Start time.Time
	End   time.Time
}

func (p GradingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

type CourseGradeSnapshot struct {
	CourseID     int64    `json:"courseId"`
	Subject      string   `json:"subject"`
	CurrentScore *float64 `json:"currentScore"`
	FinalScore   *float64 `json:"finalScore"`
	CurrentGrade *string  `json:"currentGrade"`
	StudentName  string   `json:"studentName,omitempty"`
}

type NormalizedAssignment struct {
	CanvasID    int64          `json:"canvasId"`
	Title       string         `json:"title"`
	Subject     string         `json:"subject"`
	DueDate     string         `json:"dueDate"`
	Status      WorkflowStatus `json:"status"`
	Grade       *string        `json:"grade,omitempty"`
	Score       *float64       `json:"score,omitempty"`
	TotalPoints *float64       `json:"totalPoints,omitempty"`
	DueStatus   DueStatus      `json:"dueStatus"`
	CanvasURL   string         `json:"canvasUrl,omitempty"`
	StudentName string         `json:"studentName,omitempty"`
}

// Snapshot is the result of one sync pass.
type Snapshot struct {
	Assignments  []NormalizedAssignment `json:"assignments"`
	CourseGrades []CourseGradeSnapshot  `json:"courseGrades"`
}

// LocalAssignment is a board item. Items with a CanvasID are synced and owned
// by the sync cycle; items without one were created by hand.
type LocalAssignment struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	BoardKey    string         `json:"-" gorm:"index;not null"`
	CanvasID    *int64         `json:"canvasId,omitempty" gorm:"index"`
	Title       string         `json:"title"`
	Subject     string         `json:"subject"`
	DueDate     string         `json:"dueDate"`
	Status      WorkflowStatus `json:"status"`
	ColumnID    WorkflowStatus `json:"columnId"`
	Emoji       string         `json:"emoji"`
	Grade       *string        `json:"grade,omitempty"`
	Score       *float64       `json:"score,omitempty"`
	TotalPoints *float64       `json:"totalPoints,omitempty"`
	DueStatus   DueStatus      `json:"dueStatus,omitempty"`
	CanvasURL   string         `json:"canvasUrl,omitempty"`
	StudentName string         `json:"studentName,omitempty"`
	EventID     string         `json:"eventId,omitempty"` // Google Calendar event ID
	CreatedAt   time.Time      `json:"createdAt"`
}

func (a LocalAssignment) Synced() bool {
	return a.CanvasID != nil
}
