package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a Canvas object identifier. Some endpoints (grading periods in
// particular) serialize ids as JSON strings, so both forms are accepted.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid canvas id %s: %w", b, err)
	}
	*id = ID(v)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

type CanvasUser struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type CanvasGradingPeriod struct {
	ID        ID         `json:"id"`
	Title     string     `json:"title"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

type CanvasGrades struct {
	CurrentScore *float64 `json:"current_score"`
	FinalScore   *float64 `json:"final_score"`
	CurrentGrade *string  `json:"current_grade"`
}

// CanvasEnrollment covers both the enrollment objects embedded in a course
// listing (computed_* fields, present with include[]=total_scores) and the
// standalone enrollment endpoints (grades object).
type CanvasEnrollment struct {
	ID                   ID            `json:"id"`
	CourseID             ID            `json:"course_id"`
	UserID               ID            `json:"user_id"`
	Type                 string        `json:"type"`
	ComputedCurrentScore *float64      `json:"computed_current_score"`
	ComputedFinalScore   *float64      `json:"computed_final_score"`
	ComputedCurrentGrade *string       `json:"computed_current_grade"`
	Grades               *CanvasGrades `json:"grades"`
}

// IsStudent reports whether the enrollment is a student enrollment. Course
// listings use "student", the enrollments API uses "StudentEnrollment".
func (e CanvasEnrollment) IsStudent() bool {
	return e.Type == "student" || e.Type == "StudentEnrollment"
}

type CanvasCourse struct {
	ID             ID                    `json:"id"`
	Name           string                `json:"name"`
	CourseCode     string                `json:"course_code"`
	Enrollments    []CanvasEnrollment    `json:"enrollments"`
	GradingPeriods []CanvasGradingPeriod `json:"grading_periods"`
}

type CanvasSubmission struct {
	AssignmentID  ID                `json:"assignment_id"`
	UserID        ID                `json:"user_id"`
	WorkflowState string            `json:"workflow_state"`
	Grade         *string           `json:"grade"`
	Score         *float64          `json:"score"`
	Assignment    *CanvasAssignment `json:"assignment"`
}

type CanvasAssignment struct {
	ID                      ID                `json:"id"`
	Name                    string            `json:"name"`
	DueAt                   *time.Time        `json:"due_at"`
	LockAt                  *time.Time        `json:"lock_at"`
	PointsPossible          *float64          `json:"points_possible"`
	CourseID                ID                `json:"course_id"`
	HasSubmittedSubmissions bool              `json:"has_submitted_submissions"`
	Submission              *CanvasSubmission `json:"submission"`
}

// Remote converts the wire assignment into a RemoteAssignment.
func (a CanvasAssignment) Remote() RemoteAssignment {
	r := RemoteAssignment{
		ID:             a.ID,
		Name:           a.Name,
		DueAt:          a.DueAt,
		LockAt:         a.LockAt,
		PointsPossible: a.PointsPossible,
		CourseID:       a.CourseID,
		HasSubmission:  a.HasSubmittedSubmissions,
	}
	if a.Submission != nil {
		r.Submission = &SubmissionRecord{
			WorkflowState: a.Submission.WorkflowState,
			Grade:         a.Submission.Grade,
			Score:         a.Submission.Score,
		}
	}
	return r
}

// Remote synthesizes a RemoteAssignment from a submission carrying its
// embedded assignment. ok is false when the assignment was not embedded.
func (s CanvasSubmission) Remote(courseID ID) (r RemoteAssignment, ok bool) {
	if s.Assignment == nil {
		return RemoteAssignment{}, false
	}
	return RemoteAssignment{
		ID:             s.Assignment.ID,
		Name:           s.Assignment.Name,
		DueAt:          s.Assignment.DueAt,
		LockAt:         s.Assignment.LockAt,
		PointsPossible: s.Assignment.PointsPossible,
		CourseID:       courseID,
		HasSubmission:  s.WorkflowState != "unsubmitted",
		Submission: &SubmissionRecord{
			WorkflowState: s.WorkflowState,
			Grade:         s.Grade,
			Score:         s.Score,
		},
	}, true
}

// GradingPeriod converts the wire period. ok is false when either boundary
// is missing or the period ends before it starts.
func (p CanvasGradingPeriod) GradingPeriod() (GradingPeriod, bool) {
	if p.StartDate == nil || p.EndDate == nil || p.EndDate.Before(*p.StartDate) {
		return GradingPeriod{}, false
	}
	return GradingPeriod{ID: p.ID, Title: p.Title, Start: *p.StartDate, End: *p.EndDate}, true
}
