package syncer

import (
	"context"

	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

type Grade struct {
	CurrentScore *float64
	FinalScore   *float64
	CurrentGrade *string
}

func (g Grade) empty() bool {
	return g.CurrentScore == nil && g.FinalScore == nil && g.CurrentGrade == nil
}

// degenerate reports the shape Canvas returns for a grading period with no
// recorded work: both scores exactly zero and no letter grade. A student who
// genuinely scored zero looks the same.
func (g Grade) degenerate() bool {
	zero := func(f *float64) bool { return f != nil && *f == 0 }
	return zero(g.CurrentScore) && zero(g.FinalScore) && (g.CurrentGrade == nil || *g.CurrentGrade == "")
}

func enrollmentGrade(e models.CanvasEnrollment) Grade {
	if e.Grades != nil {
		return Grade{CurrentScore: e.Grades.CurrentScore, FinalScore: e.Grades.FinalScore, CurrentGrade: e.Grades.CurrentGrade}
	}
	return Grade{CurrentScore: e.ComputedCurrentScore, FinalScore: e.ComputedFinalScore, CurrentGrade: e.ComputedCurrentGrade}
}

// SelfGrades reads grades from the enrollments embedded in the course list
// of a self-authenticated student.
func SelfGrades(courses []models.CanvasCourse) map[models.ID]Grade {
	grades := make(map[models.ID]Grade, len(courses))
	for _, c := range courses {
		for _, e := range c.Enrollments {
			if !e.IsStudent() {
				continue
			}
			if g := enrollmentGrade(e); !g.empty() {
				grades[c.ID] = g
				break
			}
		}
	}
	return grades
}

type GradeFetcher struct {
	api         CanvasAPI
	concurrency int
}

func NewGradeFetcher(api CanvasAPI, concurrency int) *GradeFetcher {
	return &GradeFetcher{api: api, concurrency: max(concurrency, 1)}
}

type courseGrade struct {
	courseID models.ID
	grade    Grade
	ok       bool
}

// Observed collects grades for an observed student: one bulk enrollments
// request, then a per-course request for every course the bulk call missed.
func (f *GradeFetcher) Observed(ctx context.Context, studentID models.ID, courses []models.CanvasCourse, period *models.GradingPeriod) map[models.ID]Grade {
	grades := make(map[models.ID]Grade, len(courses))

	enrollments, err := f.api.UserEnrollments(ctx, studentID)
	if err != nil {
		zap.L().Warn("Bulk enrollment grades failed", zap.Stringer("studentID", studentID), zap.Error(err))
	}
	for _, e := range enrollments {
		if g := enrollmentGrade(e); !g.empty() {
			grades[e.CourseID] = g
		}
	}

	p := pool.NewWithResults[courseGrade]().WithMaxGoroutines(f.concurrency)
	for _, c := range courses {
		if _, ok := grades[c.ID]; ok {
			continue
		}
		p.Go(func() courseGrade {
			g, ok := f.courseGrade(ctx, c, studentID, period)
			return courseGrade{courseID: c.ID, grade: g, ok: ok}
		})
	}
	for _, r := range p.Wait() {
		if r.ok {
			grades[r.courseID] = r.grade
		}
	}
	return grades
}

func (f *GradeFetcher) fetchEnrollmentGrade(ctx context.Context, courseID, studentID, periodID models.ID) (Grade, error) {
	enrollments, err := f.api.CourseEnrollments(ctx, courseID, studentID, periodID)
	if err != nil {
		return Grade{}, err
	}
	for _, e := range enrollments {
		if e.UserID != 0 && e.UserID != studentID {
			continue
		}
		return enrollmentGrade(e), nil
	}
	return Grade{}, nil
}

// courseGrade fetches one course's grade, scoped to period when known. A
// degenerate scoped result is replaced by the year-to-date grade when that
// has a positive score.
func (f *GradeFetcher) courseGrade(ctx context.Context, course models.CanvasCourse, studentID models.ID, period *models.GradingPeriod) (Grade, bool) {
	var periodID models.ID
	if period != nil {
		periodID = period.ID
	}

	g, err := f.fetchEnrollmentGrade(ctx, course.ID, studentID, periodID)
	if err != nil {
		zap.L().Warn("Course enrollment grade failed", zap.String("course", course.Name), zap.Stringer("courseID", course.ID), zap.Error(err))
		return Grade{}, false
	}

	if periodID != 0 && g.degenerate() {
		ytd, err := f.fetchEnrollmentGrade(ctx, course.ID, studentID, 0)
		switch {
		case err != nil:
			zap.L().Warn("Year-to-date grade failed", zap.Stringer("courseID", course.ID), zap.Error(err))
		case ytd.CurrentScore != nil && *ytd.CurrentScore > 0:
			zap.L().Debug("Using year-to-date grade for empty grading period", zap.Stringer("courseID", course.ID))
			return ytd, true
		}
	}
	return g, !g.empty()
}
