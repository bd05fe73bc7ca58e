package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
	"go.uber.org/zap"
)

// Strategy is one way of obtaining a course's assignments.
type Strategy struct {
	Name  string
	Fetch func(ctx context.Context) ([]models.RemoteAssignment, error)
}

// FirstNonEmpty runs strategies in order and returns the first non-empty
// result. A failing strategy is logged and skipped.
func FirstNonEmpty(ctx context.Context, strategies []Strategy) []models.RemoteAssignment {
	for _, s := range strategies {
		if ctx.Err() != nil {
			return nil
		}
		got, err := s.Fetch(ctx)
		if err != nil {
			zap.L().Warn("Assignment strategy failed", zap.String("strategy", s.Name), zap.Error(err))
			continue
		}
		zap.L().Debug("Assignment strategy finished", zap.String("strategy", s.Name), zap.Int("count", len(got)))
		if len(got) > 0 {
			return got
		}
	}
	return nil
}

type AssignmentFetcher struct {
	api CanvasAPI
}

func NewAssignmentFetcher(api CanvasAPI) *AssignmentFetcher {
	return &AssignmentFetcher{api: api}
}

func (f *AssignmentFetcher) listStrategy(name string, courseID models.ID, withSubmission bool) Strategy {
	return Strategy{
		Name: name,
		Fetch: func(ctx context.Context) ([]models.RemoteAssignment, error) {
			wire, err := f.api.Assignments(ctx, courseID, withSubmission)
			if err != nil {
				return nil, err
			}
			out := make([]models.RemoteAssignment, 0, len(wire))
			for _, a := range wire {
				r := a.Remote()
				r.CourseID = courseID
				out = append(out, r)
			}
			return out, nil
		},
	}
}

func (f *AssignmentFetcher) submissionsStrategy(courseID, studentID models.ID) Strategy {
	return Strategy{
		Name: "student submissions",
		Fetch: func(ctx context.Context) ([]models.RemoteAssignment, error) {
			subs, err := f.api.StudentSubmissions(ctx, courseID, studentID)
			if err != nil {
				return nil, err
			}
			out := make([]models.RemoteAssignment, 0, len(subs))
			for _, s := range subs {
				if r, ok := s.Remote(courseID); ok {
					out = append(out, r)
				}
			}
			return out, nil
		},
	}
}

// Strategies lists the attempts for a course in order: the primary listing
// with embedded submissions, then for an observed student the listing without
// submissions and the student's own submissions.
func (f *AssignmentFetcher) Strategies(courseID, studentID models.ID) []Strategy {
	strategies := []Strategy{f.listStrategy("with submissions", courseID, true)}
	if studentID != 0 {
		strategies = append(strategies,
			f.listStrategy("without submissions", courseID, false),
			f.submissionsStrategy(courseID, studentID),
		)
	}
	return strategies
}

// Fetch returns the richest assignment list available for course. An error
// from the primary request is returned so the caller can skip the course;
// fallbacks only run for an observed student whose primary list was empty.
func (f *AssignmentFetcher) Fetch(ctx context.Context, course models.CanvasCourse, studentID models.ID) ([]models.RemoteAssignment, error) {
	strategies := f.Strategies(course.ID, studentID)

	primary, err := strategies[0].Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(primary) > 0 || len(strategies) == 1 {
		return primary, nil
	}

	zap.L().Info("Primary assignment list empty, trying fallbacks",
		zap.String("course", course.Name), zap.Stringer("courseID", course.ID), zap.Stringer("studentID", studentID))
	return FirstNonEmpty(ctx, strategies[1:]), nil
}

func admit(a models.RemoteAssignment, subject string, window Window, deny *Denylist) bool {
	eff := a.EffectiveDate()
	if eff == nil {
		return false
	}
	if deny.Excludes(subject, a.Name) {
		return false
	}
	return window.Contains(*eff)
}

func normalizeAssignment(a models.RemoteAssignment, courseID models.ID, subject, studentName, baseURL string, now time.Time) models.NormalizedAssignment {
	status, due := Classify(a, now)
	n := models.NormalizedAssignment{
		CanvasID:    int64(a.ID),
		Title:       a.Name,
		Subject:     subject,
		Status:      status,
		DueStatus:   due,
		TotalPoints: a.PointsPossible,
		CanvasURL:   fmt.Sprintf("%s/courses/%s/assignments/%s", baseURL, courseID, a.ID),
		StudentName: studentName,
	}
	if eff := a.EffectiveDate(); eff != nil {
		n.DueDate = eff.UTC().Format("2006-01-02")
	}
	if sub := a.Submission; sub != nil {
		if sub.Grade != nil && *sub.Grade != "" {
			n.Grade = sub.Grade
		}
		n.Score = sub.Score
	}
	return n
}
