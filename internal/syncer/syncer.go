// Package syncer pulls assignments and grades from Canvas for every linked
// student and normalizes them into a Snapshot.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/chxlky/homework-board-sync/integrations"
	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// CanvasAPI is the part of the Canvas REST API the engine reads from.
type CanvasAPI interface {
	Self(ctx context.Context) (*models.CanvasUser, error)
	Observees(ctx context.Context) ([]models.CanvasUser, error)
	Courses(ctx context.Context, studentID models.ID) ([]models.CanvasCourse, error)
	CourseGradingPeriods(ctx context.Context, courseID models.ID) ([]models.CanvasGradingPeriod, error)
	Assignments(ctx context.Context, courseID models.ID, withSubmission bool) ([]models.CanvasAssignment, error)
	StudentSubmissions(ctx context.Context, courseID, studentID models.ID) ([]models.CanvasSubmission, error)
	UserEnrollments(ctx context.Context, studentID models.ID) ([]models.CanvasEnrollment, error)
	CourseEnrollments(ctx context.Context, courseID, studentID, periodID models.ID) ([]models.CanvasEnrollment, error)
}

// ErrDiscoveryFailed is returned when no student's course list could be loaded.
var ErrDiscoveryFailed = errors.New("unable to list courses for any student")

type Options struct {
	BaseURL           string
	Concurrency       int
	GraceWindow       time.Duration
	RecencyWindow     time.Duration
	DiscoveryAttempts int
	RetryDelay        time.Duration
	Denylist          *Denylist
	Now               func() time.Time
}

type Syncer struct {
	api         CanvasAPI
	opts        Options
	assignments *AssignmentFetcher
	grades      *GradeFetcher
}

func New(api CanvasAPI, opts Options) *Syncer {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.Concurrency = max(opts.Concurrency, 1)
	opts.DiscoveryAttempts = max(opts.DiscoveryAttempts, 1)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{
		api:         api,
		opts:        opts,
		assignments: NewAssignmentFetcher(api),
		grades:      NewGradeFetcher(api, opts.Concurrency),
	}
}

type student struct {
	id   models.ID
	name string
}

// firstName is empty for the authenticated user syncing their own account.
func (s student) firstName() string {
	if s.id == 0 {
		return ""
	}
	if fields := strings.Fields(s.name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func (s student) label() string {
	if s.id == 0 {
		return "self"
	}
	return s.name
}

type studentResult struct {
	assignments []models.NormalizedAssignment
	grades      []models.CourseGradeSnapshot
	err         error
}

// Fetch runs one sync pass. All date comparisons in the pass use a single
// reference instant. Failures for a single student or course only reduce
// coverage; the pass fails when ctx ends or no student's courses load.
func (s *Syncer) Fetch(ctx context.Context) (*models.Snapshot, error) {
	now := s.opts.Now()
	students := s.discoverStudents(ctx)

	p := pool.NewWithResults[studentResult]().WithMaxGoroutines(s.opts.Concurrency)
	for _, st := range students {
		p.Go(func() studentResult {
			return s.syncStudent(ctx, st, now)
		})
	}
	results := p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("canvas sync aborted: %w", err)
	}

	snap := &models.Snapshot{
		Assignments:  []models.NormalizedAssignment{},
		CourseGrades: []models.CourseGradeSnapshot{},
	}
	var lastErr error
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			lastErr = r.err
			continue
		}
		snap.Assignments = append(snap.Assignments, r.assignments...)
		snap.CourseGrades = append(snap.CourseGrades, r.grades...)
	}
	if failed == len(results) {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryFailed, lastErr)
	}

	zap.L().Info("Canvas sync collected",
		zap.Int("students", len(students)),
		zap.Int("failedStudents", failed),
		zap.Int("assignments", len(snap.Assignments)),
		zap.Int("courseGrades", len(snap.CourseGrades)),
	)
	return snap, nil
}

// retry retries fn on network-level failures only, a bounded number of times.
func (s *Syncer) retry(ctx context.Context, op string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(uint(s.opts.DiscoveryAttempts)),
		retry.Delay(s.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(integrations.IsUnavailable),
		retry.OnRetry(func(n uint, err error) {
			zap.L().Warn("Retrying canvas request", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

// discoverStudents returns the observees of the authenticated account, or the
// account itself when it observes nobody.
func (s *Syncer) discoverStudents(ctx context.Context) []student {
	var self *models.CanvasUser
	err := s.retry(ctx, "self", func() (err error) {
		self, err = s.api.Self(ctx)
		return err
	})
	if err != nil {
		zap.L().Warn("Unable to load authenticated profile", zap.Error(err))
	} else {
		zap.L().Info("Authenticated with Canvas", zap.String("name", self.Name), zap.Stringer("id", self.ID))
	}

	var observees []models.CanvasUser
	err = s.retry(ctx, "observees", func() (err error) {
		observees, err = s.api.Observees(ctx)
		return err
	})
	if err != nil {
		zap.L().Info("Observee check skipped", zap.Error(err))
	}

	if len(observees) == 0 {
		return []student{{}}
	}
	zap.L().Info("Observer account detected", zap.Int("observees", len(observees)))

	students := make([]student, 0, len(observees))
	for _, o := range observees {
		students = append(students, student{id: o.ID, name: o.Name})
	}
	return students
}

func (s *Syncer) syncStudent(ctx context.Context, st student, now time.Time) studentResult {
	var courses []models.CanvasCourse
	err := s.retry(ctx, "courses", func() (err error) {
		courses, err = s.api.Courses(ctx, st.id)
		return err
	})
	if err != nil {
		zap.L().Error("Canvas courses error", zap.String("student", st.label()), zap.Int("status", integrations.StatusCode(err)), zap.Error(err))
		return studentResult{err: fmt.Errorf("courses for %s: %w", st.label(), err)}
	}
	zap.L().Info("Found courses", zap.String("student", st.label()), zap.Int("count", len(courses)))
	if len(courses) == 0 {
		return studentResult{}
	}

	period := s.resolvePeriod(ctx, courses, now)
	window := AdmissionWindow(period, now, s.opts.GraceWindow, s.opts.RecencyWindow)

	var grades map[models.ID]Grade
	var perCourse [][]models.NormalizedAssignment

	var wg conc.WaitGroup
	wg.Go(func() {
		if st.id == 0 {
			grades = SelfGrades(courses)
			return
		}
		grades = s.grades.Observed(ctx, st.id, courses, period)
	})
	wg.Go(func() {
		p := pool.NewWithResults[[]models.NormalizedAssignment]().WithMaxGoroutines(s.opts.Concurrency)
		for _, c := range courses {
			p.Go(func() []models.NormalizedAssignment {
				return s.syncCourse(ctx, c, st, window, now)
			})
		}
		perCourse = p.Wait()
	})
	wg.Wait()

	var res studentResult
	for _, list := range perCourse {
		res.assignments = append(res.assignments, list...)
	}
	for _, c := range courses {
		g := grades[c.ID]
		res.grades = append(res.grades, models.CourseGradeSnapshot{
			CourseID:     int64(c.ID),
			Subject:      NormalizeSubject(c.Name),
			CurrentScore: g.CurrentScore,
			FinalScore:   g.FinalScore,
			CurrentGrade: g.CurrentGrade,
			StudentName:  st.firstName(),
		})
	}
	return res
}

// resolvePeriod resolves the active grading period once per student from the
// first course, fetching the course detail when the listing had no periods.
func (s *Syncer) resolvePeriod(ctx context.Context, courses []models.CanvasCourse, now time.Time) *models.GradingPeriod {
	first := courses[0]
	wire := first.GradingPeriods
	if len(wire) == 0 {
		fetched, err := s.api.CourseGradingPeriods(ctx, first.ID)
		if err != nil {
			zap.L().Warn("Unable to load grading periods", zap.Stringer("courseID", first.ID), zap.Error(err))
		}
		wire = fetched
	}

	period := ActivePeriod(gradingPeriods(wire), now)
	if period == nil {
		zap.L().Debug("No grading period, using recency window", zap.Stringer("courseID", first.ID))
		return nil
	}
	zap.L().Debug("Active grading period", zap.String("title", period.Title), zap.Time("start", period.Start), zap.Time("end", period.End))
	return period
}

func (s *Syncer) syncCourse(ctx context.Context, course models.CanvasCourse, st student, window Window, now time.Time) []models.NormalizedAssignment {
	remote, err := s.assignments.Fetch(ctx, course, st.id)
	if err != nil {
		zap.L().Error("Assignments error, skipping course",
			zap.String("course", course.Name),
			zap.Stringer("courseID", course.ID),
			zap.Int("status", integrations.StatusCode(err)),
			zap.Error(err),
		)
		return nil
	}

	subject := NormalizeSubject(course.Name)
	out := make([]models.NormalizedAssignment, 0, len(remote))
	for _, a := range remote {
		if !admit(a, subject, window, s.opts.Denylist) {
			continue
		}
		out = append(out, normalizeAssignment(a, course.ID, subject, st.firstName(), s.opts.BaseURL, now))
	}

	zap.L().Info("Course synced",
		zap.String("course", course.Name),
		zap.String("student", st.label()),
		zap.Int("fetched", len(remote)),
		zap.Int("kept", len(out)),
	)
	return out
}
