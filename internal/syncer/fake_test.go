package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chxlky/homework-board-sync/integrations"
	"github.com/chxlky/homework-board-sync/internal/models"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func daysFromNow(d int) *time.Time {
	t := testNow.AddDate(0, 0, d)
	return &t
}

// fakeCanvas is an in-memory CanvasAPI keyed by ids.
type fakeCanvas struct {
	mu sync.Mutex

	self              *models.CanvasUser
	observees         []models.CanvasUser
	observeesErr      error
	courses           map[models.ID][]models.CanvasCourse
	coursesErr        map[models.ID]error
	coursesFlaky      int
	periods           map[models.ID][]models.CanvasGradingPeriod
	assignments       map[models.ID][]models.CanvasAssignment
	plainAssignments  map[models.ID][]models.CanvasAssignment
	assignmentsErr    map[models.ID]error
	plainErr          map[models.ID]error
	submissions       map[models.ID][]models.CanvasSubmission
	userEnrollments   map[models.ID][]models.CanvasEnrollment
	userEnrollErr     error
	courseEnrollments map[string][]models.CanvasEnrollment

	calls []string
}

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{
		self:              &models.CanvasUser{ID: 1, Name: "Pat Parent"},
		courses:           map[models.ID][]models.CanvasCourse{},
		coursesErr:        map[models.ID]error{},
		periods:           map[models.ID][]models.CanvasGradingPeriod{},
		assignments:       map[models.ID][]models.CanvasAssignment{},
		plainAssignments:  map[models.ID][]models.CanvasAssignment{},
		assignmentsErr:    map[models.ID]error{},
		plainErr:          map[models.ID]error{},
		submissions:       map[models.ID][]models.CanvasSubmission{},
		userEnrollments:   map[models.ID][]models.CanvasEnrollment{},
		courseEnrollments: map[string][]models.CanvasEnrollment{},
	}
}

func (f *fakeCanvas) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeCanvas) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeCanvas) Self(ctx context.Context) (*models.CanvasUser, error) {
	f.record("self")
	return f.self, nil
}

func (f *fakeCanvas) Observees(ctx context.Context) ([]models.CanvasUser, error) {
	f.record("observees")
	return f.observees, f.observeesErr
}

func (f *fakeCanvas) Courses(ctx context.Context, studentID models.ID) ([]models.CanvasCourse, error) {
	f.record("courses %d", studentID)
	f.mu.Lock()
	flaky := f.coursesFlaky > 0
	if flaky {
		f.coursesFlaky--
	}
	f.mu.Unlock()
	if flaky {
		return nil, &integrations.UpstreamUnavailableError{Endpoint: "courses", Err: errors.New("connection reset")}
	}
	if err := f.coursesErr[studentID]; err != nil {
		return nil, err
	}
	return f.courses[studentID], nil
}

func (f *fakeCanvas) CourseGradingPeriods(ctx context.Context, courseID models.ID) ([]models.CanvasGradingPeriod, error) {
	f.record("periods %d", courseID)
	return f.periods[courseID], nil
}

func (f *fakeCanvas) Assignments(ctx context.Context, courseID models.ID, withSubmission bool) ([]models.CanvasAssignment, error) {
	if withSubmission {
		f.record("assignments %d", courseID)
		return f.assignments[courseID], f.assignmentsErr[courseID]
	}
	f.record("plain assignments %d", courseID)
	return f.plainAssignments[courseID], f.plainErr[courseID]
}

func (f *fakeCanvas) StudentSubmissions(ctx context.Context, courseID, studentID models.ID) ([]models.CanvasSubmission, error) {
	f.record("submissions %d %d", courseID, studentID)
	return f.submissions[courseID], nil
}

func (f *fakeCanvas) UserEnrollments(ctx context.Context, studentID models.ID) ([]models.CanvasEnrollment, error) {
	f.record("user enrollments %d", studentID)
	if f.userEnrollErr != nil {
		return nil, f.userEnrollErr
	}
	return f.userEnrollments[studentID], nil
}

func (f *fakeCanvas) CourseEnrollments(ctx context.Context, courseID, studentID, periodID models.ID) ([]models.CanvasEnrollment, error) {
	key := fmt.Sprintf("%d/%d", courseID, periodID)
	f.record("course enrollments %s", key)
	return f.courseEnrollments[key], nil
}
