package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
	"golang.org/x/oauth2"
)

const maxErrorBody = 2048

type CanvasClient struct {
	Client   *http.Client
	BaseURL  string
	Timeout  time.Duration
	MaxPages int
}

// NewCanvasClient returns a client that sends token as a bearer credential on
// every request. Each call is bounded by timeout.
func NewCanvasClient(baseURL, token string, timeout time.Duration, maxPages int) *CanvasClient {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	if maxPages < 1 {
		maxPages = 1
	}
	return &CanvasClient{
		Client:   oauth2.NewClient(context.Background(), ts),
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Timeout:  timeout,
		MaxPages: maxPages,
	}
}

func (cc *CanvasClient) Self(ctx context.Context) (*models.CanvasUser, error) {
	var user models.CanvasUser
	if _, err := cc.get(ctx, cc.BaseURL+"/api/v1/users/self", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (cc *CanvasClient) Observees(ctx context.Context) ([]models.CanvasUser, error) {
	q := url.Values{}
	q.Set("per_page", "50")
	return getList[models.CanvasUser](ctx, cc, "/api/v1/users/self/observees", q)
}

// Courses lists active courses for studentID, or for the authenticated user
// when studentID is zero.
func (cc *CanvasClient) Courses(ctx context.Context, studentID models.ID) ([]models.CanvasCourse, error) {
	q := url.Values{}
	q.Set("enrollment_state", "active")
	q.Set("per_page", "50")
	q.Add("include[]", "total_scores")
	q.Add("include[]", "grading_periods")

	path := "/api/v1/courses"
	if studentID != 0 {
		path = fmt.Sprintf("/api/v1/users/%s/courses", studentID)
	}
	return getList[models.CanvasCourse](ctx, cc, path, q)
}

// CourseGradingPeriods fetches a single course with its grading periods.
func (cc *CanvasClient) CourseGradingPeriods(ctx context.Context, courseID models.ID) ([]models.CanvasGradingPeriod, error) {
	q := url.Values{}
	q.Add("include[]", "grading_periods")

	var course models.CanvasCourse
	if _, err := cc.get(ctx, cc.endpoint(fmt.Sprintf("/api/v1/courses/%s", courseID), q), &course); err != nil {
		return nil, err
	}
	return course.GradingPeriods, nil
}

func (cc *CanvasClient) Assignments(ctx context.Context, courseID models.ID, withSubmission bool) ([]models.CanvasAssignment, error) {
	q := url.Values{}
	q.Set("per_page", "100")
	q.Set("order_by", "due_at")
	if withSubmission {
		q.Add("include[]", "submission")
	}
	return getList[models.CanvasAssignment](ctx, cc, fmt.Sprintf("/api/v1/courses/%s/assignments", courseID), q)
}

func (cc *CanvasClient) StudentSubmissions(ctx context.Context, courseID, studentID models.ID) ([]models.CanvasSubmission, error) {
	q := url.Values{}
	q.Add("student_ids[]", studentID.String())
	q.Set("per_page", "100")
	q.Add("include[]", "assignment")
	return getList[models.CanvasSubmission](ctx, cc, fmt.Sprintf("/api/v1/courses/%s/students/submissions", courseID), q)
}

// UserEnrollments lists every active student enrollment of studentID with
// current grades embedded.
func (cc *CanvasClient) UserEnrollments(ctx context.Context, studentID models.ID) ([]models.CanvasEnrollment, error) {
	q := url.Values{}
	q.Add("state[]", "active")
	q.Add("type[]", "StudentEnrollment")
	q.Set("per_page", "100")
	return getList[models.CanvasEnrollment](ctx, cc, fmt.Sprintf("/api/v1/users/%s/enrollments", studentID), q)
}

// CourseEnrollments lists studentID's enrollments in one course, scoped to a
// grading period unless periodID is zero.
func (cc *CanvasClient) CourseEnrollments(ctx context.Context, courseID, studentID, periodID models.ID) ([]models.CanvasEnrollment, error) {
	q := url.Values{}
	q.Set("user_id", studentID.String())
	q.Add("type[]", "StudentEnrollment")
	if periodID != 0 {
		q.Set("grading_period_id", periodID.String())
	}
	return getList[models.CanvasEnrollment](ctx, cc, fmt.Sprintf("/api/v1/courses/%s/enrollments", courseID), q)
}

func (cc *CanvasClient) endpoint(path string, q url.Values) string {
	u := cc.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// getList decodes a JSON array from path, following rel="next" links for at
// most MaxPages pages.
func getList[T any](ctx context.Context, cc *CanvasClient, path string, q url.Values) ([]T, error) {
	var all []T
	next := cc.endpoint(path, q)
	for page := 0; next != "" && page < cc.MaxPages; page++ {
		var items []T
		link, err := cc.get(ctx, next, &items)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		next = nextLink(link)
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

// get fetches rawURL into out and returns the response Link header.
func (cc *CanvasClient) get(ctx context.Context, rawURL string, out any) (string, error) {
	endpoint := redact(rawURL)
	if cc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cc.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cc.Client.Do(req)
	if err != nil {
		return "", &UpstreamUnavailableError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &UpstreamRequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("failed to decode canvas response from %s: %w", endpoint, err)
	}
	return resp.Header.Get("Link"), nil
}

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.ReplaceAll(strings.TrimSpace(param), " ", "")
			if param == `rel="next"` || param == "rel=next" {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

// redact drops the query string from rawURL before it is used in errors.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
