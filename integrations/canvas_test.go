package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestCanvasClientSendsBearerAndFollowsPages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "/api/v1/users/self/observees", r.URL.Path)

		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, []models.CanvasUser{{ID: 3, Name: "Cal Three"}})
			return
		}
		w.Header().Set("Link", `<`+srv.URL+`/api/v1/users/self/observees?page=2>; rel="next", <`+srv.URL+`/api/v1/users/self/observees?page=1>; rel="first"`)
		writeJSON(t, w, []models.CanvasUser{{ID: 1, Name: "Ann One"}, {ID: 2, Name: "Ben Two"}})
	}))
	defer srv.Close()

	cc := NewCanvasClient(srv.URL+"/", "secret", time.Second, 5)
	users, err := cc.Observees(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Cal Three", users[2].Name)
}

func TestCanvasClientStopsAtMaxPages(t *testing.T) {
	calls := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Link", `<`+srv.URL+r.URL.Path+`?page=next>; rel="next"`)
		writeJSON(t, w, []models.CanvasUser{{ID: models.ID(calls)}})
	}))
	defer srv.Close()

	cc := NewCanvasClient(srv.URL, "secret", time.Second, 2)
	users, err := cc.Observees(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, calls)
}

func TestCanvasClientRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Invalid access token."}]}`))
	}))
	defer srv.Close()

	cc := NewCanvasClient(srv.URL, "bad", time.Second, 1)
	_, err := cc.Assignments(context.Background(), 10, true)
	require.Error(t, err)

	var reqErr *UpstreamRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	assert.Equal(t, srv.URL+"/api/v1/courses/10/assignments", reqErr.Endpoint)
	assert.Contains(t, reqErr.Body, "Invalid access token")
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.False(t, IsUnavailable(err))
}

func TestCanvasClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cc := NewCanvasClient(url, "secret", time.Second, 1)
	_, err := cc.Self(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestCanvasClientQueries(t *testing.T) {
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		if r.URL.Path == "/api/v1/courses/5" {
			_, _ = w.Write([]byte(`{"id":5,"grading_periods":[{"id":"9","title":"Q1","start_date":"2026-08-01T00:00:00Z","end_date":"2026-10-31T00:00:00Z"}]}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cc := NewCanvasClient(srv.URL, "secret", time.Second, 1)
	ctx := context.Background()

	courses, err := cc.Courses(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, courses)
	_, err = cc.Courses(ctx, 0)
	require.NoError(t, err)
	_, err = cc.StudentSubmissions(ctx, 5, 42)
	require.NoError(t, err)
	_, err = cc.CourseEnrollments(ctx, 5, 42, 9)
	require.NoError(t, err)
	periods, err := cc.CourseGradingPeriods(ctx, 5)
	require.NoError(t, err)

	require.Len(t, seen, 5)
	assert.Equal(t, "/api/v1/users/42/courses", seen[0].URL.Path)
	assert.ElementsMatch(t, []string{"total_scores", "grading_periods"}, seen[0].URL.Query()["include[]"])
	assert.Equal(t, "active", seen[0].URL.Query().Get("enrollment_state"))
	assert.Equal(t, "/api/v1/courses", seen[1].URL.Path)
	assert.Equal(t, []string{"42"}, seen[2].URL.Query()["student_ids[]"])
	assert.Equal(t, []string{"assignment"}, seen[2].URL.Query()["include[]"])
	assert.Equal(t, "9", seen[3].URL.Query().Get("grading_period_id"))
	assert.Equal(t, "42", seen[3].URL.Query().Get("user_id"))

	require.Len(t, periods, 1)
	assert.Equal(t, models.ID(9), periods[0].ID)
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{`<https://x/a?page=2>; rel="next"`, "https://x/a?page=2"},
		{`<https://x/a?page=1>; rel="current", <https://x/a?page=2>; rel="next", <https://x/a?page=9>; rel="last"`, "https://x/a?page=2"},
		{`<https://x/a?page=9>; rel="last"`, ""},
		{`garbage; rel="next"`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextLink(tt.header), tt.header)
	}
}
