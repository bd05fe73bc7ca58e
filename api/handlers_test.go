package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chxlky/homework-board-sync/config"
	"github.com/chxlky/homework-board-sync/database"
	"github.com/chxlky/homework-board-sync/internal/board"
	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/chxlky/homework-board-sync/internal/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSyncer struct {
	snap  *models.Snapshot
	err   error
	block bool
}

func (f *fakeSyncer) Fetch(ctx context.Context) (*models.Snapshot, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.snap, f.err
}

func newTestRouter(t *testing.T, syncer *fakeSyncer) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	store := database.NewStore(db, "board")
	h := &Handler{
		Syncer: syncer,
		Board: &board.Service{
			Source:     syncer,
			Store:      store,
			Reconciler: reconcile.New(),
		},
		Store:       store,
		SyncTimeout: time.Second,
	}
	return NewRouter(zap.NewNop(), h), h
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Assignments: []models.NormalizedAssignment{{
			CanvasID:  7,
			Title:     "Lab report",
			Subject:   "Biology",
			DueDate:   "2026-10-20",
			Status:    models.StatusTodo,
			DueStatus: models.DueUpcoming,
		}},
		CourseGrades: []models.CourseGradeSnapshot{},
	}
}

func TestCanvasSyncHandler(t *testing.T) {
	r, _ := newTestRouter(t, &fakeSyncer{snap: sampleSnapshot()})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := do(r, method, "/api/canvas-sync", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

		var body struct {
			Assignments  []map[string]any `json:"assignments"`
			CourseGrades []map[string]any `json:"courseGrades"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Assignments, 1)
		assert.EqualValues(t, 7, body.Assignments[0]["canvasId"])
		assert.NotNil(t, body.CourseGrades)
	}
}

func TestCanvasSyncPreflight(t *testing.T) {
	r, _ := newTestRouter(t, &fakeSyncer{})

	w := do(r, http.MethodOptions, "/api/canvas-sync", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "authorization")
}

func TestCanvasSyncErrors(t *testing.T) {
	t.Run("configuration", func(t *testing.T) {
		r, h := newTestRouter(t, &fakeSyncer{})
		h.ConfigErr = (config.CanvasConfig{}).Validate()

		w := do(r, http.MethodPost, "/api/canvas-sync", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"CANVAS_API_TOKEN is not configured"}`, w.Body.String())
	})

	t.Run("timeout", func(t *testing.T) {
		r, h := newTestRouter(t, &fakeSyncer{block: true})
		h.SyncTimeout = 20 * time.Millisecond

		w := do(r, http.MethodPost, "/api/canvas-sync", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "timed out")
	})
}

func TestBoardEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, &fakeSyncer{snap: sampleSnapshot()})

	w := do(r, http.MethodPost, "/api/board/assignments", `{"title":"Poster","subject":"Art","dueDate":"2026-10-18"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var added models.LocalAssignment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Equal(t, models.StatusTodo, added.ColumnID)

	w = do(r, http.MethodPost, "/api/board/assignments", `{"subject":"Art"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/board/sync", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/board/columns/todo", "")
	require.Equal(t, http.StatusOK, w.Code)
	var col struct {
		Assignments []models.LocalAssignment `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &col))
	require.Len(t, col.Assignments, 2)
	assert.Equal(t, "Poster", col.Assignments[0].Title)
	assert.Equal(t, "Lab report", col.Assignments[1].Title)

	w = do(r, http.MethodPatch, "/api/board/assignments/"+added.ID, `{"columnId":"done"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodPatch, "/api/board/assignments/"+added.ID, `{"columnId":"blocked"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodPatch, "/api/board/assignments/nope", `{"columnId":"done"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/board/columns/someday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/api/board/assignments/"+added.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/board", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Assignments []models.LocalAssignment `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all.Assignments, 1)
	assert.NotNil(t, all.Assignments[0].CanvasID)
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t, &fakeSyncer{})
	w := do(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
