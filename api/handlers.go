package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chxlky/homework-board-sync/database"
	"github.com/chxlky/homework-board-sync/internal/board"
	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/chxlky/homework-board-sync/internal/reconcile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Syncer      reconcile.SnapshotSource
	Board       *board.Service
	Store       *database.Store
	SyncTimeout time.Duration
	// ConfigErr is set when the Canvas settings are incomplete; sync
	// endpoints report it instead of contacting Canvas.
	ConfigErr error
}

type newAssignmentRequest struct {
	Title    string                `json:"title" binding:"required"`
	Subject  string                `json:"subject"`
	DueDate  string                `json:"dueDate" binding:"omitempty,datetime=2006-01-02"`
	ColumnID models.WorkflowStatus `json:"columnId" binding:"omitempty,oneof=todo progress done"`
	Emoji    string                `json:"emoji"`
}

type moveRequest struct {
	ColumnID models.WorkflowStatus `json:"columnId" binding:"required,oneof=todo progress done"`
}

func errorBody(err error) gin.H {
	return gin.H{"error": err.Error()}
}

func (h *Handler) syncContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.SyncTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.SyncTimeout)
}

func (h *Handler) syncError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("canvas sync timed out after %s", h.SyncTimeout)
	}
	return err
}

// CanvasSyncHandler runs one sync and returns the snapshot without touching
// the stored board.
func (h *Handler) CanvasSyncHandler(c *gin.Context) {
	if h.ConfigErr != nil {
		zap.L().Error("Canvas sync requested without configuration", zap.Error(h.ConfigErr))
		c.JSON(http.StatusInternalServerError, errorBody(h.ConfigErr))
		return
	}

	ctx, cancel := h.syncContext(c)
	defer cancel()

	snap, err := h.Syncer.Fetch(ctx)
	if err != nil {
		err = h.syncError(err)
		zap.L().Error("Canvas sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// BoardSyncHandler syncs Canvas into the stored board. ?legacy=true selects
// the additive merge.
func (h *Handler) BoardSyncHandler(c *gin.Context) {
	if h.ConfigErr != nil {
		c.JSON(http.StatusInternalServerError, errorBody(h.ConfigErr))
		return
	}

	ctx, cancel := h.syncContext(c)
	defer cancel()

	res, err := h.Board.Sync(ctx, board.Options{Legacy: c.Query("legacy") == "true"})
	if err != nil {
		err = h.syncError(err)
		var recErr *reconcile.ReconciliationError
		if errors.As(err, &recErr) {
			zap.L().Warn("Canvas returned a snapshot that could not be merged", zap.String("reason", recErr.Reason))
		}
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListBoardHandler(c *gin.Context) {
	items, err := h.Store.Load()
	if err != nil {
		zap.L().Error("Failed to load board", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": items})
}

func (h *Handler) ColumnHandler(c *gin.Context) {
	column := models.WorkflowStatus(c.Param("column"))
	if !column.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown column %q", column)})
		return
	}
	items, err := h.Store.Column(column)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": items})
}

func (h *Handler) AddAssignmentHandler(c *gin.Context) {
	var req newAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}

	a, err := h.Store.Add(models.LocalAssignment{
		Title:    req.Title,
		Subject:  req.Subject,
		DueDate:  req.DueDate,
		ColumnID: req.ColumnID,
		Emoji:    req.Emoji,
	})
	if err != nil {
		zap.L().Error("Failed to add assignment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	zap.L().Info("Manual assignment added", zap.String("id", a.ID), zap.String("title", a.Title))
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) MoveAssignmentHandler(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}

	a, err := h.Store.Move(c.Param("id"), req.ColumnID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody(err))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAssignmentHandler(c *gin.Context) {
	err := h.Store.Delete(c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody(err))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
