package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	"github.com/enrolldesk/enrolldesk-api/internal/service"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
	"github.com/enrolldesk/enrolldesk-api/pkg/response"
)

// sessionHeader carries the caller's selection-session identifier.
const sessionHeader = "X-Session-ID"

type selectionRepository interface {
	Add(ctx context.Context, sessionID string, ids ...string) error
	Remove(ctx context.Context, sessionID string, ids ...string) error
	Members(ctx context.Context, sessionID string) ([]string, error)
	Clear(ctx context.Context, sessionID string) error
}

type bulkCoordinator interface {
	BulkTransition(ctx context.Context, sessionID string, ids []string, target models.EnrollmentStatus, confirmedDate *time.Time) service.TransitionOutcome
}

// SelectionRequest modifies the session's selected enrollment ids.
type SelectionRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// BulkTransitionRequest moves the selection (or explicit ids) to a status.
type BulkTransitionRequest struct {
	IDs           []string `json:"ids"`
	Status        string   `json:"status" binding:"required"`
	ConfirmedDate string   `json:"confirmed_date"`
}

// SelectionHandler manages the per-session selection set and bulk
// transitions over it.
type SelectionHandler struct {
	selections selectionRepository
	bulk       bulkCoordinator
}

// NewSelectionHandler constructs SelectionHandler.
func NewSelectionHandler(selections selectionRepository, bulk bulkCoordinator) *SelectionHandler {
	return &SelectionHandler{selections: selections, bulk: bulk}
}

func sessionID(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.GetHeader(sessionHeader))
	if id == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "X-Session-ID header is required")
	}
	return id, nil
}

// Show godoc
// @Summary List the session's selected enrollment ids
// @Tags Selection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /selection [get]
func (h *SelectionHandler) Show(c *gin.Context) {
	session, err := sessionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ids, err := h.selections.Members(c.Request.Context(), session)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read selection"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"ids": ids, "count": len(ids)}, nil)
}

// Add godoc
// @Summary Add enrollment ids to the session selection
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body SelectionRequest true "Selection payload"
// @Success 200 {object} response.Envelope
// @Router /selection [post]
func (h *SelectionHandler) Add(c *gin.Context) {
	session, err := sessionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.selections.Add(c.Request.Context(), session, req.IDs...); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update selection"))
		return
	}
	h.Show(c)
}

// Remove godoc
// @Summary Remove enrollment ids from the session selection
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body SelectionRequest true "Selection payload"
// @Success 200 {object} response.Envelope
// @Router /selection/remove [post]
func (h *SelectionHandler) Remove(c *gin.Context) {
	session, err := sessionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.selections.Remove(c.Request.Context(), session, req.IDs...); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update selection"))
		return
	}
	h.Show(c)
}

// Clear godoc
// @Summary Clear the session selection
// @Tags Selection
// @Success 204
// @Router /selection [delete]
func (h *SelectionHandler) Clear(c *gin.Context) {
	session, err := sessionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.selections.Clear(c.Request.Context(), session); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear selection"))
		return
	}
	response.NoContent(c)
}

// BulkTransition godoc
// @Summary Transition the selection (cascade-expanded) in one batch
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body BulkTransitionRequest true "Bulk transition payload"
// @Success 200 {object} response.Envelope
// @Router /selection/transition [post]
func (h *SelectionHandler) BulkTransition(c *gin.Context) {
	session := strings.TrimSpace(c.GetHeader(sessionHeader))
	var req BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if session == "" && len(req.IDs) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "provide ids or an X-Session-ID header"))
		return
	}
	target, err := models.ParseEnrollmentStatus(req.Status)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown target status"))
		return
	}
	confirmedDate, err := parseConfirmedDate(req.ConfirmedDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	outcome := h.bulk.BulkTransition(c.Request.Context(), session, req.IDs, target, confirmedDate)
	respondOutcome(c, outcome)
}
