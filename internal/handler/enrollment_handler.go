package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	"github.com/enrolldesk/enrolldesk-api/internal/service"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
	"github.com/enrolldesk/enrolldesk-api/pkg/response"
)

// dateOnly is the wire format for confirmation dates and range bounds.
const dateOnly = "2006-01-02"

// TransitionRequest asks for a status change on one or more enrollments.
type TransitionRequest struct {
	Status        string `json:"status" binding:"required"`
	ConfirmedDate string `json:"confirmed_date"`
}

// EnrollmentHandler exposes the enrollment collection and single-record
// lifecycle operations.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	lifecycle   *service.LifecycleService
	views       *service.ViewService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, lifecycle *service.LifecycleService, views *service.ViewService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, lifecycle: lifecycle, views: views}
}

// parseViewFilter reads the shared filter query parameters.
func parseViewFilter(c *gin.Context) (models.EnrollmentViewFilter, error) {
	filter := models.EnrollmentViewFilter{
		CourseID: c.Query("courseId"),
		Query:    c.Query("q"),
	}
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.ParseInLocation(dateOnly, raw, time.Local)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.ParseInLocation(dateOnly, raw, time.Local)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		filter.To = &parsed
	}
	return filter, nil
}

// List godoc
// @Summary List enrollments from the cached collection
// @Tags Enrollments
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param q query string false "Free-text student search"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Param sort query string false "created_desc (default) or name"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter, err := parseViewFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filtered := h.views.Filter(h.lifecycle.Collection().Snapshot(), filter)
	switch c.DefaultQuery("sort", "created_desc") {
	case "name":
		h.views.SortStudentName(filtered)
	default:
		h.views.SortCreatedDesc(filtered)
	}
	response.JSON(c, http.StatusOK, filtered, nil, map[string]interface{}{
		"total": h.lifecycle.Collection().Len(),
	})
}

// Get godoc
// @Summary Get one enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, ok := h.lifecycle.Collection().Get(c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found"))
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Create godoc
// @Summary Create enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Transition godoc
// @Summary Move an enrollment to a new status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/status [put]
func (h *EnrollmentHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
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

	outcome := h.lifecycle.Transition(c.Request.Context(), []string{c.Param("id")}, target, confirmedDate)
	respondOutcome(c, outcome)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.lifecycle.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Refresh godoc
// @Summary Re-sync the cached collection from the store
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/refresh [post]
func (h *EnrollmentHandler) Refresh(c *gin.Context) {
	if err := h.lifecycle.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": h.lifecycle.Collection().Len()}, nil)
}

func parseConfirmedDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateOnly, raw, time.Local)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid confirmed_date, expected YYYY-MM-DD")
	}
	return &parsed, nil
}

// respondOutcome maps transition outcomes onto the response envelope.
// Suspend conditions and no-ops are expected results, not errors; only
// failed outcomes surface through the error contract.
func respondOutcome(c *gin.Context, outcome service.TransitionOutcome) {
	if outcome.Result == service.TransitionFailed {
		response.Error(c, outcome.Err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
