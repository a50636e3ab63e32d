package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	"github.com/enrolldesk/enrolldesk-api/internal/service"
	"github.com/enrolldesk/enrolldesk-api/pkg/response"
)

// PipelineHandler serves the status-bucketed pipeline board and the
// unfiltered summary counts.
type PipelineHandler struct {
	lifecycle *service.LifecycleService
	views     *service.ViewService
}

// NewPipelineHandler constructs PipelineHandler.
func NewPipelineHandler(lifecycle *service.LifecycleService, views *service.ViewService) *PipelineHandler {
	return &PipelineHandler{lifecycle: lifecycle, views: views}
}

// Board godoc
// @Summary Status-bucketed pipeline view of the filtered collection
// @Tags Pipeline
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param q query string false "Free-text student search"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /pipeline [get]
func (h *PipelineHandler) Board(c *gin.Context) {
	filter, err := parseViewFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filtered := h.views.Filter(h.lifecycle.Collection().Snapshot(), filter)
	h.views.SortCreatedDesc(filtered)
	buckets := h.views.Buckets(filtered)

	columns := make([]gin.H, 0, len(models.AllEnrollmentStatuses))
	for _, status := range models.AllEnrollmentStatuses {
		columns = append(columns, gin.H{
			"status":      status,
			"enrollments": buckets[status],
			"count":       len(buckets[status]),
		})
	}
	response.JSON(c, http.StatusOK, columns, nil)
}

// Summary godoc
// @Summary Per-status totals over the unfiltered collection
// @Tags Pipeline
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pipeline/summary [get]
func (h *PipelineHandler) Summary(c *gin.Context) {
	// Totals deliberately ignore any active filters.
	snapshot := h.lifecycle.Collection().Snapshot()
	counts := h.views.Counts(snapshot)

	summary := make([]gin.H, 0, len(models.AllEnrollmentStatuses))
	for _, status := range models.AllEnrollmentStatuses {
		summary = append(summary, gin.H{"status": status, "count": counts[status]})
	}
	response.JSON(c, http.StatusOK, gin.H{"statuses": summary, "total": len(snapshot)}, nil)
}
