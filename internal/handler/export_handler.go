package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enrolldesk/enrolldesk-api/internal/service"
	"github.com/enrolldesk/enrolldesk-api/pkg/response"
)

// ExportHandler streams the filtered enrollment list as CSV or PDF.
type ExportHandler struct {
	exports   *service.ExportService
	lifecycle *service.LifecycleService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, lifecycle *service.LifecycleService) *ExportHandler {
	return &ExportHandler{exports: exports, lifecycle: lifecycle}
}

// Download godoc
// @Summary Export the filtered enrollment list
// @Tags Export
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param courseId query string false "Filter by course"
// @Param q query string false "Free-text student search"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Success 200
// @Router /enrollments/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	filter, err := parseViewFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)

	payload, contentType, err := h.exports.Render(h.lifecycle.Collection().Snapshot(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("enrollments-%s.%s", time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
