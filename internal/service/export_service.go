package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	"github.com/enrolldesk/enrolldesk-api/pkg/export"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{"Student", "Email", "Phone", "Course", "Variant", "Status", "Confirmed", "Created"}

// ExportService renders the filtered enrollment list into downloadable
// documents. Presentation only; it never touches the remote store.
type ExportService struct {
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	views  *ViewService
	title  string
	logger *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(views *ViewService, title string, logger *zap.Logger) *ExportService {
	if views == nil {
		views = NewViewService()
	}
	if title == "" {
		title = "Enrollments"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		views:  views,
		title:  title,
		logger: logger,
	}
}

// Render filters the snapshot and renders it in the requested format,
// returning the document bytes and a content type.
func (s *ExportService) Render(snapshot []models.EnrollmentDetail, filter models.EnrollmentViewFilter, format string) ([]byte, string, error) {
	filtered := s.views.Filter(snapshot, filter)
	s.views.SortStudentName(filtered)

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(filtered))}
	for _, e := range filtered {
		confirmed := ""
		if e.ConfirmedDate != nil {
			confirmed = e.ConfirmedDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":   strings.TrimSpace(e.StudentFirstName + " " + e.StudentLastName),
			"Email":     e.StudentEmail,
			"Phone":     e.StudentPhone,
			"Course":    e.CourseName,
			"Variant":   e.Variant,
			"Status":    string(e.Status),
			"Confirmed": confirmed,
			"Created":   e.CreatedAt.Format(time.RFC3339),
		})
	}

	switch strings.ToLower(format) {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, s.title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
