package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

func TestExportRenderCSV(t *testing.T) {
	svc := NewExportService(nil, "Enrollments", nil)

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	e := viewDetail("e1", "c1", "Aoife", "Byrne", "aoife@example.com", "0851111111", models.EnrollmentStatusConfirmed, date)
	e.ConfirmedDate = &date
	e.CourseName = "Mathematics"

	payload, contentType, err := svc.Render([]models.EnrollmentDetail{e}, models.EnrollmentViewFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.Contains(t, body, "Student,Email,Phone,Course,Variant,Status,Confirmed,Created")
	assert.Contains(t, body, "Aoife Byrne")
	assert.Contains(t, body, "Mathematics")
	assert.Contains(t, body, "CONFIRMED")
	assert.Contains(t, body, "2026-03-15")
}

func TestExportRenderAppliesFilter(t *testing.T) {
	svc := NewExportService(nil, "", nil)
	snapshot := viewFixture()

	payload, _, err := svc.Render(snapshot, models.EnrollmentViewFilter{CourseID: "c2"}, "csv")
	require.NoError(t, err)

	body := string(payload)
	assert.Contains(t, body, "Kelly")
	assert.NotContains(t, body, "Murphy")
}

func TestExportRenderSortsByStudentName(t *testing.T) {
	svc := NewExportService(nil, "", nil)

	payload, _, err := svc.Render(viewFixture(), models.EnrollmentViewFilter{}, "csv")
	require.NoError(t, err)

	body := string(payload)
	assert.Less(t, strings.Index(body, "Byrne"), strings.Index(body, "Murphy"))
}

func TestExportRenderPDF(t *testing.T) {
	svc := NewExportService(nil, "Enrollments", nil)

	payload, contentType, err := svc.Render(viewFixture(), models.EnrollmentViewFilter{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportRenderUnsupportedFormat(t *testing.T) {
	svc := NewExportService(nil, "", nil)

	_, _, err := svc.Render(viewFixture(), models.EnrollmentViewFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
