package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	"github.com/enrolldesk/enrolldesk-api/internal/service"
	"github.com/enrolldesk/enrolldesk-api/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEnrollmentStore struct {
	list     []models.EnrollmentDetail
	batchErr error
}

func (s *stubEnrollmentStore) ListAll(_ context.Context) ([]models.EnrollmentDetail, error) {
	return s.list, nil
}

func (s *stubEnrollmentStore) UpdateStatusBatch(_ context.Context, _ []string, _ models.EnrollmentStatus, _ *time.Time) error {
	return s.batchErr
}

func (s *stubEnrollmentStore) Delete(_ context.Context, _ string) error {
	return nil
}

func seedDetail(id, studentID, courseID, variant string, status models.EnrollmentStatus) models.EnrollmentDetail {
	return models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:        id,
			StudentID: studentID,
			CourseID:  courseID,
			Variant:   variant,
			Status:    status,
			CreatedAt: time.Now(),
		},
		StudentFirstName: "Aoife",
		StudentLastName:  "Byrne",
		StudentEmail:     "aoife@example.com",
	}
}

func newEnrollmentRouter(seed ...models.EnrollmentDetail) (*gin.Engine, *service.LifecycleService) {
	collection := service.NewEnrollmentCollection()
	collection.Replace(seed)
	lifecycle := service.NewLifecycleService(&stubEnrollmentStore{}, collection, nil, nil)
	h := NewEnrollmentHandler(nil, lifecycle, service.NewViewService())

	r := gin.New()
	r.GET("/enrollments", h.List)
	r.GET("/enrollments/:id", h.Get)
	r.PUT("/enrollments/:id/status", h.Transition)
	r.DELETE("/enrollments/:id", h.Delete)
	return r, lifecycle
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope response.Envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func TestEnrollmentListFromCollection(t *testing.T) {
	r, _ := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
		seedDetail("e2", "s2", "c2", "", models.EnrollmentStatusInvited),
	)

	w, envelope := doJSON(t, r, http.MethodGet, "/enrollments", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, float64(2), envelope.Meta["total"])
}

func TestEnrollmentListFiltersByCourse(t *testing.T) {
	r, _ := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
		seedDetail("e2", "s2", "c2", "", models.EnrollmentStatusInvited),
	)

	w, envelope := doJSON(t, r, http.MethodGet, "/enrollments?courseId=c2", "")
	assert.Equal(t, http.StatusOK, w.Code)

	items, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
	// Meta total reports the unfiltered collection size.
	assert.Equal(t, float64(2), envelope.Meta["total"])
}

func TestEnrollmentListBadDate(t *testing.T) {
	r, _ := newEnrollmentRouter()

	w, envelope := doJSON(t, r, http.MethodGet, "/enrollments?from=15-03-2026", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestEnrollmentGetNotFound(t *testing.T) {
	r, _ := newEnrollmentRouter()

	w, envelope := doJSON(t, r, http.MethodGet, "/enrollments/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestEnrollmentTransitionApplied(t *testing.T) {
	r, lifecycle := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
	)

	w, envelope := doJSON(t, r, http.MethodPut, "/enrollments/e1/status", `{"status":"INVITED"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "applied", data["result"])
	assert.Equal(t, float64(1), data["affected"])

	got, ok := lifecycle.Collection().Get("e1")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusInvited, got.Status)
}

func TestEnrollmentTransitionConfirmedWithoutDateReturnsSuspend(t *testing.T) {
	r, lifecycle := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusInvited),
	)

	w, envelope := doJSON(t, r, http.MethodPut, "/enrollments/e1/status", `{"status":"CONFIRMED"}`)
	// A suspend point is an expected outcome, not an error.
	assert.Equal(t, http.StatusOK, w.Code)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "needs_confirmation_date", data["result"])

	got, _ := lifecycle.Collection().Get("e1")
	assert.Equal(t, models.EnrollmentStatusInvited, got.Status)
}

func TestEnrollmentTransitionConfirmedWithDate(t *testing.T) {
	r, lifecycle := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusInvited),
	)

	w, _ := doJSON(t, r, http.MethodPut, "/enrollments/e1/status", `{"status":"CONFIRMED","confirmed_date":"2026-03-15"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	got, ok := lifecycle.Collection().Get("e1")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedDate)
	assert.Equal(t, "2026-03-15", got.ConfirmedDate.Format("2006-01-02"))
}

func TestEnrollmentTransitionCascadeExpandsResponse(t *testing.T) {
	r, _ := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "English", models.EnrollmentStatusInvited),
		seedDetail("e2", "s1", "c1", "Irish", models.EnrollmentStatusInvited),
	)

	w, envelope := doJSON(t, r, http.MethodPut, "/enrollments/e1/status", `{"status":"WITHDRAWN"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["affected"])
}

func TestEnrollmentTransitionUnknownStatus(t *testing.T) {
	r, _ := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
	)

	w, envelope := doJSON(t, r, http.MethodPut, "/enrollments/e1/status", `{"status":"PAUSED"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestEnrollmentTransitionBadDateFormat(t *testing.T) {
	r, _ := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
	)

	w, _ := doJSON(t, r, http.MethodPut, "/enrollments/e1/status", `{"status":"CONFIRMED","confirmed_date":"15/03/2026"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentDelete(t *testing.T) {
	r, lifecycle := newEnrollmentRouter(
		seedDetail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
	)

	w, _ := doJSON(t, r, http.MethodDelete, "/enrollments/e1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, lifecycle.Collection().Len())
}
