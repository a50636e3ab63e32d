package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

type enrollmentWriter interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateEnrollmentRequest describes enrollment creation. Status may pre-set
// the record to invited or confirmed; anything confirmed still needs a
// confirmation date, the same rule the transition executor enforces.
type CreateEnrollmentRequest struct {
	StudentID     string     `json:"student_id" validate:"required"`
	CourseID      string     `json:"course_id" validate:"required"`
	Variant       string     `json:"variant"`
	Notes         string     `json:"notes"`
	Status        string     `json:"status"`
	ConfirmedDate *time.Time `json:"confirmed_date"`
}

// EnrollmentService is the creation collaborator: it registers new
// enrollments against the remote store and feeds them into the engine's
// cached collection. Status changes never go through here.
type EnrollmentService struct {
	repo       enrollmentWriter
	students   studentReader
	courses    courseReader
	collection *EnrollmentCollection
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentWriter, students studentReader, courses courseReader, collection *EnrollmentCollection, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, collection: collection, validator: validate, logger: logger}
}

// Create registers a student into a course, defaulting to the requested
// state.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	status := models.EnrollmentStatusRequested
	if req.Status != "" {
		parsed, err := models.ParseEnrollmentStatus(req.Status)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
		}
		status = parsed
	}
	if status.RequiresConfirmedDate() && req.ConfirmedDate == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "confirmation date required for confirmed enrollments")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	confirmedDate := req.ConfirmedDate
	if !status.RequiresConfirmedDate() {
		confirmedDate = nil
	}
	enrollment := &models.Enrollment{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		Status:        status,
		Variant:       req.Variant,
		ConfirmedDate: confirmedDate,
		Notes:         req.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRemoteStore.Code, appErrors.ErrRemoteStore.Status, "failed to create enrollment")
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	if s.collection != nil {
		s.collection.Upsert(*detail)
	}
	s.logger.Info("enrollment created",
		zap.String("id", enrollment.ID),
		zap.String("status", string(status)))
	return detail, nil
}
