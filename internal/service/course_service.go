package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CourseService exposes read access to the course catalogue, which backs
// the course filter in enrollment views.
type CourseService struct {
	repo   courseRepository
	logger *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, logger: logger}
}

// List returns every course.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
