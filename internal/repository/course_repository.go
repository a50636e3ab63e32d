package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
)

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns all courses, active first then by name.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, code, active, created_at, updated_at FROM courses ORDER BY active DESC, name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, code, active, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}
