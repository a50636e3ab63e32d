package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
)

// EnrollmentRepository is the system of record for enrollments. The engine
// treats it as a remote CRUD boundary: every mutation goes here first and
// the in-memory collection is only reconciled after success.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.student_id, e.course_id, e.status, e.variant, e.confirmed_date, e.notes, e.created_at,
        s.first_name AS student_first_name, s.last_name AS student_last_name, s.email AS student_email, s.phone AS student_phone,
        c.name AS course_name`

// ListAll returns the full enrollment collection with embedded student and
// course summaries. No pagination: the engine operates on whatever the
// store returns.
func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        ORDER BY e.created_at DESC`, enrollmentDetailColumns)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindDetailByID returns one enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`, enrollmentDetailColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusRequested
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, status, variant, confirmed_date, notes, created_at)
        VALUES (:id, :student_id, :course_id, :status, :variant, :confirmed_date, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatusBatch moves every listed enrollment to the given status in a
// single statement. confirmedDate is written as-is: a value when the target
// is confirmed, NULL otherwise, so stale dates are always cleared. One
// statement means the update is atomic across the id set.
func (r *EnrollmentRepository) UpdateStatusBatch(ctx context.Context, ids []string, status models.EnrollmentStatus, confirmedDate *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, status, confirmedDate)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}
	query := fmt.Sprintf("UPDATE enrollments SET status = $1, confirmed_date = $2 WHERE id IN (%s)",
		strings.Join(placeholders, ","))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// Delete removes an enrollment. Deletion is terminal and independent of the
// status state machine. Returns sql.ErrNoRows when the id does not exist.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
