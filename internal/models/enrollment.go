package models

import (
	"fmt"
	"strings"
	"time"
)

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

// Pipeline states in order, followed by the secondary exit states.
const (
	EnrollmentStatusRequested EnrollmentStatus = "REQUESTED"
	EnrollmentStatusInvited   EnrollmentStatus = "INVITED"
	EnrollmentStatusConfirmed EnrollmentStatus = "CONFIRMED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusRejected  EnrollmentStatus = "REJECTED"
)

// AllEnrollmentStatuses lists every valid status, pipeline order first and
// exit states last. Summary views rely on this ordering.
var AllEnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusRequested,
	EnrollmentStatusInvited,
	EnrollmentStatusConfirmed,
	EnrollmentStatusCompleted,
	EnrollmentStatusWithdrawn,
	EnrollmentStatusRejected,
}

// Valid reports whether the status is a member of the closed state set.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusRequested, EnrollmentStatusInvited, EnrollmentStatusConfirmed,
		EnrollmentStatusCompleted, EnrollmentStatusWithdrawn, EnrollmentStatusRejected:
		return true
	}
	return false
}

// IsCascading reports whether moving an enrollment into this status drags
// every sibling sharing the same student and course along. Completed and
// withdrawn describe the student's relationship to the course itself, not
// to one variant of it.
func (s EnrollmentStatus) IsCascading() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusWithdrawn
}

// RequiresConfirmedDate reports whether entering this status needs a
// caller-supplied confirmation date.
func (s EnrollmentStatus) RequiresConfirmedDate() bool {
	return s == EnrollmentStatusConfirmed
}

// ParseEnrollmentStatus normalises an inbound status string.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, error) {
	status := EnrollmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown enrollment status %q", raw)
	}
	return status, nil
}

// Enrollment links a student to a course. Enrollments of the same student
// in the same course may coexist when they differ by variant.
type Enrollment struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	CourseID      string           `db:"course_id" json:"course_id"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	Variant       string           `db:"variant" json:"variant,omitempty"`
	ConfirmedDate *time.Time       `db:"confirmed_date" json:"confirmed_date,omitempty"`
	Notes         string           `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// CascadeKey identifies the cascade group the enrollment belongs to: all
// enrollments of one student in one course, regardless of variant.
func (e *Enrollment) CascadeKey() string {
	return e.StudentID + "\x00" + e.CourseID
}

// EnrollmentDetail enriches Enrollment with the student and course
// summaries embedded by the remote fetch.
type EnrollmentDetail struct {
	Enrollment
	StudentFirstName string `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string `db:"student_last_name" json:"student_last_name"`
	StudentEmail     string `db:"student_email" json:"student_email"`
	StudentPhone     string `db:"student_phone" json:"student_phone"`
	CourseName       string `db:"course_name" json:"course_name"`
}

// EnrollmentViewFilter narrows the cached collection for display.
// Zero values mean "no constraint".
type EnrollmentViewFilter struct {
	CourseID string
	Query    string
	From     *time.Time
	To       *time.Time
}
