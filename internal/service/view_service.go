package service

import (
	"sort"
	"strings"
	"time"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
)

// ViewService derives filtered views and status groupings from collection
// snapshots. It is pure and read-only: every call recomputes from the
// snapshot it is handed, which at this domain's collection sizes is simpler
// than maintaining incremental indexes and just as correct.
type ViewService struct{}

// NewViewService constructs the service.
func NewViewService() *ViewService {
	return &ViewService{}
}

// Filter narrows a snapshot by course, free-text query and creation date
// range. Filters compose independently, so their application order never
// changes the result set.
func (s *ViewService) Filter(snapshot []models.EnrollmentDetail, filter models.EnrollmentViewFilter) []models.EnrollmentDetail {
	from, to := normalizeDateRange(filter.From, filter.To)
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]models.EnrollmentDetail, 0, len(snapshot))
	for _, e := range snapshot {
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if query != "" && !matchesQuery(&e, query) {
			continue
		}
		if from != nil && e.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && e.CreatedAt.After(*to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// matchesQuery checks the query against each student contact field on its
// own, so a match in any one field suffices and text never matches across
// field boundaries.
func matchesQuery(e *models.EnrollmentDetail, query string) bool {
	for _, field := range []string{e.StudentFirstName, e.StudentLastName, e.StudentEmail, e.StudentPhone} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// normalizeDateRange widens the bounds to whole days in local time: the
// from bound snaps to the start of its day and the to bound to the end of
// its day, so a same-day from/to selects that entire day inclusively.
func normalizeDateRange(from, to *time.Time) (*time.Time, *time.Time) {
	var lo, hi *time.Time
	if from != nil {
		f := *from
		start := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, f.Location())
		lo = &start
	}
	if to != nil {
		t := *to
		end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
		hi = &end
	}
	return lo, hi
}

// Buckets partitions the given (typically pre-filtered) enrollments into
// one list per status for pipeline display. Every status is present in the
// result, empty buckets included.
func (s *ViewService) Buckets(enrollments []models.EnrollmentDetail) map[models.EnrollmentStatus][]models.EnrollmentDetail {
	buckets := make(map[models.EnrollmentStatus][]models.EnrollmentDetail, len(models.AllEnrollmentStatuses))
	for _, status := range models.AllEnrollmentStatuses {
		buckets[status] = []models.EnrollmentDetail{}
	}
	for _, e := range enrollments {
		buckets[e.Status] = append(buckets[e.Status], e)
	}
	return buckets
}

// Counts tallies enrollments per status. Summary displays feed this the
// unfiltered snapshot so totals ignore whatever filters are active.
func (s *ViewService) Counts(snapshot []models.EnrollmentDetail) map[models.EnrollmentStatus]int {
	counts := make(map[models.EnrollmentStatus]int, len(models.AllEnrollmentStatuses))
	for _, status := range models.AllEnrollmentStatuses {
		counts[status] = 0
	}
	for _, e := range snapshot {
		counts[e.Status]++
	}
	return counts
}

// SortCreatedDesc orders newest-first, for activity-style views.
func (s *ViewService) SortCreatedDesc(enrollments []models.EnrollmentDetail) {
	sort.SliceStable(enrollments, func(i, j int) bool {
		return enrollments[i].CreatedAt.After(enrollments[j].CreatedAt)
	})
}

// SortStudentName orders by student last then first name, for participant
// lists.
func (s *ViewService) SortStudentName(enrollments []models.EnrollmentDetail) {
	sort.SliceStable(enrollments, func(i, j int) bool {
		li := strings.ToLower(enrollments[i].StudentLastName)
		lj := strings.ToLower(enrollments[j].StudentLastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(enrollments[i].StudentFirstName) < strings.ToLower(enrollments[j].StudentFirstName)
	})
}
