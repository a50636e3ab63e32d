package service

import "github.com/enrolldesk/enrolldesk-api/internal/models"

// expandCascade computes the minimal id set that must move together when
// transitioning the input ids to target.
//
// Non-cascading targets leave every enrollment independent: the result is
// the de-duplicated input. Cascading targets (completed, withdrawn) pull in
// every sibling sharing the input enrollment's (student, course) pair,
// whatever its variant, because those states describe the student's
// relationship to the course as a whole. Overlapping cascade groups in the
// input resolve to one group; ids absent from the snapshot stay in the
// output untouched since the remote store remains authoritative for them.
// Input order is preserved, expansion siblings follow.
func expandCascade(snapshot []models.EnrollmentDetail, ids []string, target models.EnrollmentStatus) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if !target.IsCascading() {
		return out
	}

	groups := make(map[string][]string, len(snapshot))
	byID := make(map[string]string, len(snapshot))
	for _, e := range snapshot {
		key := e.CascadeKey()
		groups[key] = append(groups[key], e.ID)
		byID[e.ID] = key
	}

	for _, id := range out[:len(out):len(out)] {
		key, ok := byID[id]
		if !ok {
			continue
		}
		for _, sibling := range groups[key] {
			if _, dup := seen[sibling]; dup {
				continue
			}
			seen[sibling] = struct{}{}
			out = append(out, sibling)
		}
	}
	return out
}
