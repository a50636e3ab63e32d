package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
)

func TestCollectionReplaceAndSnapshot(t *testing.T) {
	c := NewEnrollmentCollection()
	c.Replace([]models.EnrollmentDetail{
		detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
		detail("e2", "s2", "c1", "", models.EnrollmentStatusInvited),
	})

	assert.Equal(t, 2, c.Len())
	snapshot := c.Snapshot()
	assert.Len(t, snapshot, 2)

	// Snapshots are copies; mutating one must not leak into the cache.
	snapshot[0].Status = models.EnrollmentStatusRejected
	for _, e := range c.Snapshot() {
		assert.NotEqual(t, models.EnrollmentStatusRejected, e.Status)
	}
}

func TestCollectionApplyStatusPatchClearsConfirmedDate(t *testing.T) {
	stale := time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)
	e := detail("e1", "s1", "c1", "", models.EnrollmentStatusConfirmed)
	e.ConfirmedDate = &stale

	c := NewEnrollmentCollection()
	c.Replace([]models.EnrollmentDetail{e})

	matched := c.ApplyStatusPatch([]string{"e1"}, models.EnrollmentStatusCompleted, nil)
	assert.Equal(t, 1, matched)

	got, ok := c.Get("e1")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusCompleted, got.Status)
	assert.Nil(t, got.ConfirmedDate)
}

func TestCollectionApplyStatusPatchSetsConfirmedDate(t *testing.T) {
	c := NewEnrollmentCollection()
	c.Replace([]models.EnrollmentDetail{detail("e1", "s1", "c1", "", models.EnrollmentStatusInvited)})

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)
	c.ApplyStatusPatch([]string{"e1"}, models.EnrollmentStatusConfirmed, &date)

	got, ok := c.Get("e1")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedDate)
	assert.True(t, got.ConfirmedDate.Equal(date))
}

func TestCollectionApplyStatusPatchSkipsUnknownIDs(t *testing.T) {
	c := NewEnrollmentCollection()
	c.Replace([]models.EnrollmentDetail{detail("e1", "s1", "c1", "", models.EnrollmentStatusInvited)})

	matched := c.ApplyStatusPatch([]string{"e1", "ghost"}, models.EnrollmentStatusRejected, nil)
	assert.Equal(t, 1, matched)
}

func TestCollectionSubscribe(t *testing.T) {
	c := NewEnrollmentCollection()
	var events []ChangeEvent
	c.Subscribe(func(e ChangeEvent) { events = append(events, e) })

	c.Replace([]models.EnrollmentDetail{detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested)})
	c.Upsert(detail("e2", "s2", "c1", "", models.EnrollmentStatusRequested))
	c.ApplyStatusPatch([]string{"e1"}, models.EnrollmentStatusInvited, nil)
	c.Remove("e2")

	require.Len(t, events, 4)
	assert.Equal(t, ChangeReplaced, events[0].Type)
	assert.Equal(t, ChangeUpserted, events[1].Type)
	assert.Equal(t, ChangePatched, events[2].Type)
	assert.Equal(t, ChangeRemoved, events[3].Type)
	assert.Equal(t, 1, events[3].Size)
}

func TestCollectionRemoveMissing(t *testing.T) {
	c := NewEnrollmentCollection()
	assert.False(t, c.Remove("nope"))
}
