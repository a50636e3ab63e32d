package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

type batchCall struct {
	ids           []string
	status        models.EnrollmentStatus
	confirmedDate *time.Time
}

type fakeEnrollmentStore struct {
	listResult  []models.EnrollmentDetail
	listErr     error
	batchErr    error
	deleteErr   error
	batchCalls  []batchCall
	deletedIDs  []string
	listInvoked int
}

func (f *fakeEnrollmentStore) ListAll(_ context.Context) ([]models.EnrollmentDetail, error) {
	f.listInvoked++
	return f.listResult, f.listErr
}

func (f *fakeEnrollmentStore) UpdateStatusBatch(_ context.Context, ids []string, status models.EnrollmentStatus, confirmedDate *time.Time) error {
	f.batchCalls = append(f.batchCalls, batchCall{ids: ids, status: status, confirmedDate: confirmedDate})
	return f.batchErr
}

func (f *fakeEnrollmentStore) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func newLifecycleFixture(seed ...models.EnrollmentDetail) (*LifecycleService, *fakeEnrollmentStore) {
	store := &fakeEnrollmentStore{}
	collection := NewEnrollmentCollection()
	collection.Replace(seed)
	return NewLifecycleService(store, collection, nil, nil), store
}

func TestLifecycleRefreshReplacesCollection(t *testing.T) {
	svc, store := newLifecycleFixture()
	store.listResult = []models.EnrollmentDetail{
		detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
	}

	err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Collection().Len())
}

func TestLifecycleRefreshStoreError(t *testing.T) {
	svc, store := newLifecycleFixture(detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested))
	store.listErr = errors.New("gateway timeout")

	err := svc.Refresh(context.Background())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRemoteStore.Code, appErr.Code)
	// A failed refresh must not drop the cached snapshot.
	assert.Equal(t, 1, svc.Collection().Len())
}

func TestLifecycleTransitionEmptyIsNoop(t *testing.T) {
	svc, store := newLifecycleFixture()

	outcome := svc.Transition(context.Background(), nil, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionNoop, outcome.Result)
	assert.Empty(t, store.batchCalls)
}

func TestLifecycleTransitionUnknownStatusFails(t *testing.T) {
	svc, store := newLifecycleFixture(detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested))

	outcome := svc.Transition(context.Background(), []string{"e1"}, models.EnrollmentStatus("DRAFT"), nil)
	assert.Equal(t, TransitionFailed, outcome.Result)
	require.Error(t, outcome.Err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(outcome.Err).Code)
	assert.Empty(t, store.batchCalls)
}

func TestLifecycleTransitionConfirmedWithoutDateSuspends(t *testing.T) {
	e := detail("e1", "s1", "c1", "", models.EnrollmentStatusInvited)
	svc, store := newLifecycleFixture(e)

	outcome := svc.Transition(context.Background(), []string{"e1"}, models.EnrollmentStatusConfirmed, nil)
	assert.Equal(t, TransitionNeedsConfirmationDate, outcome.Result)
	assert.Empty(t, store.batchCalls)

	got, ok := svc.Collection().Get("e1")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusInvited, got.Status)
}

func TestLifecycleTransitionConfirmedWithDate(t *testing.T) {
	svc, store := newLifecycleFixture(detail("e1", "s1", "c1", "", models.EnrollmentStatusInvited))

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)
	outcome := svc.Transition(context.Background(), []string{"e1"}, models.EnrollmentStatusConfirmed, &date)

	assert.Equal(t, TransitionApplied, outcome.Result)
	assert.Equal(t, 1, outcome.Affected)
	require.Len(t, store.batchCalls, 1)
	require.NotNil(t, store.batchCalls[0].confirmedDate)
	assert.True(t, store.batchCalls[0].confirmedDate.Equal(date))

	got, ok := svc.Collection().Get("e1")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedDate)
	assert.True(t, got.ConfirmedDate.Equal(date))
}

func TestLifecycleTransitionClearsDateLeavingConfirmed(t *testing.T) {
	stale := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	e := detail("e1", "s1", "c1", "", models.EnrollmentStatusConfirmed)
	e.ConfirmedDate = &stale
	svc, store := newLifecycleFixture(e)

	outcome := svc.Transition(context.Background(), []string{"e1"}, models.EnrollmentStatusCompleted, nil)
	assert.Equal(t, TransitionApplied, outcome.Result)

	require.Len(t, store.batchCalls, 1)
	assert.Nil(t, store.batchCalls[0].confirmedDate)

	got, ok := svc.Collection().Get("e1")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusCompleted, got.Status)
	assert.Nil(t, got.ConfirmedDate)
}

func TestLifecycleTransitionIgnoresDateForNonConfirmedTarget(t *testing.T) {
	svc, store := newLifecycleFixture(detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested))

	date := time.Now()
	outcome := svc.Transition(context.Background(), []string{"e1"}, models.EnrollmentStatusInvited, &date)
	assert.Equal(t, TransitionApplied, outcome.Result)

	require.Len(t, store.batchCalls, 1)
	assert.Nil(t, store.batchCalls[0].confirmedDate)
}

func TestLifecycleTransitionCascadesAcrossVariants(t *testing.T) {
	svc, store := newLifecycleFixture(
		detail("e1", "s1", "c1", "English", models.EnrollmentStatusInvited),
		detail("e2", "s1", "c1", "Irish", models.EnrollmentStatusRequested),
		detail("e3", "s2", "c1", "", models.EnrollmentStatusInvited),
	)

	outcome := svc.Transition(context.Background(), []string{"e1"}, models.EnrollmentStatusWithdrawn, nil)
	assert.Equal(t, TransitionApplied, outcome.Result)
	assert.Equal(t, 2, outcome.Affected)
	assert.ElementsMatch(t, []string{"e1", "e2"}, outcome.IDs)

	require.Len(t, store.batchCalls, 1)
	assert.ElementsMatch(t, []string{"e1", "e2"}, store.batchCalls[0].ids)

	sibling, ok := svc.Collection().Get("e2")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, sibling.Status)

	untouched, ok := svc.Collection().Get("e3")
	require.True(t, ok)
	assert.Equal(t, models.EnrollmentStatusInvited, untouched.Status)
}

func TestLifecycleTransitionStoreFailureLeavesCacheUntouched(t *testing.T) {
	svc, store := newLifecycleFixture(
		detail("e1", "s1", "c1", "English", models.EnrollmentStatusInvited),
		detail("e2", "s1", "c1", "Irish", models.EnrollmentStatusInvited),
	)
	store.batchErr = errors.New("store rejected the batch")

	outcome := svc.Transition(context.Background(), []string{"e1"}, models.EnrollmentStatusCompleted, nil)
	assert.Equal(t, TransitionFailed, outcome.Result)
	require.Error(t, outcome.Err)
	assert.Equal(t, appErrors.ErrRemoteStore.Code, appErrors.FromError(outcome.Err).Code)

	for _, id := range []string{"e1", "e2"} {
		got, ok := svc.Collection().Get(id)
		require.True(t, ok)
		assert.Equal(t, models.EnrollmentStatusInvited, got.Status)
	}
}

func TestLifecycleDelete(t *testing.T) {
	svc, store := newLifecycleFixture(detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested))

	err := svc.Delete(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, store.deletedIDs)
	assert.Equal(t, 0, svc.Collection().Len())
}

func TestLifecycleDeleteNotFound(t *testing.T) {
	svc, store := newLifecycleFixture()
	store.deleteErr = sql.ErrNoRows

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLifecycleDeleteEmptyID(t *testing.T) {
	svc, _ := newLifecycleFixture()

	err := svc.Delete(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
