package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

type fakeSelectionStore struct {
	members    []string
	membersErr error
	clearErr   error
	cleared    []string
}

func (f *fakeSelectionStore) Members(_ context.Context, _ string) ([]string, error) {
	return f.members, f.membersErr
}

func (f *fakeSelectionStore) Clear(_ context.Context, sessionID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func newBulkFixture(maxSelection int, seed ...models.EnrollmentDetail) (*BulkService, *fakeEnrollmentStore, *fakeSelectionStore) {
	engine, store := newLifecycleFixture(seed...)
	selections := &fakeSelectionStore{}
	return NewBulkService(engine, selections, maxSelection, nil), store, selections
}

func TestBulkTransitionUsesSessionSelection(t *testing.T) {
	svc, store, selections := newBulkFixture(0,
		detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
		detail("e2", "s2", "c1", "", models.EnrollmentStatusRequested),
	)
	selections.members = []string{"e1", "e2"}

	outcome := svc.BulkTransition(context.Background(), "sess-1", nil, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionApplied, outcome.Result)
	assert.Equal(t, 2, outcome.Affected)
	require.Len(t, store.batchCalls, 1)
	assert.Equal(t, []string{"sess-1"}, selections.cleared)
}

func TestBulkTransitionExplicitIDsWinOverSession(t *testing.T) {
	svc, store, selections := newBulkFixture(0,
		detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
		detail("e2", "s2", "c1", "", models.EnrollmentStatusRequested),
	)
	selections.members = []string{"e2"}

	outcome := svc.BulkTransition(context.Background(), "sess-1", []string{"e1"}, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionApplied, outcome.Result)
	require.Len(t, store.batchCalls, 1)
	assert.Equal(t, []string{"e1"}, store.batchCalls[0].ids)
}

func TestBulkTransitionEmptySelectionIsNoop(t *testing.T) {
	svc, store, selections := newBulkFixture(0)
	selections.members = nil

	outcome := svc.BulkTransition(context.Background(), "sess-1", nil, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionNoop, outcome.Result)
	assert.Empty(t, store.batchCalls)
	assert.Empty(t, selections.cleared)
}

func TestBulkTransitionReportsExpandedCount(t *testing.T) {
	svc, _, selections := newBulkFixture(0,
		detail("e1", "s1", "c1", "English", models.EnrollmentStatusInvited),
		detail("e2", "s1", "c1", "Irish", models.EnrollmentStatusInvited),
	)
	selections.members = []string{"e1"}

	outcome := svc.BulkTransition(context.Background(), "sess-1", nil, models.EnrollmentStatusCompleted, nil)
	assert.Equal(t, TransitionApplied, outcome.Result)
	assert.Equal(t, 2, outcome.Affected)
	assert.ElementsMatch(t, []string{"e1", "e2"}, outcome.IDs)
}

func TestBulkTransitionSuspendsBeforeTouchingRecords(t *testing.T) {
	svc, store, selections := newBulkFixture(0,
		detail("e1", "s1", "c1", "", models.EnrollmentStatusInvited),
	)
	selections.members = []string{"e1"}

	outcome := svc.BulkTransition(context.Background(), "sess-1", nil, models.EnrollmentStatusConfirmed, nil)
	assert.Equal(t, TransitionNeedsConfirmationDate, outcome.Result)
	assert.Empty(t, store.batchCalls)
	assert.Empty(t, selections.cleared)
}

func TestBulkTransitionConfirmedWithDateResumes(t *testing.T) {
	svc, store, _ := newBulkFixture(0,
		detail("e1", "s1", "c1", "", models.EnrollmentStatusInvited),
	)

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)
	outcome := svc.BulkTransition(context.Background(), "sess-1", []string{"e1"}, models.EnrollmentStatusConfirmed, &date)
	assert.Equal(t, TransitionApplied, outcome.Result)
	require.Len(t, store.batchCalls, 1)
	require.NotNil(t, store.batchCalls[0].confirmedDate)
}

func TestBulkTransitionSelectionCap(t *testing.T) {
	svc, store, _ := newBulkFixture(2,
		detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
		detail("e2", "s2", "c1", "", models.EnrollmentStatusRequested),
		detail("e3", "s3", "c1", "", models.EnrollmentStatusRequested),
	)

	outcome := svc.BulkTransition(context.Background(), "", []string{"e1", "e2", "e3"}, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionFailed, outcome.Result)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(outcome.Err).Code)
	assert.Empty(t, store.batchCalls)
}

func TestBulkTransitionFailureKeepsSelection(t *testing.T) {
	svc, store, selections := newBulkFixture(0,
		detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
	)
	selections.members = []string{"e1"}
	store.batchErr = errors.New("store unavailable")

	outcome := svc.BulkTransition(context.Background(), "sess-1", nil, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionFailed, outcome.Result)
	assert.Empty(t, selections.cleared)
}

func TestBulkTransitionClearFailureDoesNotFailOutcome(t *testing.T) {
	svc, _, selections := newBulkFixture(0,
		detail("e1", "s1", "c1", "", models.EnrollmentStatusRequested),
	)
	selections.members = []string{"e1"}
	selections.clearErr = errors.New("redis down")

	outcome := svc.BulkTransition(context.Background(), "sess-1", nil, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionApplied, outcome.Result)
}

func TestBulkTransitionSelectionReadError(t *testing.T) {
	svc, store, selections := newBulkFixture(0)
	selections.membersErr = errors.New("redis down")

	outcome := svc.BulkTransition(context.Background(), "sess-1", nil, models.EnrollmentStatusInvited, nil)
	assert.Equal(t, TransitionFailed, outcome.Result)
	assert.Empty(t, store.batchCalls)
}
