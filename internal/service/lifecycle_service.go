package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

// enrollmentStore is the remote system-of-record boundary. UpdateStatusBatch
// must be atomic across the id set; the engine relies on that instead of
// implementing its own rollback.
type enrollmentStore interface {
	ListAll(ctx context.Context) ([]models.EnrollmentDetail, error)
	UpdateStatusBatch(ctx context.Context, ids []string, status models.EnrollmentStatus, confirmedDate *time.Time) error
	Delete(ctx context.Context, id string) error
}

// TransitionResult classifies the outcome of a transition call.
type TransitionResult string

// Possible transition results. NeedsConfirmationDate and Noop are expected,
// recoverable conditions, not failures: no write has happened and the
// caller may re-invoke with the missing input.
const (
	TransitionApplied               TransitionResult = "applied"
	TransitionNeedsConfirmationDate TransitionResult = "needs_confirmation_date"
	TransitionNoop                  TransitionResult = "noop"
	TransitionFailed                TransitionResult = "failed"
)

// TransitionOutcome reports what a transition did. When Result is Applied,
// IDs holds the cascade-expanded set that moved and Affected its size —
// which can exceed what the caller selected. When Result is Failed, Err
// carries the cause and the cached collection is guaranteed untouched.
type TransitionOutcome struct {
	Result   TransitionResult `json:"result"`
	IDs      []string         `json:"ids,omitempty"`
	Affected int              `json:"affected"`
	Err      error            `json:"-"`
}

// LifecycleService is the transition executor: it validates a requested
// status change, expands it across cascade groups, writes it to the remote
// store in one batch, and reconciles the cached collection on success.
type LifecycleService struct {
	store      enrollmentStore
	collection *EnrollmentCollection
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(store enrollmentStore, collection *EnrollmentCollection, metrics *MetricsService, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collection == nil {
		collection = NewEnrollmentCollection()
	}
	return &LifecycleService{store: store, collection: collection, metrics: metrics, logger: logger}
}

// Collection exposes the owned cache for read-only consumers (views,
// handlers). Mutation stays inside the engine services.
func (s *LifecycleService) Collection() *EnrollmentCollection {
	return s.collection
}

// Refresh replaces the cached collection with a fresh remote snapshot.
func (s *LifecycleService) Refresh(ctx context.Context) error {
	enrollments, err := s.store.ListAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRemoteStore.Code, appErrors.ErrRemoteStore.Status, "failed to fetch enrollments")
	}
	s.collection.Replace(enrollments)
	s.logger.Info("enrollment collection refreshed", zap.Int("count", len(enrollments)))
	return nil
}

// Transition moves the given enrollments to target.
//
// The confirmed state is a suspend point: without a caller-supplied date
// the executor reports NeedsConfirmationDate and performs no write — it
// never guesses a date. For any other target the confirmed date is
// explicitly cleared so the date-iff-confirmed invariant holds after every
// write, even on records that drifted while edited elsewhere. Cascading
// targets are expanded over the cached snapshot before the single batched
// remote update; the cache is only patched after that update succeeds.
func (s *LifecycleService) Transition(ctx context.Context, ids []string, target models.EnrollmentStatus, confirmedDate *time.Time) TransitionOutcome {
	if len(ids) == 0 {
		return TransitionOutcome{Result: TransitionNoop}
	}
	if !target.Valid() {
		return TransitionOutcome{
			Result: TransitionFailed,
			Err:    appErrors.Clone(appErrors.ErrValidation, "unknown target status"),
		}
	}
	if target.RequiresConfirmedDate() && confirmedDate == nil {
		return TransitionOutcome{Result: TransitionNeedsConfirmationDate}
	}

	expanded := expandCascade(s.collection.Snapshot(), ids, target)

	patchDate := confirmedDate
	if !target.RequiresConfirmedDate() {
		patchDate = nil
	}

	if err := s.store.UpdateStatusBatch(ctx, expanded, target, patchDate); err != nil {
		s.logger.Error("batched status update failed",
			zap.String("target", string(target)),
			zap.Int("ids", len(expanded)),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordTransition(target, TransitionFailed, len(expanded))
		}
		return TransitionOutcome{
			Result: TransitionFailed,
			Err:    appErrors.Wrap(err, appErrors.ErrRemoteStore.Code, appErrors.ErrRemoteStore.Status, "status update rejected by store"),
		}
	}

	s.collection.ApplyStatusPatch(expanded, target, patchDate)
	if s.metrics != nil {
		s.metrics.RecordTransition(target, TransitionApplied, len(expanded))
	}
	s.logger.Info("enrollments transitioned",
		zap.String("target", string(target)),
		zap.Int("affected", len(expanded)))
	return TransitionOutcome{Result: TransitionApplied, IDs: expanded, Affected: len(expanded)}
}

// Delete removes one enrollment. Deletion is terminal, needs no cascade and
// bypasses the state machine entirely; the cache entry is dropped only
// after the remote delete succeeded.
func (s *LifecycleService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		s.logger.Error("enrollment delete failed", zap.String("id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrRemoteStore.Code, appErrors.ErrRemoteStore.Status, "failed to delete enrollment")
	}
	s.collection.Remove(id)
	return nil
}
