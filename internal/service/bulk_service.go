package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
)

type transitioner interface {
	Collection() *EnrollmentCollection
	Transition(ctx context.Context, ids []string, target models.EnrollmentStatus, confirmedDate *time.Time) TransitionOutcome
}

type selectionStore interface {
	Members(ctx context.Context, sessionID string) ([]string, error)
	Clear(ctx context.Context, sessionID string) error
}

// BulkService coordinates transitions over a user-selected set: it expands
// the selection across cascade groups, hands the expanded set to the
// executor as one call, and invalidates the session's selection once the
// underlying records changed.
type BulkService struct {
	engine       transitioner
	selections   selectionStore
	maxSelection int
	logger       *zap.Logger
}

// NewBulkService constructs the coordinator. maxSelection caps the
// pre-expansion selection size; zero disables the cap.
func NewBulkService(engine transitioner, selections selectionStore, maxSelection int, logger *zap.Logger) *BulkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{engine: engine, selections: selections, maxSelection: maxSelection, logger: logger}
}

// BulkTransition moves every selected enrollment (and its cascade
// siblings) to target in one batched call.
//
// ids may be passed explicitly; when empty the session's stored selection
// is used. An empty effective selection is a no-op. The confirmed-date
// suspend point is surfaced before any record is touched. On success the
// outcome reports the expanded count — which may exceed what was selected —
// and the session's selection is cleared because the records it referred to
// changed underneath it.
func (s *BulkService) BulkTransition(ctx context.Context, sessionID string, ids []string, target models.EnrollmentStatus, confirmedDate *time.Time) TransitionOutcome {
	if len(ids) == 0 && sessionID != "" && s.selections != nil {
		stored, err := s.selections.Members(ctx, sessionID)
		if err != nil {
			return TransitionOutcome{
				Result: TransitionFailed,
				Err:    appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read selection"),
			}
		}
		ids = stored
	}
	if len(ids) == 0 {
		return TransitionOutcome{Result: TransitionNoop}
	}
	if s.maxSelection > 0 && len(ids) > s.maxSelection {
		return TransitionOutcome{
			Result: TransitionFailed,
			Err:    appErrors.Clone(appErrors.ErrValidation, "selection exceeds the bulk operation limit"),
		}
	}
	if target.RequiresConfirmedDate() && confirmedDate == nil {
		return TransitionOutcome{Result: TransitionNeedsConfirmationDate}
	}

	expanded := expandCascade(s.engine.Collection().Snapshot(), ids, target)
	if len(expanded) > len(ids) {
		s.logger.Info("bulk selection expanded across cascade groups",
			zap.Int("selected", len(ids)),
			zap.Int("expanded", len(expanded)))
	}

	outcome := s.engine.Transition(ctx, expanded, target, confirmedDate)
	if outcome.Result != TransitionApplied {
		return outcome
	}

	// A successful bulk transition invalidates whatever the session had
	// selected: the records underneath the selection changed.
	if sessionID != "" && s.selections != nil {
		if err := s.selections.Clear(ctx, sessionID); err != nil {
			// The transition itself succeeded; a stale selection is
			// recoverable session state, so log and move on.
			s.logger.Warn("failed to clear selection after bulk transition",
				zap.String("session", sessionID), zap.Error(err))
		}
	}
	return outcome
}
