package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SelectionRepository keeps the per-session set of "checked" enrollment ids
// in Redis. The selection is session state owned by the caller; the engine
// only clears it after a successful bulk transition.
type SelectionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(client *redis.Client, ttl time.Duration) *SelectionRepository {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SelectionRepository{client: client, ttl: ttl}
}

func selectionKey(sessionID string) string {
	return fmt.Sprintf("selection:%s", sessionID)
}

// Add inserts ids into the session's selection and refreshes its TTL.
func (r *SelectionRepository) Add(ctx context.Context, sessionID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	key := selectionKey(sessionID)
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add selection: %w", err)
	}
	return nil
}

// Remove drops ids from the session's selection.
func (r *SelectionRepository) Remove(ctx context.Context, sessionID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := r.client.SRem(ctx, selectionKey(sessionID), members...).Err(); err != nil {
		return fmt.Errorf("remove selection: %w", err)
	}
	return nil
}

// Members returns the ids currently selected in the session.
func (r *SelectionRepository) Members(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, selectionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}
	return ids, nil
}

// Clear removes the session's selection entirely.
func (r *SelectionRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, selectionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}
