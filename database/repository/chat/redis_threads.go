// File: database/repository/chat/redis_threads.go
package chatRepo

import (
	"context"
	"encoding/json"
	"time"

	"parkwise/models"

	"github.com/go-redis/redis/v8"
)

const threadKeyPrefix = "chat:thread:"

// ThreadCacheStore layers a Redis TTL cache over another Persistence for the
// hot per-thread state while delegating approvals and the ledger unchanged.
// Writes go through to the inner store, so the cache can be flushed freely.
type ThreadCacheStore struct {
	Persistence

	client *redis.Client
	ttl    time.Duration
}

func NewThreadCacheStore(inner Persistence, client *redis.Client, ttl time.Duration) *ThreadCacheStore {
	return &ThreadCacheStore{Persistence: inner, client: client, ttl: ttl}
}

func (s *ThreadCacheStore) GetThread(ctx context.Context, threadID string) (*models.ConversationState, error) {
	key := threadKeyPrefix + threadID
	data, err := s.client.Get(ctx, key).Result()
	if err == nil {
		var state models.ConversationState
		if jsonErr := json.Unmarshal([]byte(data), &state); jsonErr == nil {
			return &state, nil
		}
		// Unreadable cache entry: fall through to the inner store.
	} else if err != redis.Nil {
		return nil, err
	}

	state, err := s.Persistence.GetThread(ctx, threadID)
	if err != nil || state == nil {
		return state, err
	}
	if b, jsonErr := json.Marshal(state); jsonErr == nil {
		s.client.Set(ctx, key, b, s.ttl)
	}
	return state, nil
}

func (s *ThreadCacheStore) UpsertThread(ctx context.Context, threadID string, state models.ConversationState) error {
	if err := s.Persistence.UpsertThread(ctx, threadID, state); err != nil {
		return err
	}
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, threadKeyPrefix+threadID, b, s.ttl).Err()
}
