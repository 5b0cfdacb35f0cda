package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

const killSwitchKey = "money:killswitch"

// RedisKillSwitchStore shares kill-switch state across all running instances.
// Redis being unavailable is surfaced to the caller, which falls back to its
// local view rather than blocking money movement on cache health.
type RedisKillSwitchStore struct {
	client *redis.Client
}

func NewRedisKillSwitchStore(client *redis.Client) *RedisKillSwitchStore {
	return &RedisKillSwitchStore{client: client}
}

func (s *RedisKillSwitchStore) Get(ctx context.Context) (domain.KillSwitchState, error) {
	raw, err := s.client.Get(ctx, killSwitchKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.KillSwitchState{}, nil
	}
	if err != nil {
		return domain.KillSwitchState{}, fmt.Errorf("get kill switch: %w", err)
	}
	var state domain.KillSwitchState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.KillSwitchState{}, fmt.Errorf("decode kill switch: %w", err)
	}
	return state, nil
}

func (s *RedisKillSwitchStore) Set(ctx context.Context, state domain.KillSwitchState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode kill switch: %w", err)
	}
	// No TTL: an active freeze must outlive any cache expiry window.
	if err := s.client.Set(ctx, killSwitchKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("set kill switch: %w", err)
	}
	return nil
}
