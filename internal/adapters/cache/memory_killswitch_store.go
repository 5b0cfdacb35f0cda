package cache

import (
	"context"
	"sync"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

// MemoryKillSwitchStore backs single-process deployments and tests.
type MemoryKillSwitchStore struct {
	mu    sync.RWMutex
	state domain.KillSwitchState
}

func NewMemoryKillSwitchStore() *MemoryKillSwitchStore {
	return &MemoryKillSwitchStore{}
}

func (s *MemoryKillSwitchStore) Get(_ context.Context) (domain.KillSwitchState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *MemoryKillSwitchStore) Set(_ context.Context, state domain.KillSwitchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}
