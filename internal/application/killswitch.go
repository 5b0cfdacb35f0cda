package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

// KillSwitch is the global authority to stop all money movement. It is
// constructed once at process start and injected into every component that
// gates on it. Local state is mirrored to a shared replicated store so that
// all instances agree within one round trip; when the store is unreachable
// the switch degrades to its local cache rather than failing the caller.
// That fail-open stance is deliberate: a flapping store must not freeze
// payouts on its own.
type KillSwitch struct {
	mu           sync.RWMutex
	local        domain.KillSwitchState
	store        ports.KillSwitchStore
	alerts       *AlertService
	metrics      ports.MetricsRecorder
	logger       *slog.Logger
	storeTimeout time.Duration
	nowFn        func() time.Time
	onTrigger    func(ctx context.Context, state domain.KillSwitchState)
}

type KillSwitchDeps struct {
	Store        ports.KillSwitchStore
	Alerts       *AlertService
	Metrics      ports.MetricsRecorder
	Logger       *slog.Logger
	StoreTimeout time.Duration
}

func NewKillSwitch(deps KillSwitchDeps) *KillSwitch {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.StoreTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &KillSwitch{
		store:        deps.Store,
		alerts:       deps.Alerts,
		metrics:      deps.Metrics,
		logger:       logger,
		storeTimeout: timeout,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// IsActive checks the local cache first and consults the shared store on the
// slow path. A store error falls back to the cached local state.
func (k *KillSwitch) IsActive(ctx context.Context) bool {
	k.mu.RLock()
	cached := k.local
	k.mu.RUnlock()
	if cached.Active {
		return true
	}
	if k.store == nil {
		return cached.Active
	}

	storeCtx, cancel := context.WithTimeout(ctx, k.storeTimeout)
	defer cancel()
	shared, err := k.store.Get(storeCtx)
	if err != nil {
		k.logger.WarnContext(ctx, "kill switch store read failed, using local state", "error", err)
		return cached.Active
	}
	k.mu.Lock()
	k.local = shared
	k.mu.Unlock()
	return shared.Active
}

func (k *KillSwitch) State(ctx context.Context) domain.KillSwitchState {
	k.IsActive(ctx)
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.local
}

// Trigger freezes the system. Idempotent; persistence and alert failures are
// logged but never returned.
func (k *KillSwitch) Trigger(ctx context.Context, reason string, metadata map[string]string) domain.KillSwitchState {
	now := k.nowFn()

	k.mu.Lock()
	if k.local.Active {
		state := k.local
		k.mu.Unlock()
		return state
	}
	k.local = domain.KillSwitchState{
		Active:      true,
		Reason:      reason,
		Metadata:    metadata,
		TriggeredAt: &now,
	}
	state := k.local
	hook := k.onTrigger
	k.mu.Unlock()

	if k.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, k.storeTimeout)
		if err := k.store.Set(storeCtx, state); err != nil {
			k.logger.ErrorContext(ctx, "kill switch state not persisted to shared store", "error", err)
		}
		cancel()
	}
	if k.metrics != nil {
		k.metrics.Increment("killswitch_triggered", map[string]string{"reason": reason})
	}
	if k.alerts != nil {
		k.alerts.Fire(ctx, domain.AlertTypeKillSwitchTripped, domain.AlertSeverityCritical,
			"kill switch tripped: "+reason, metadata)
	}
	if hook != nil {
		hook(ctx, state)
	}
	return state
}

// SetTriggerHook registers a callback invoked on the transition from
// inactive to active. Used by the service to publish the trip as a domain
// event.
func (k *KillSwitch) SetTriggerHook(hook func(ctx context.Context, state domain.KillSwitchState)) {
	k.mu.Lock()
	k.onTrigger = hook
	k.mu.Unlock()
}

// Resolve is the only path back to inactive and requires an explicit
// administrative action.
func (k *KillSwitch) Resolve(ctx context.Context, adminID string) domain.KillSwitchState {
	now := k.nowFn()

	k.mu.Lock()
	k.local = domain.KillSwitchState{Active: false, ResolvedAt: &now}
	state := k.local
	k.mu.Unlock()

	if k.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, k.storeTimeout)
		if err := k.store.Set(storeCtx, state); err != nil {
			k.logger.ErrorContext(ctx, "kill switch resolution not persisted to shared store", "error", err)
		}
		cancel()
	}
	if k.metrics != nil {
		k.metrics.Increment("killswitch_resolved", map[string]string{"admin_id": adminID})
	}
	k.logger.InfoContext(ctx, "kill switch resolved", "admin_id", adminID)
	return state
}

// CheckGate returns false (deny) whenever the switch is active.
func (k *KillSwitch) CheckGate(ctx context.Context, name string) bool {
	if k.IsActive(ctx) {
		k.logger.WarnContext(ctx, "gate denied by kill switch", "gate", name)
		return false
	}
	return true
}
