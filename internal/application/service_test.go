package application_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	alertadapter "github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/alerts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/cache"
	eventadapter "github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/events"
	grpcadapter "github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/grpc"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/metrics"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/postgres"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/settlement"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
)

type fixture struct {
	svc     *application.Service
	repos   *postgres.Repositories
	bus     *eventadapter.MemoryBus
	alerts  *alertadapter.MemoryChannel
	metrics *metrics.MemoryRecorder
	kill    *application.KillSwitch
}

type fixtureEndpoints struct {
	task       string
	dispute    string
	proof      string
	settlement string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, fixtureEndpoints{})
}

func newFixtureWith(t *testing.T, endpoints fixtureEndpoints) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := postgres.NewRepositories()
	bus := eventadapter.NewMemoryBus()
	alertChannel := alertadapter.NewMemoryChannel()
	recorder := metrics.NewMemoryRecorder()
	alertSvc := application.NewAlertService(logger, alertChannel)
	kill := application.NewKillSwitch(application.KillSwitchDeps{
		Store:   cache.NewMemoryKillSwitchStore(),
		Alerts:  alertSvc,
		Metrics: recorder,
		Logger:  logger,
	})

	svc := application.NewService(application.Dependencies{
		Escrows:        repos.Escrows,
		MoneyStates:    repos.MoneyStates,
		MoneyEvents:    repos.MoneyEvents,
		Ledger:         repos.Ledger,
		EligibilityLog: repos.EligibilityLog,
		Idempotency:    repos.Idempotency,
		EventDedup:     repos.EventDedup,
		Outbox:         repos.Outbox,

		Tasks:      grpcadapter.NewTaskClient(endpoints.task),
		Disputes:   grpcadapter.NewDisputeClient(endpoints.dispute),
		Proofs:     grpcadapter.NewProofClient(endpoints.proof),
		Settlement: settlement.NewStubClient(endpoints.settlement),

		KillSwitch: kill,
		Alerts:     alertSvc,
		Metrics:    recorder,

		DomainEvents: bus,
		Analytics:    bus,
		DLQ:          bus,

		Logger: logger,
	})
	if err := svc.EnsureSystemAccounts(context.Background()); err != nil {
		t.Fatalf("EnsureSystemAccounts: %v", err)
	}
	return &fixture{svc: svc, repos: repos, bus: bus, alerts: alertChannel, metrics: recorder, kill: kill}
}

func userActor(key string) application.Actor {
	return application.Actor{SubjectID: "user_1", Role: "user", RequestID: "req-" + key, IdempotencyKey: key}
}

func adminActor(key string) application.Actor {
	return application.Actor{SubjectID: "admin_1", Role: "admin", RequestID: "req-" + key, IdempotencyKey: key}
}

const (
	cashAccount     = "acct_settlement_cash"
	clearingAccount = "acct_escrow_clearing"
	driftAccount    = "acct_system_drift"
)
