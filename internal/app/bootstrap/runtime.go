package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	alertadapter "github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/alerts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/cache"
	eventadapter "github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/events"
	grpcadapter "github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/grpc"
	httpadapter "github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/http"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/metrics"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/postgres"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/adapters/settlement"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	worker     *eventadapter.Worker
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	repos := postgres.NewRepositories()

	var killStore ports.KillSwitchStore
	if cfg.RedisURL != "" {
		client, connectErr := cache.Connect(ctx, cfg.RedisURL)
		if connectErr != nil {
			return nil, connectErr
		}
		killStore = cache.NewRedisKillSwitchStore(client)
	} else {
		killStore = cache.NewMemoryKillSwitchStore()
	}

	recorder := metrics.NewMemoryRecorder()
	alertSvc := application.NewAlertService(logger, alertadapter.NewLogChannel(logger))
	killSwitch := application.NewKillSwitch(application.KillSwitchDeps{
		Store:   killStore,
		Alerts:  alertSvc,
		Metrics: recorder,
		Logger:  logger,
	})

	var domainPublisher ports.DomainPublisher
	var analyticsPublisher ports.AnalyticsPublisher
	var dlqPublisher ports.DLQPublisher
	var consumer ports.EventConsumer
	if len(cfg.KafkaBrokers) > 0 {
		publisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, nil)
		if pubErr != nil {
			return nil, pubErr
		}
		kafkaConsumer, consErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, []string{cfg.TopicTaskCompleted})
		if consErr != nil {
			return nil, consErr
		}
		domainPublisher, analyticsPublisher, dlqPublisher = publisher, publisher, publisher
		consumer = kafkaConsumer
	} else {
		bus := eventadapter.NewMemoryBus()
		domainPublisher, analyticsPublisher, dlqPublisher = bus, bus, bus
		consumer = bus
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:         cfg.ServiceID,
			IdempotencyTTL:      cfg.IdempotencyTTL,
			EventDedupTTL:       cfg.EventDedupTTL,
			StuckThreshold:      cfg.StuckThreshold,
			MaxRecoveryAttempts: cfg.MaxRecoveryAttempts,
			DriftCeilingCents:   cfg.DriftCeilingCents,
		},
		Escrows:        repos.Escrows,
		MoneyStates:    repos.MoneyStates,
		MoneyEvents:    repos.MoneyEvents,
		Ledger:         repos.Ledger,
		EligibilityLog: repos.EligibilityLog,
		Idempotency:    repos.Idempotency,
		EventDedup:     repos.EventDedup,
		Outbox:         repos.Outbox,

		Tasks:      grpcadapter.NewTaskClient(cfg.TaskGRPCURL),
		Disputes:   grpcadapter.NewDisputeClient(cfg.DisputeGRPCURL),
		Proofs:     grpcadapter.NewProofClient(cfg.ProofGRPCURL),
		Settlement: settlement.NewStubClient(cfg.SettlementURL),

		KillSwitch: killSwitch,
		Alerts:     alertSvc,
		Metrics:    recorder,

		DomainEvents: domainPublisher,
		Analytics:    analyticsPublisher,
		DLQ:          dlqPublisher,

		Logger: logger,
	})

	if err := service.EnsureSystemAccounts(ctx); err != nil {
		return nil, err
	}

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewMoneyInternalServer(service))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return nil, err
	}

	worker := eventadapter.NewWorker(logger, service, consumer, dlqPublisher, cfg.ConsumerPollInterval, cfg.SweepInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		worker:     worker,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		if err := r.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
