package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/augment"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/handler"
	assessmentmetrics "github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/reasoning"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/service"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/store/memory"
	pgstore "github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/store/postgres"
	cachestore "github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/store/redis"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/workflow"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/config"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/httpserver"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/logger"
	platformmetrics "github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/postgres"
	platformredis "github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/redis"
	httptransport "github.com/KUNALSHAWW/SentinelAI-AML/internal/transport/http"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/publisher"
	auditkafka "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/store/kafka"
	auditmemory "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	ruleCfg, err := rules.LoadConfig(cfg.RulesPath)
	if err != nil {
		return err
	}

	m := assessmentmetrics.New()
	reasoner := buildReasoner(cfg.Reasoning, log, m)

	var checks []httptransport.HealthCheck
	store, storeChecks, storeClosers, err := buildStore(ctx, cfg, log, m)
	// Registered before the error check so a failed Redis dial still
	// closes an already opened Postgres pool.
	closers = append(closers, storeClosers...)
	if err != nil {
		return err
	}
	checks = append(checks, storeChecks...)

	auditStore, auditChecks, auditClose, err := buildAuditStore(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	checks = append(checks, auditChecks...)
	closers = append(closers, auditClose)

	pub := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.AuditBuffer),
		publisher.WithLogger(log),
	)
	// Runs before the audit sink closes so buffered events drain first.
	closers = append(closers, pub.Close)

	engine, err := workflow.NewEngine(ruleCfg,
		augment.New(reasoner, augment.WithLogger(log), augment.WithMetrics(m)),
		workflow.WithLogger(log),
		workflow.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	svc := service.New(engine, store,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(pub),
		service.WithMaxConcurrent(cfg.MaxConcurrent),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: platformmetrics.New(),
		Health:  checks,
		Routes:  []httptransport.Registrar{handler.New(svc, log)},
	})
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting aml service", "addr", cfg.Addr, "reasoning_enabled", cfg.Reasoning.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// buildReasoner returns the HTTP reasoning client, or reasoning.Disabled when
// no API key is configured.
func buildReasoner(cfg config.ReasoningConfig, log *slog.Logger, m *assessmentmetrics.Metrics) reasoning.Reasoner {
	if cfg.APIKey == "" {
		log.Warn("reasoning API key not set; running deterministic rules only")
		return reasoning.Disabled{}
	}
	client, err := reasoning.NewClient(cfg.APIKey,
		reasoning.WithBaseURL(cfg.BaseURL),
		reasoning.WithModel(cfg.Model),
		reasoning.WithTimeout(cfg.Timeout),
		reasoning.WithMaxRetries(cfg.MaxRetries),
		reasoning.WithTemperature(cfg.Temperature),
		reasoning.WithMaxTokens(cfg.MaxTokens),
		reasoning.WithLogger(log),
		reasoning.WithMetrics(m),
	)
	if err != nil {
		log.Warn("reasoning client unavailable; running deterministic rules only", "error", err)
		return reasoning.Disabled{}
	}
	return client
}

// buildStore picks Postgres when a database URL is set, otherwise memory,
// and layers the Redis cache on top when Redis is configured.
func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger, m *assessmentmetrics.Metrics) (service.Store, []httptransport.HealthCheck, []func(), error) {
	var (
		store   service.Store = memory.NewInMemoryStore()
		checks  []httptransport.HealthCheck
		closers []func()
	)

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, closers, err
		}
		closers = append(closers, func() { _ = db.Close() })
		pg := pgstore.New(db)
		store = pg
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: pg.Ping})
		log.Info("using postgres assessment store")
	}

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, closers, err
	}
	if client != nil {
		closers = append(closers, func() { _ = client.Close() })
		store = cachestore.New(store, client.Client,
			cachestore.WithTTL(cfg.AssessmentCacheTTL),
			cachestore.WithLogger(log),
			cachestore.WithMetrics(m),
		)
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: client.Health})
		log.Info("assessment cache enabled", "ttl", cfg.AssessmentCacheTTL)
	}
	return store, checks, closers, nil
}

// buildAuditStore streams audit events to Kafka when brokers are configured,
// otherwise keeps them in memory.
func buildAuditStore(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Store, []httptransport.HealthCheck, func(), error) {
	if len(cfg.Brokers) == 0 {
		return auditmemory.NewInMemoryStore(), nil, func() {}, nil
	}
	sink, err := auditkafka.New(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, func() {}, err
	}
	if err := sink.EnsureTopic(ctx, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		sink.Close()
		return nil, nil, func() {}, err
	}
	log.Info("audit events streaming to kafka", "topic", sink.Topic(), "brokers", cfg.Brokers)
	return sink, []httptransport.HealthCheck{{Name: "kafka", Check: sink.Ping}}, sink.Close, nil
}
