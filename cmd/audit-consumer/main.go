// Command audit-consumer reads the audit topic and materializes events into
// Postgres so they can be queried per assessment run.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/config"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/logger"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/platform/postgres"
	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/consumer"
	auditpg "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("audit consumer exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("AML_KAFKA_BROKERS is required")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("AML_DATABASE_URL is required")
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	store := auditpg.New(db)

	router := consumer.NewRouter(log, nil)
	router.Register(audit.CategoryCompliance, consumer.NewComplianceHandler(store, log))
	router.Register(audit.CategoryOperations, consumer.NewOpsHandler(store, log))

	c, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup, router,
		[]consumer.Option{consumer.WithLogger(log)},
	)
	if err != nil {
		return err
	}
	defer c.Close()

	log.Info("starting audit consumer",
		"topic", cfg.Kafka.Topic,
		"group", cfg.Kafka.ConsumerGroup,
		"brokers", cfg.Kafka.Brokers,
	)
	return c.Run(ctx)
}
