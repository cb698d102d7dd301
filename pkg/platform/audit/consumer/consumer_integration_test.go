//go:build integration

package consumer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/consumer"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/store/kafka"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit/store/memory"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/testutil/containers"
)

func TestConsumer_MaterializesProducedEvents(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	producer, err := kafka.New([]string{rp.Broker}, "aml.audit.consumer")
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))

	events := []audit.Event{
		{ID: "e1", Category: audit.CategoryOperations, RunID: "run-1", Action: string(audit.EventAssessmentCompleted), Timestamp: time.Now().UTC()},
		{ID: "e2", Category: audit.CategoryCompliance, RunID: "run-1", Action: string(audit.EventSARGenerated), Timestamp: time.Now().UTC()},
	}
	for _, e := range events {
		require.NoError(t, producer.Append(ctx, e))
	}

	store := memory.NewInMemoryStore()
	router := consumer.NewRouter(nil, nil)
	router.Register(audit.CategoryCompliance, consumer.NewComplianceHandler(store, nil))
	router.Register(audit.CategoryOperations, consumer.NewOpsHandler(store, nil))

	c, err := consumer.New([]string{rp.Broker}, producer.Topic(), "aml-test", router, nil)
	require.NoError(t, err)
	defer c.Close()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	require.Eventually(t, func() bool {
		got, _ := store.ListByRun(ctx, "run-1")
		return len(got) == 2
	}, 60*time.Second, 200*time.Millisecond)

	stop()
	assert.NoError(t, <-done)
}
