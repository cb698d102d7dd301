package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/augment"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
)

const tracerName = "aml.workflow"

// ErrUnknownOutcome is returned when a router yields a label the
// transition table does not declare.
var ErrUnknownOutcome = errors.New("unknown routing outcome")

// StageComputationError aborts a run. Node names the node that failed.
type StageComputationError struct {
	Node string
	Err  error
}

func (e *StageComputationError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *StageComputationError) Unwrap() error {
	return e.Err
}

// Engine walks a validated Graph.
type Engine struct {
	graph   Graph
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine builds the standard assessment engine.
func NewEngine(cfg *rules.Config, aug *augment.Augmenter, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: rules config is required", ErrInvalidGraph)
	}
	if aug == nil {
		aug = augment.New(nil)
	}
	return NewEngineWithGraph(StandardGraph(cfg, aug), opts...)
}

// NewEngineWithGraph validates g and builds an engine over it.
func NewEngineWithGraph(g Graph, opts ...Option) (*Engine, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		graph:  g,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the graph from the entry node until a terminal node closes
// the run. The input state is not modified. On error no state is returned.
func (e *Engine) Run(ctx context.Context, initial models.State) (models.State, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.Run",
		trace.WithAttributes(
			attribute.String("run_id", initial.RunID),
			attribute.String("transaction_id", initial.Transaction.ID),
		),
	)
	defer span.End()

	start := time.Now()
	state, err := e.run(ctx, initial.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		e.logger.ErrorContext(ctx, "assessment run failed",
			"run_id", initial.RunID,
			"error", err,
		)
		return models.State{}, err
	}
	e.metrics.ObserveRunLatency(time.Since(start))

	span.SetAttributes(
		attribute.Int("risk_score", state.RiskScore),
		attribute.String("risk_level", string(state.RiskLevel)),
		attribute.String("reporting_status", string(state.ReportingStatus)),
	)
	e.logger.InfoContext(ctx, "assessment run completed",
		"run_id", state.RunID,
		"risk_score", state.RiskScore,
		"risk_level", state.RiskLevel,
		"reporting_status", state.ReportingStatus,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return state, nil
}

func (e *Engine) run(ctx context.Context, state models.State) (models.State, error) {
	current := e.graph.Entry
	for {
		if err := ctx.Err(); err != nil {
			return models.State{}, err
		}
		node := e.graph.Nodes[current]

		if node.Terminal && !state.Scored && e.graph.Scoring != "" {
			var err error
			state, err = e.runNode(ctx, e.graph.Nodes[e.graph.Scoring], state)
			if err != nil {
				return models.State{}, err
			}
		}

		var err error
		state, err = e.runNode(ctx, node, state)
		if err != nil {
			return models.State{}, err
		}
		if node.Terminal {
			return state, nil
		}

		next, err := e.next(ctx, current, &state)
		if err != nil {
			return models.State{}, err
		}
		current = next
	}
}

func (e *Engine) runNode(ctx context.Context, node Node, state models.State) (models.State, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.node."+node.Name,
		trace.WithAttributes(attribute.String("node", node.Name)),
	)
	defer span.End()

	start := time.Now()
	state.Checkpoint(node.Name, "start")
	out, err := node.Run(ctx, state)
	e.metrics.ObserveNodeLatency(node.Name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "node failed")
		return models.State{}, &StageComputationError{Node: node.Name, Err: err}
	}
	out.Checkpoint(node.Name, "complete")

	e.logger.DebugContext(ctx, "workflow node completed",
		"run_id", out.RunID,
		"node", node.Name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// next resolves the successor of current, recording the routing decision
// when a router applies.
func (e *Engine) next(ctx context.Context, current string, state *models.State) (string, error) {
	if edge, ok := e.graph.Edges[current]; ok {
		return edge, nil
	}
	router := e.graph.Routers[current]
	outcome := router.Route(*state)
	target, ok := e.graph.Transitions[current][outcome]
	if !ok {
		return "", &StageComputationError{
			Node: current,
			Err:  fmt.Errorf("%w: %s:%s", ErrUnknownOutcome, router.Name, outcome),
		}
	}
	state.RecordRoute(router.Name, outcome)
	e.metrics.IncrementRouting(router.Name, outcome)
	trace.SpanFromContext(ctx).AddEvent("route", trace.WithAttributes(
		attribute.String("router", router.Name),
		attribute.String("outcome", outcome),
		attribute.String("next", target),
	))
	return target, nil
}
