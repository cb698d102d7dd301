package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/requestcontext"
)

const (
	defaultMaxConcurrent = 5
	defaultListLimit     = 50

	batchSuccess   = "ok"
	batchFailure   = "failed"
	batchCancelled = "cancelled"
)

// Service coordinates assessment runs: it builds the initial state, runs the
// workflow, persists the projection and emits audit events.
type Service struct {
	runner         Runner
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	maxConcurrent  int

	locksMu sync.Mutex
	locks   map[string]*runLock
}

// runLock is released from the map once nobody holds or waits on it.
type runLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxConcurrent bounds how many batch items run at once. Values below 1
// keep the default.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// New constructs a Service.
func New(runner Runner, store Store, opts ...Option) *Service {
	s := &Service{
		runner:        runner,
		store:         store,
		logger:        slog.Default(),
		maxConcurrent: defaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BatchItem is one transaction and customer pair in a batch request.
type BatchItem struct {
	Transaction models.Transaction
	Customer    models.Customer
}

// BatchResult is the outcome of one batch item. Exactly one of Assessment and
// Err is set.
type BatchResult struct {
	Index      int
	State      models.State
	Assessment *models.Assessment
	Err        error
}

// Analyze runs a single assessment.
func (s *Service) Analyze(ctx context.Context, tx models.Transaction, customer models.Customer) (models.State, *models.Assessment, error) {
	initial := models.NewState(tx, customer, requestcontext.Now(ctx))

	final, err := s.runner.Run(ctx, initial)
	if err != nil {
		s.emit(ctx, audit.Event{
			RunID:      initial.RunID,
			CustomerID: customer.ID,
			Action:     string(audit.EventAssessmentFailed),
			Reason:     err.Error(),
		})
		return models.State{}, nil, err
	}

	assessment := models.NewAssessment(final, requestcontext.Now(ctx))
	if err := s.store.Save(ctx, assessment); err != nil {
		return models.State{}, nil, fmt.Errorf("persist assessment %s: %w", final.RunID, err)
	}

	s.metrics.IncrementDisposition(string(assessment.ReportingStatus), string(assessment.RiskLevel))
	s.emitOutcome(ctx, assessment)
	return final, assessment, nil
}

// AnalyzeBatch runs items with bounded concurrency. Failures are recorded per
// item and never cancel sibling items. Results are in input order.
func (s *Service) AnalyzeBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i, item := range items {
		results[i].Index = i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				s.metrics.IncrementBatchItem(batchCancelled)
				return nil
			}
			state, assessment, err := s.Analyze(ctx, item.Transaction, item.Customer)
			if err != nil {
				results[i].Err = err
				s.metrics.IncrementBatchItem(batchFailure)
				s.logger.WarnContext(ctx, "batch item failed",
					"index", i,
					"transaction_id", item.Transaction.ID,
					"error", err,
				)
				return nil
			}
			results[i].State = state
			results[i].Assessment = assessment
			s.metrics.IncrementBatchItem(batchSuccess)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Get returns a stored assessment.
func (s *Service) Get(ctx context.Context, runID string) (*models.Assessment, error) {
	return s.store.FindByRunID(ctx, runID)
}

// ListByCustomer returns a customer's assessments, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Assessment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.ListByCustomer(ctx, customerID, limit)
}

// Resolve closes a PENDING_REVIEW assessment as SAR_GENERATED or CLEARED.
func (s *Service) Resolve(ctx context.Context, runID string, disposition models.ReportingStatus) (*models.Assessment, error) {
	if disposition != models.StatusSARGenerated && disposition != models.StatusCleared {
		return nil, fmt.Errorf("%w: cannot resolve to %q", models.ErrInvalidDisposition, disposition)
	}

	unlock := s.lockRun(runID)
	defer unlock()

	a, err := s.store.FindByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if a.ReportingStatus != models.StatusPendingReview {
		return nil, fmt.Errorf("%w: assessment is %s, not %s",
			models.ErrInvalidDisposition, a.ReportingStatus, models.StatusPendingReview)
	}
	if err := s.store.UpdateDisposition(ctx, runID, disposition); err != nil {
		return nil, fmt.Errorf("resolve assessment %s: %w", runID, err)
	}

	previous := a.ReportingStatus
	a.ReportingStatus = disposition
	s.metrics.IncrementDisposition(string(disposition), string(a.RiskLevel))
	s.emit(ctx, audit.Event{
		RunID:      runID,
		CustomerID: a.CustomerID,
		Action:     string(audit.EventDispositionResolved),
		Decision:   string(disposition),
		Reason:     "resolved from " + string(previous),
		RiskScore:  a.RiskScore,
		RiskLevel:  string(a.RiskLevel),
	})
	return a, nil
}

// lockRun serialises resolutions of the same run within this process.
func (s *Service) lockRun(runID string) func() {
	s.locksMu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*runLock)
	}
	l, ok := s.locks[runID]
	if !ok {
		l = &runLock{}
		s.locks[runID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, runID)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func (s *Service) emitOutcome(ctx context.Context, a *models.Assessment) {
	base := audit.Event{
		RunID:      a.RunID,
		CustomerID: a.CustomerID,
		Decision:   string(a.ReportingStatus),
		RiskScore:  a.RiskScore,
		RiskLevel:  string(a.RiskLevel),
	}

	completed := base
	completed.Action = string(audit.EventAssessmentCompleted)
	s.emit(ctx, completed)

	outcome := base
	switch a.ReportingStatus {
	case models.StatusSARGenerated:
		outcome.Action = string(audit.EventSARGenerated)
		outcome.Reason = a.CaseID
	case models.StatusPendingReview:
		outcome.Action = string(audit.EventReviewRequested)
		if a.ReviewDeadline != nil {
			outcome.Reason = "review due " + a.ReviewDeadline.UTC().Format("2006-01-02T15:04:05Z")
		}
	case models.StatusCleared:
		outcome.Action = string(audit.EventCaseCleared)
	default:
		return
	}
	s.emit(ctx, outcome)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	s.logger.InfoContext(ctx, event.Action,
		"run_id", event.RunID,
		"decision", event.Decision,
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "audit emit failed",
			"run_id", event.RunID,
			"action", event.Action,
			"error", err,
		)
	}
}
