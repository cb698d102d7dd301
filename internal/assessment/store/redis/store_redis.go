package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/sentinel"
)

const (
	assessmentKeyPrefix = "aml:assessment:"
	defaultTTL          = 15 * time.Minute
)

// Backing is the durable store the cache sits in front of.
type Backing interface {
	Save(ctx context.Context, a *models.Assessment) error
	FindByRunID(ctx context.Context, runID string) (*models.Assessment, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Assessment, error)
	UpdateDisposition(ctx context.Context, runID string, status models.ReportingStatus) error
}

// CachedStore is a read-through, write-through Redis cache over a Backing
// store. Redis failures degrade to the backing store and are only logged.
type CachedStore struct {
	next    Backing
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a CachedStore.
type Option func(*CachedStore)

// WithTTL sets the cache entry lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *CachedStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *CachedStore) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CachedStore) {
		s.metrics = m
	}
}

// New wraps next with a Redis cache.
func New(next Backing, client *redis.Client, opts ...Option) *CachedStore {
	s := &CachedStore{
		next:   next,
		client: client,
		ttl:    defaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *CachedStore) Save(ctx context.Context, a *models.Assessment) error {
	if err := s.next.Save(ctx, a); err != nil {
		return err
	}
	s.put(ctx, a)
	return nil
}

func (s *CachedStore) FindByRunID(ctx context.Context, runID string) (*models.Assessment, error) {
	cached, err := s.get(ctx, runID)
	switch {
	case err == nil:
		s.metrics.IncrementCacheHit()
		return cached, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		s.logger.WarnContext(ctx, "assessment cache read failed",
			"run_id", runID,
			"error", err,
		)
	}
	s.metrics.IncrementCacheMiss()

	a, err := s.next.FindByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	s.put(ctx, a)
	return a, nil
}

// ListByCustomer is not cached.
func (s *CachedStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Assessment, error) {
	return s.next.ListByCustomer(ctx, customerID, limit)
}

// UpdateDisposition writes the updated record back into the cache so a
// failed invalidation cannot leave a stale status readable for the TTL.
// Deletion is the fallback when the refresh cannot be written.
func (s *CachedStore) UpdateDisposition(ctx context.Context, runID string, status models.ReportingStatus) error {
	if err := s.next.UpdateDisposition(ctx, runID, status); err != nil {
		return err
	}
	fresh, err := s.next.FindByRunID(ctx, runID)
	if err == nil && s.put(ctx, fresh) == nil {
		return nil
	}
	if err := s.client.Del(ctx, key(runID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "assessment cache invalidation failed",
			"run_id", runID,
			"error", err,
		)
	}
	return nil
}

func (s *CachedStore) get(ctx context.Context, runID string) (*models.Assessment, error) {
	raw, err := s.client.Get(ctx, key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cached assessment: %w", err)
	}
	var a models.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode cached assessment: %w", err)
	}
	return &a, nil
}

func (s *CachedStore) put(ctx context.Context, a *models.Assessment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		s.logger.WarnContext(ctx, "assessment cache encode failed", "run_id", a.RunID, "error", err)
		return err
	}
	if err := s.client.Set(ctx, key(a.RunID), raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "assessment cache write failed", "run_id", a.RunID, "error", err)
		return err
	}
	return nil
}

func key(runID string) string {
	return assessmentKeyPrefix + runID
}
