package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/sentinel"
)

// InMemoryStore keeps assessments in a map. It is the default store when no
// database is configured.
type InMemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]*models.Assessment
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		assessments: make(map[string]*models.Assessment),
	}
}

// Save stores a copy of the assessment, replacing any earlier one with the
// same run ID.
func (s *InMemoryStore) Save(_ context.Context, a *models.Assessment) error {
	if a == nil || a.RunID == "" {
		return errors.New("save assessment: run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.RunID] = clone(a)
	return nil
}

func (s *InMemoryStore) FindByRunID(_ context.Context, runID string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[runID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// ListByCustomer returns the customer's assessments, newest first.
func (s *InMemoryStore) ListByCustomer(_ context.Context, customerID string, limit int) ([]*models.Assessment, error) {
	s.mu.RLock()
	out := make([]*models.Assessment, 0)
	for _, a := range s.assessments {
		if a.CustomerID == customerID {
			out = append(out, clone(a))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) UpdateDisposition(_ context.Context, runID string, status models.ReportingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[runID]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.ReportingStatus = status
	return nil
}

// Clear removes every assessment.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = make(map[string]*models.Assessment)
}

func clone(a *models.Assessment) *models.Assessment {
	c := *a
	c.RiskFactors = append([]string{}, a.RiskFactors...)
	c.Alerts = append([]string{}, a.Alerts...)
	c.DecisionPath = append([]string{}, a.DecisionPath...)
	c.RoutingDecisions = append([]string{}, a.RoutingDecisions...)
	c.SanctionHits = append([]string{}, a.SanctionHits...)
	if a.PEPStatus != nil {
		v := *a.PEPStatus
		c.PEPStatus = &v
	}
	if a.ReviewDeadline != nil {
		d := *a.ReviewDeadline
		c.ReviewDeadline = &d
	}
	return &c
}
