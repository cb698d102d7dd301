package service

import (
	"context"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// Runner executes one assessment workflow. *workflow.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, initial models.State) (models.State, error)
}

// Store persists assessment projections.
type Store interface {
	Save(ctx context.Context, a *models.Assessment) error
	FindByRunID(ctx context.Context, runID string) (*models.Assessment, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Assessment, error)
	UpdateDisposition(ctx context.Context, runID string, status models.ReportingStatus) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
