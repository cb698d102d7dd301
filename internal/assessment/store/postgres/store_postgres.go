package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/sentinel"
)

const assessmentColumns = `run_id, transaction_id, customer_id, risk_score, risk_level,
	risk_factors, alerts, decision_path, routing_decisions, sanction_hits,
	pep_status, sar_required, case_id, reporting_status, review_deadline,
	sar_narrative, started_at, completed_at`

// PostgresStore persists assessments in the assessments table
// (migrations/001_assessments.sql).
type PostgresStore struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed assessment store.
func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts the assessment keyed by run ID.
func (s *PostgresStore) Save(ctx context.Context, a *models.Assessment) error {
	if a == nil || a.RunID == "" {
		return errors.New("save assessment: run id is required")
	}
	query := `INSERT INTO assessments (` + assessmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (run_id) DO UPDATE SET
			transaction_id = EXCLUDED.transaction_id,
			customer_id = EXCLUDED.customer_id,
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			risk_factors = EXCLUDED.risk_factors,
			alerts = EXCLUDED.alerts,
			decision_path = EXCLUDED.decision_path,
			routing_decisions = EXCLUDED.routing_decisions,
			sanction_hits = EXCLUDED.sanction_hits,
			pep_status = EXCLUDED.pep_status,
			sar_required = EXCLUDED.sar_required,
			case_id = EXCLUDED.case_id,
			reporting_status = EXCLUDED.reporting_status,
			review_deadline = EXCLUDED.review_deadline,
			sar_narrative = EXCLUDED.sar_narrative,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`

	var pep sql.NullBool
	if a.PEPStatus != nil {
		pep = sql.NullBool{Bool: *a.PEPStatus, Valid: true}
	}
	var deadline sql.NullTime
	if a.ReviewDeadline != nil {
		deadline = sql.NullTime{Time: *a.ReviewDeadline, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		a.RunID, a.TransactionID, a.CustomerID, a.RiskScore, string(a.RiskLevel),
		pq.Array(nonNil(a.RiskFactors)), pq.Array(nonNil(a.Alerts)),
		pq.Array(nonNil(a.DecisionPath)), pq.Array(nonNil(a.RoutingDecisions)),
		pq.Array(nonNil(a.SanctionHits)),
		pep, a.SARRequired, a.CaseID, string(a.ReportingStatus), deadline,
		a.SARNarrative, a.StartedAt, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByRunID(ctx context.Context, runID string) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE run_id = $1`
	a, err := scanAssessment(s.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find assessment by run id: %w", err)
	}
	return a, nil
}

// ListByCustomer returns the customer's assessments, newest first. A
// non-positive limit returns all of them.
func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments
		WHERE customer_id = $1
		ORDER BY completed_at DESC, run_id ASC`
	args := []any{customerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments by customer: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Assessment, 0)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateDisposition(ctx context.Context, runID string, status models.ReportingStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessments SET reporting_status = $2 WHERE run_id = $1`,
		runID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update disposition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update disposition rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (*models.Assessment, error) {
	var (
		a        models.Assessment
		level    string
		status   string
		pep      sql.NullBool
		deadline sql.NullTime
	)
	err := row.Scan(
		&a.RunID, &a.TransactionID, &a.CustomerID, &a.RiskScore, &level,
		pq.Array(&a.RiskFactors), pq.Array(&a.Alerts),
		pq.Array(&a.DecisionPath), pq.Array(&a.RoutingDecisions),
		pq.Array(&a.SanctionHits),
		&pep, &a.SARRequired, &a.CaseID, &status, &deadline,
		&a.SARNarrative, &a.StartedAt, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	a.RiskLevel = models.RiskLevel(level)
	a.ReportingStatus = models.ReportingStatus(status)
	if pep.Valid {
		v := pep.Bool
		a.PEPStatus = &v
	}
	if deadline.Valid {
		d := deadline.Time
		a.ReviewDeadline = &d
	}
	a.RiskFactors = nonNil(a.RiskFactors)
	a.Alerts = nonNil(a.Alerts)
	a.DecisionPath = nonNil(a.DecisionPath)
	a.RoutingDecisions = nonNil(a.RoutingDecisions)
	a.SanctionHits = nonNil(a.SanctionHits)
	return &a, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
