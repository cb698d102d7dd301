package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
)

const eventColumns = `id, category, occurred_at, run_id, customer_id, action,
	decision, reason, risk_score, risk_level, request_id`

// Store materializes audit events in the audit_events table
// (migrations/002_audit_events.sql). The Kafka consumer writes here so events
// can be queried by run long after the topic retention has passed.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts the event. It is idempotent on the event ID, so redelivered
// Kafka records are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.RunID == "" {
		return errors.New("append audit event: run id is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	query := `INSERT INTO audit_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.RunID,
		event.CustomerID,
		event.Action,
		event.Decision,
		event.Reason,
		event.RiskScore,
		event.RiskLevel,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByRun returns the events of one assessment run in time order.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE run_id = $1 ORDER BY occurred_at ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events by run: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
		)
		if err := rows.Scan(
			&e.ID, &category, &e.Timestamp, &e.RunID, &e.CustomerID, &e.Action,
			&e.Decision, &e.Reason, &e.RiskScore, &e.RiskLevel, &e.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
