package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// SAR filings, review requests, reviewer resolutions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging:
	// completed and failed runs, cleared cases.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the assessment coordinator to capture key actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         string        `json:"id"`
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	RunID      string        `json:"run_id"`
	CustomerID string        `json:"customer_id,omitempty"`
	Action     string        `json:"action"`
	Decision   string        `json:"decision,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RiskScore  int           `json:"risk_score"`
	RiskLevel  string        `json:"risk_level,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventAssessmentCompleted AuditEvent = "assessment_completed"
	EventAssessmentFailed    AuditEvent = "assessment_failed"
	EventSARGenerated        AuditEvent = "sar_generated"
	EventReviewRequested     AuditEvent = "review_requested"
	EventCaseCleared         AuditEvent = "case_cleared"
	EventDispositionResolved AuditEvent = "disposition_resolved"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSARGenerated:        CategoryCompliance,
	EventReviewRequested:     CategoryCompliance,
	EventDispositionResolved: CategoryCompliance,

	EventAssessmentCompleted: CategoryOperations,
	EventAssessmentFailed:    CategoryOperations,
	EventCaseCleared:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
