package models

import "time"

// Assessment is the public projection of a finished run. It is what the
// stores persist and the HTTP layer returns.
type Assessment struct {
	RunID            string          `json:"run_id"`
	TransactionID    string          `json:"transaction_id,omitempty"`
	CustomerID       string          `json:"customer_id,omitempty"`
	RiskScore        int             `json:"risk_score"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	RiskFactors      []string        `json:"risk_factors"`
	Alerts           []string        `json:"alerts"`
	DecisionPath     []string        `json:"decision_path"`
	RoutingDecisions []string        `json:"routing_decisions"`
	SanctionHits     []string        `json:"sanction_hits"`
	PEPStatus        *bool           `json:"pep_status"`
	SARRequired      bool            `json:"sar_required"`
	CaseID           string          `json:"case_id,omitempty"`
	ReportingStatus  ReportingStatus `json:"reporting_status"`
	ReviewDeadline   *time.Time      `json:"review_deadline,omitempty"`
	SARNarrative     string          `json:"sar_narrative,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      time.Time       `json:"completed_at"`
}

// NewAssessment projects a final state.
func NewAssessment(s State, completedAt time.Time) *Assessment {
	a := &Assessment{
		RunID:            s.RunID,
		TransactionID:    s.Transaction.ID,
		CustomerID:       s.Customer.ID,
		RiskScore:        s.RiskScore,
		RiskLevel:        s.RiskLevel,
		RiskFactors:      nonNil(s.RiskFactors),
		Alerts:           nonNil(s.Alerts),
		DecisionPath:     nonNil(s.DecisionPath),
		RoutingDecisions: nonNil(s.RoutingDecisions),
		SanctionHits:     nonNil(s.SanctionHits),
		SARRequired:      s.SARRequired,
		CaseID:           s.CaseID,
		ReportingStatus:  s.ReportingStatus,
		StartedAt:        s.StartedAt,
		CompletedAt:      completedAt,
	}
	if s.PEPStatus != nil {
		v := *s.PEPStatus
		a.PEPStatus = &v
	}
	if s.ReviewDeadline != nil {
		d := *s.ReviewDeadline
		a.ReviewDeadline = &d
	}
	if s.SARNarrative != nil {
		a.SARNarrative = s.SARNarrative.Text
		if a.SARNarrative == "" && s.SARNarrative.Error != "" {
			a.SARNarrative = "narrative unavailable: " + s.SARNarrative.Error
		}
	}
	return a
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
