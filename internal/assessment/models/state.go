package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Keys of the per-stage results attached to State.Analysis.
const (
	StageGeographic           = "geographic_risk"
	StageBehavioral           = "behavioral_analysis"
	StageCrypto               = "crypto_risk"
	StageSanctions            = "sanctions_screening"
	StageSanctionsReview      = "sanctions_llm_review"
	StagePEP                  = "pep_screening"
	StageDocuments            = "document_analysis"
	StageEnhancedDueDiligence = "enhanced_due_diligence"
	StageRiskScoring          = "risk_scoring"
	StageSARGeneration        = "sar_generation"
)

// StageResult is the structured breakdown a stage attaches to the state.
// Scored results feed the aggregator; Details holds the stage-specific
// breakdown type.
type StageResult struct {
	Stage   string `json:"stage"`
	Score   int    `json:"score"`
	Scored  bool   `json:"scored"`
	Details any    `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SanctionDetail describes one sanctions hit.
type SanctionDetail struct {
	Party      string  `json:"party"`
	MatchedTo  string  `json:"matched_to"`
	List       string  `json:"list"`
	MatchType  string  `json:"match_type"`
	Confidence float64 `json:"confidence"`
}

// PEPDetails records why a customer was flagged as politically exposed.
type PEPDetails struct {
	MatchedTerms []string `json:"matched_terms,omitempty"`
	MatchType    string   `json:"match_type"`
	Confidence   float64  `json:"confidence"`
	Source       string   `json:"source"`
}

// SARNarrative is the filing narrative. Error is set instead of Text when
// the narrative could not be produced.
type SARNarrative struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// State is the analysis context threaded through every workflow node.
// Stages receive a State and return a superset of it; collections are
// append-only and nothing is removed within a run.
type State struct {
	RunID     string
	StartedAt time.Time

	Transaction Transaction
	Customer    Customer

	RiskFactors      []string
	Alerts           []string
	DecisionPath     []string
	RoutingDecisions []string

	SanctionHits      []string
	SanctionDetails   []SanctionDetail
	SanctionsScreened bool

	PEPStatus  *bool
	PEPDetails *PEPDetails

	Analysis []StageResult

	RiskScore   int
	RiskLevel   RiskLevel
	SARRequired bool
	Scored      bool

	CaseID          string
	ReportingStatus ReportingStatus
	SARNarrative    *SARNarrative
	ReviewDeadline  *time.Time
}

// NewState creates the initial state for a run. A transaction without a
// timestamp is stamped with startedAt.
func NewState(tx Transaction, customer Customer, startedAt time.Time) State {
	if tx.Timestamp.IsZero() {
		tx.Timestamp = startedAt
	}
	return State{
		RunID:       uuid.NewString(),
		StartedAt:   startedAt,
		Transaction: tx.clone(),
		Customer:    customer.clone(),
	}
}

// Clone returns a deep copy so a stage can append without aliasing the
// caller's slices.
func (s State) Clone() State {
	out := s
	out.Transaction = s.Transaction.clone()
	out.Customer = s.Customer.clone()
	out.RiskFactors = cloneStrings(s.RiskFactors)
	out.Alerts = cloneStrings(s.Alerts)
	out.DecisionPath = cloneStrings(s.DecisionPath)
	out.RoutingDecisions = cloneStrings(s.RoutingDecisions)
	out.SanctionHits = cloneStrings(s.SanctionHits)
	if s.SanctionDetails != nil {
		out.SanctionDetails = append([]SanctionDetail(nil), s.SanctionDetails...)
	}
	if s.PEPStatus != nil {
		v := *s.PEPStatus
		out.PEPStatus = &v
	}
	if s.PEPDetails != nil {
		d := *s.PEPDetails
		d.MatchedTerms = cloneStrings(s.PEPDetails.MatchedTerms)
		out.PEPDetails = &d
	}
	if s.Analysis != nil {
		out.Analysis = append([]StageResult(nil), s.Analysis...)
	}
	if s.SARNarrative != nil {
		n := *s.SARNarrative
		out.SARNarrative = &n
	}
	if s.ReviewDeadline != nil {
		d := *s.ReviewDeadline
		out.ReviewDeadline = &d
	}
	return out
}

// AddFactor appends a risk factor code.
func (s *State) AddFactor(code string) {
	s.RiskFactors = append(s.RiskFactors, code)
}

// AddAlert appends a human-readable finding.
func (s *State) AddAlert(alert string) {
	s.Alerts = append(s.Alerts, alert)
}

// Checkpoint appends a "<stage>:<checkpoint>" token to the decision path.
func (s *State) Checkpoint(stage, checkpoint string) {
	s.DecisionPath = append(s.DecisionPath, stage+":"+checkpoint)
}

// RecordRoute appends a "<router>:<outcome>" token to both the routing
// decisions and the decision path.
func (s *State) RecordRoute(router, outcome string) {
	token := router + ":" + outcome
	s.RoutingDecisions = append(s.RoutingDecisions, token)
	s.DecisionPath = append(s.DecisionPath, token)
}

// Attach adds a stage result. A result already attached under the same
// stage key is kept and false is returned.
func (s *State) Attach(r StageResult) bool {
	if _, ok := s.Result(r.Stage); ok {
		return false
	}
	s.Analysis = append(s.Analysis, r)
	return true
}

// AddSanctionHit records a hit; hits are never removed.
func (s *State) AddSanctionHit(d SanctionDetail) {
	s.SanctionHits = append(s.SanctionHits, d.Party)
	s.SanctionDetails = append(s.SanctionDetails, d)
}

// SetPEP raises the PEP status. A true status is never lowered.
func (s *State) SetPEP(status bool) {
	if s.IsPEP() {
		return
	}
	s.PEPStatus = &status
}

// Result returns the stage result attached under key.
func (s State) Result(stage string) (StageResult, bool) {
	for _, r := range s.Analysis {
		if r.Stage == stage {
			return r, true
		}
	}
	return StageResult{}, false
}

// IsPEP reports whether the PEP status has been set to true.
func (s State) IsPEP() bool {
	return s.PEPStatus != nil && *s.PEPStatus
}

// HasFactor reports whether code has been recorded.
func (s State) HasFactor(code string) bool {
	for _, f := range s.RiskFactors {
		if f == code {
			return true
		}
	}
	return false
}

// HasFactorContaining reports whether any recorded factor contains one of
// the given fragments.
func (s State) HasFactorContaining(fragments ...string) bool {
	for _, f := range s.RiskFactors {
		for _, frag := range fragments {
			if strings.Contains(f, frag) {
				return true
			}
		}
	}
	return false
}
