package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/augment"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/requestcontext"
)

// Node names.
const (
	NodeInitialScreening = "initial_screening"
	NodeCryptoAnalysis   = "crypto_analysis"
	NodeGeoAnalysis      = "geo_analysis"
	NodeBehavioral       = "behavioral_analysis"
	NodeDocumentCheck    = "document_check"
	NodeSanctionsCheck   = "sanctions_check"
	NodePEPCheck         = "pep_check"
	NodeEnhancedDD       = "enhanced_dd"
	NodeRiskScoring      = "risk_scoring"
	NodeSARGeneration    = "sar_generation"
	NodeHumanReview      = "human_review"
	NodeCaseCleared      = "case_cleared"
)

// ReviewWindow is how long a reviewer has to resolve a pending case.
const ReviewWindow = 24 * time.Hour

const caseIDHexLen = 12

// StandardGraph wires the rule stages and reasoning supplements into the
// assessment state machine.
func StandardGraph(cfg *rules.Config, aug *augment.Augmenter) Graph {
	nodes := []Node{
		{Name: NodeInitialScreening, Run: initialScreening()},
		{Name: NodeCryptoAnalysis, Run: augmented(rules.Crypto(cfg), aug.Crypto)},
		{Name: NodeGeoAnalysis, Run: fromStage(rules.Geographic(cfg))},
		{Name: NodeBehavioral, Run: fromStage(rules.Behavioral(cfg))},
		{Name: NodeDocumentCheck, Run: augmented(rules.DocumentFlags(NodeDocumentCheck), aug.Documents)},
		{Name: NodeSanctionsCheck, Run: augmented(rules.Sanctions(cfg), aug.Sanctions)},
		{Name: NodePEPCheck, Run: augmented(rules.PEP(cfg), aug.PEP)},
		{Name: NodeEnhancedDD, Run: func(ctx context.Context, s models.State) (models.State, error) {
			return aug.EnhancedDueDiligence(ctx, s), nil
		}},
		{Name: NodeRiskScoring, Run: fromStage(rules.Aggregate(cfg))},
		{Name: NodeSARGeneration, Terminal: true, Disposition: models.StatusSARGenerated,
			Run: closing(models.StatusSARGenerated, sarGeneration(aug))},
		{Name: NodeHumanReview, Terminal: true, Disposition: models.StatusPendingReview,
			Run: closing(models.StatusPendingReview, humanReview)},
		{Name: NodeCaseCleared, Terminal: true, Disposition: models.StatusCleared,
			Run: closing(models.StatusCleared, caseCleared)},
	}

	g := Graph{
		Entry:   NodeInitialScreening,
		Scoring: NodeRiskScoring,
		Nodes:   make(map[string]Node, len(nodes)),
		Edges: map[string]string{
			NodeGeoAnalysis:   NodeBehavioral,
			NodeBehavioral:    NodeDocumentCheck,
			NodeDocumentCheck: NodeSanctionsCheck,
			NodeEnhancedDD:    NodeRiskScoring,
		},
		Routers: map[string]Router{
			NodeInitialScreening: {Name: RouterInitial, Route: routeInitial(cfg)},
			NodeCryptoAnalysis:   {Name: RouterCrypto, Route: routeCrypto},
			NodeSanctionsCheck:   {Name: RouterSanctions, Route: routeSanctions},
			NodePEPCheck:         {Name: RouterPEP, Route: routePEP},
			NodeRiskScoring:      {Name: RouterFinal, Route: routeFinal(cfg)},
		},
		Transitions: map[string]map[string]string{
			NodeInitialScreening: {
				OutcomeCryptoPath:       NodeCryptoAnalysis,
				OutcomeLargeTransaction: NodeSanctionsCheck,
				OutcomeNewAccountAlert:  NodeEnhancedDD,
				OutcomeStandardFlow:     NodeGeoAnalysis,
			},
			NodeCryptoAnalysis: {
				OutcomeCryptoHighRisk: NodeEnhancedDD,
				OutcomeCryptoNormal:   NodeGeoAnalysis,
			},
			NodeSanctionsCheck: {
				OutcomeHitFound: NodeSARGeneration,
				OutcomeClear:    NodePEPCheck,
			},
			NodePEPCheck: {
				OutcomePEPFound: NodeEnhancedDD,
				OutcomeNoPEP:    NodeRiskScoring,
			},
			NodeRiskScoring: {
				OutcomeCriticalSAR:  NodeSARGeneration,
				OutcomeHighRiskSAR:  NodeSARGeneration,
				OutcomeMediumReview: NodeHumanReview,
				OutcomeLowRiskClear: NodeCaseCleared,
			},
		},
	}
	for _, n := range nodes {
		g.Nodes[n.Name] = n
	}
	return g
}

// CaseID derives the SAR case identifier from the run and transaction.
func CaseID(runID, transactionID string) string {
	sum := sha256.Sum256([]byte(runID + "|" + transactionID))
	return "SAR-" + strings.ToUpper(hex.EncodeToString(sum[:])[:caseIDHexLen])
}

func fromStage(stage rules.Stage) NodeFunc {
	return func(_ context.Context, s models.State) (models.State, error) {
		return stage(s)
	}
}

// augmented runs a rule stage followed by its best-effort supplement.
func augmented(stage rules.Stage, supplement func(context.Context, models.State) models.State) NodeFunc {
	return func(ctx context.Context, s models.State) (models.State, error) {
		next, err := stage(s)
		if err != nil {
			return models.State{}, err
		}
		return supplement(ctx, next), nil
	}
}

func initialScreening() NodeFunc {
	screen := rules.Screening()
	return func(_ context.Context, s models.State) (models.State, error) {
		next, err := screen(s)
		if err != nil {
			return models.State{}, err
		}
		next = next.Clone()
		next.Checkpoint("entry", NodeInitialScreening)
		return next, nil
	}
}

// closing assigns the node's disposition once fn has run.
func closing(status models.ReportingStatus, fn NodeFunc) NodeFunc {
	return func(ctx context.Context, s models.State) (models.State, error) {
		if !status.IsClosing() {
			return models.State{}, fmt.Errorf("%w: %q", models.ErrInvalidDisposition, status)
		}
		next, err := fn(ctx, s)
		if err != nil {
			return models.State{}, err
		}
		next.ReportingStatus = status
		return next, nil
	}
}

func sarGeneration(aug *augment.Augmenter) NodeFunc {
	return func(ctx context.Context, s models.State) (models.State, error) {
		next := s.Clone()
		next.CaseID = CaseID(s.RunID, s.Transaction.ID)
		narrative := aug.Narrative(ctx, s)
		next.SARNarrative = &narrative
		next.Attach(models.StageResult{
			Stage:   models.StageSARGeneration,
			Details: narrative,
			Error:   narrative.Error,
		})
		return next, nil
	}
}

func humanReview(ctx context.Context, s models.State) (models.State, error) {
	next := s.Clone()
	deadline := requestcontext.Now(ctx).Add(ReviewWindow)
	next.ReviewDeadline = &deadline
	next.Checkpoint("routing", NodeHumanReview)
	return next, nil
}

func caseCleared(_ context.Context, s models.State) (models.State, error) {
	next := s.Clone()
	next.Checkpoint("routing", "cleared")
	return next, nil
}
