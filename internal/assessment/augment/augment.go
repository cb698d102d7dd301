// Package augment holds the best-effort reasoning supplements that run
// alongside the deterministic rule stages. A supplement never fails a run:
// when the reasoner is unavailable the state is returned as it was, or with
// an unscored result that records the error.
package augment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/reasoning"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
)

// Step names, used as the metric label when a supplement is skipped.
const (
	StepCrypto               = "crypto"
	StepSanctions            = "sanctions"
	StepPEP                  = "pep"
	StepDocuments            = "documents"
	StepEnhancedDueDiligence = "enhanced_dd"
	StepNarrative            = "sar_narrative"
)

const (
	llmPEPConfidence = 0.6
	eddDefaultScore  = 50
	matchLLMAnalysis = "LLM_ANALYSIS"
)

// SanctionsReview is attached under models.StageSanctionsReview.
type SanctionsReview struct {
	PartiesScreened int      `json:"parties_screened"`
	PotentialMatch  bool     `json:"potential_match"`
	RiskCodes       []string `json:"risk_codes"`
	Confidence      float64  `json:"confidence"`
	Analysis        string   `json:"analysis"`
}

// DocumentReview is attached under models.StageDocuments.
type DocumentReview struct {
	DocumentsReviewed int      `json:"documents_reviewed"`
	RiskCodes         []string `json:"risk_codes,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
	Analysis          string   `json:"analysis,omitempty"`
}

// DueDiligence is attached under models.StageEnhancedDueDiligence.
type DueDiligence struct {
	RiskCodes        []string         `json:"risk_codes,omitempty"`
	Confidence       float64          `json:"confidence,omitempty"`
	RecommendedLevel models.RiskLevel `json:"recommended_level,omitempty"`
	Analysis         string           `json:"analysis,omitempty"`
}

// Augmenter runs the reasoning supplements.
type Augmenter struct {
	reasoner reasoning.Reasoner
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Augmenter)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Augmenter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Augmenter) {
		a.metrics = m
	}
}

// New constructs an Augmenter. A nil reasoner behaves as reasoning.Disabled.
func New(r reasoning.Reasoner, opts ...Option) *Augmenter {
	if r == nil {
		r = reasoning.Disabled{}
	}
	a := &Augmenter{reasoner: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Crypto appends CRYPTO_ codes suggested by the reasoner once the crypto
// stage subtotal reaches rules.CryptoReviewThreshold.
func (a *Augmenter) Crypto(ctx context.Context, s models.State) models.State {
	r, ok := s.Result(models.StageCrypto)
	if !ok {
		return s
	}
	breakdown, ok := r.Details.(rules.CryptoBreakdown)
	if !ok || !breakdown.ReviewEligible {
		return s
	}

	resp, err := a.ask(ctx, s, StepCrypto, cryptoPrompt(s))
	if err != nil {
		return s
	}
	next := s.Clone()
	for _, code := range reasoning.ExtractRiskCodes(resp) {
		if strings.HasPrefix(code, "CRYPTO_") && !next.HasFactor(code) {
			next.AddFactor(code)
		}
	}
	return next
}

// Sanctions attaches reasoner commentary on the screened parties. Hits are
// neither added nor removed.
func (a *Augmenter) Sanctions(ctx context.Context, s models.State) models.State {
	parties := s.Transaction.Parties
	if len(parties) == 0 {
		return s
	}
	resp, err := a.ask(ctx, s, StepSanctions, sanctionsPrompt(s))
	if err != nil {
		return s
	}
	upper := strings.ToUpper(resp)
	next := s.Clone()
	next.Attach(models.StageResult{
		Stage: models.StageSanctionsReview,
		Details: SanctionsReview{
			PartiesScreened: len(parties),
			PotentialMatch:  strings.Contains(upper, "MATCH") && !strings.Contains(upper, "NO_MATCH"),
			RiskCodes:       reasoning.ExtractRiskCodes(resp),
			Confidence:      reasoning.ExtractConfidence(resp, reasoning.DefaultConfidence),
			Analysis:        resp,
		},
	})
	return next
}

// PEP lets the reasoner raise the PEP status and confidence. A status that
// is already true is never lowered.
func (a *Augmenter) PEP(ctx context.Context, s models.State) models.State {
	resp, err := a.ask(ctx, s, StepPEP, pepPrompt(s))
	if err != nil {
		return s
	}

	next := s.Clone()
	if reasoning.IndicatesPEP(resp) {
		confidence := reasoning.ExtractConfidence(resp, llmPEPConfidence)
		if !next.IsPEP() {
			next.SetPEP(true)
			next.PEPDetails = &models.PEPDetails{
				MatchType:  matchLLMAnalysis,
				Confidence: confidence,
				Source:     "reasoning",
			}
			next.AddFactor("PEP_MATCH")
			next.AddAlert("PEP indicator: reasoning review identified politically exposed status")
		} else if next.PEPDetails != nil {
			next.PEPDetails.Confidence = max(next.PEPDetails.Confidence, confidence)
		}
	}
	for _, code := range reasoning.ExtractRiskCodes(resp) {
		if strings.Contains(code, "PEP") && !next.HasFactor(code) {
			next.AddFactor(code)
		}
	}
	return next
}

// Documents reviews supporting documents and attaches a scored
// document_analysis result. Transactions without documents are left to
// rules.DocumentFlags.
func (a *Augmenter) Documents(ctx context.Context, s models.State) models.State {
	docs := s.Transaction.Documents
	if len(docs) == 0 {
		return s
	}

	resp, err := a.ask(ctx, s, StepDocuments, documentsPrompt(s))
	next := s.Clone()
	if err != nil {
		next.Attach(models.StageResult{
			Stage:   models.StageDocuments,
			Details: DocumentReview{DocumentsReviewed: len(docs)},
			Error:   err.Error(),
		})
		return next
	}

	codes := reasoning.FilterCodes(reasoning.ExtractRiskCodes(resp), isDocumentCode)
	for _, code := range codes {
		next.AddFactor(code)
	}
	if len(codes) > 0 {
		next.AddAlert("Document analysis flags: " + strings.Join(codes, ", "))
	}
	next.Attach(models.StageResult{
		Stage:  models.StageDocuments,
		Score:  reasoning.ExtractScore(resp, 0),
		Scored: true,
		Details: DocumentReview{
			DocumentsReviewed: len(docs),
			RiskCodes:         codes,
			Confidence:        reasoning.ExtractConfidence(resp, reasoning.DefaultConfidence),
			Analysis:          resp,
		},
	})
	return next
}

// EnhancedDueDiligence asks for a holistic review of the findings so far.
// On failure an unscored result carrying the error is attached.
func (a *Augmenter) EnhancedDueDiligence(ctx context.Context, s models.State) models.State {
	resp, err := a.ask(ctx, s, StepEnhancedDueDiligence, enhancedDueDiligencePrompt(s))
	next := s.Clone()
	if err != nil {
		next.Attach(models.StageResult{Stage: models.StageEnhancedDueDiligence, Error: err.Error()})
		return next
	}

	codes := reasoning.ExtractRiskCodes(resp)
	for _, code := range codes {
		if !next.HasFactor(code) {
			next.AddFactor(code)
		}
	}
	next.Attach(models.StageResult{
		Stage:  models.StageEnhancedDueDiligence,
		Score:  reasoning.ExtractScore(resp, eddDefaultScore),
		Scored: true,
		Details: DueDiligence{
			RiskCodes:        codes,
			Confidence:       reasoning.ExtractConfidence(resp, reasoning.DefaultConfidence),
			RecommendedLevel: reasoning.ExtractRiskLevel(resp),
			Analysis:         resp,
		},
	})
	return next
}

// Narrative drafts the SAR narrative. The returned narrative carries the
// error instead of text when the reasoner is unavailable.
func (a *Augmenter) Narrative(ctx context.Context, s models.State) models.SARNarrative {
	resp, err := a.ask(ctx, s, StepNarrative, narrativePrompt(s))
	if err != nil {
		return models.SARNarrative{Error: err.Error()}
	}
	return models.SARNarrative{Text: resp}
}

func (a *Augmenter) ask(ctx context.Context, s models.State, step, prompt string) (string, error) {
	resp, err := a.reasoner.Complete(ctx, prompt, systemPrompt)
	if err != nil {
		a.logger.WarnContext(ctx, "reasoning supplement skipped",
			"run_id", s.RunID,
			"step", step,
			"kind", string(reasoning.KindOf(err)),
			"error", err,
		)
		a.metrics.IncrementAugmentationSkipped(step)
		return "", fmt.Errorf("%s review: %w", step, err)
	}
	return resp, nil
}

func isDocumentCode(code string) bool {
	return strings.HasPrefix(code, "TBML_") ||
		strings.HasPrefix(code, "DOC_") ||
		strings.Contains(code, "INVOICE")
}
