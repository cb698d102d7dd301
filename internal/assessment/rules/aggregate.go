package rules

import (
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

const (
	// SanctionHitWeight is added once per recorded sanctions hit.
	SanctionHitWeight = 40
	// PEPWeight is added when the PEP status is true.
	PEPWeight = 25
	// StageScoreCap bounds what any single stage result contributes.
	StageScoreCap = 30

	maxRiskScore = 100
)

// FactorContribution is the weight one risk factor matched.
type FactorContribution struct {
	Factor  string `json:"factor"`
	Keyword string `json:"keyword,omitempty"`
	Points  int    `json:"points"`
}

// StageContribution is the capped score one stage result contributed.
type StageContribution struct {
	Stage  string `json:"stage"`
	Score  int    `json:"score"`
	Points int    `json:"points"`
}

// AggregateBreakdown is attached under models.StageRiskScoring.
type AggregateBreakdown struct {
	SanctionPoints int                  `json:"sanction_points"`
	PEPPoints      int                  `json:"pep_points"`
	Factors        []FactorContribution `json:"factors"`
	Stages         []StageContribution  `json:"stages"`
	Uncapped       int                  `json:"uncapped"`
}

// Score computes the aggregate risk score and its breakdown without touching
// the state.
func Score(cfg *Config, s models.State) (int, AggregateBreakdown) {
	var b AggregateBreakdown

	b.SanctionPoints = len(s.SanctionHits) * SanctionHitWeight
	if s.IsPEP() {
		b.PEPPoints = PEPWeight
	}
	total := b.SanctionPoints + b.PEPPoints

	for _, factor := range s.RiskFactors {
		fc := FactorContribution{Factor: factor}
		for _, w := range cfg.Weights {
			if strings.Contains(factor, w.Keyword) {
				fc.Keyword, fc.Points = w.Keyword, w.Points
				break
			}
		}
		total += fc.Points
		b.Factors = append(b.Factors, fc)
	}

	for _, r := range s.Analysis {
		if !r.Scored {
			continue
		}
		points := r.Score
		if points > StageScoreCap {
			points = StageScoreCap
		}
		if points < 0 {
			points = 0
		}
		total += points
		b.Stages = append(b.Stages, StageContribution{Stage: r.Stage, Score: r.Score, Points: points})
	}

	b.Uncapped = total
	return clampScore(total), b
}

// Level maps a score onto the configured bands.
func Level(t Thresholds, score int) models.RiskLevel {
	switch {
	case score >= t.Critical:
		return models.RiskCritical
	case score >= t.High:
		return models.RiskHigh
	case score >= t.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// SARRequired applies the filing rule: a high score, any sanctions hit, or a
// PEP at medium risk or above.
func SARRequired(t Thresholds, score int, s models.State) bool {
	return score >= t.High ||
		len(s.SanctionHits) > 0 ||
		(s.IsPEP() && score >= t.Medium)
}

// Aggregate is the single authoritative assignment of risk score, level and
// the SAR flag.
func Aggregate(cfg *Config) Stage {
	return func(s models.State) (models.State, error) {
		next := s.Clone()
		score, breakdown := Score(cfg, s)

		next.RiskScore = score
		next.RiskLevel = Level(cfg.Thresholds, score)
		next.SARRequired = SARRequired(cfg.Thresholds, score, s)
		next.Scored = true

		next.Attach(models.StageResult{
			Stage:   models.StageRiskScoring,
			Details: breakdown,
		})
		return next, nil
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxRiskScore {
		return maxRiskScore
	}
	return v
}
