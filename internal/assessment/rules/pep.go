package rules

import (
	"fmt"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

const (
	MatchKeyword      = "KEYWORD"
	confidenceKeyword = 0.7
)

// PEP flags customers whose name carries a political or official title.
// The keyword match is a floor: a status already raised is never lowered.
func PEP(cfg *Config) Stage {
	return func(s models.State) (models.State, error) {
		next := s.Clone()
		name := strings.ToLower(s.Customer.Name)

		var matched []string
		for _, kw := range cfg.PEPKeywords {
			if strings.Contains(name, kw) {
				matched = append(matched, kw)
			}
		}

		if len(matched) == 0 {
			next.SetPEP(false)
			next.Attach(models.StageResult{Stage: models.StagePEP})
			return next, nil
		}

		next.SetPEP(true)
		details := &models.PEPDetails{
			MatchedTerms: matched,
			MatchType:    MatchKeyword,
			Confidence:   confidenceKeyword,
			Source:       "keyword",
		}
		if s.PEPDetails != nil && s.PEPDetails.Confidence > details.Confidence {
			details.Confidence = s.PEPDetails.Confidence
		}
		next.PEPDetails = details
		next.AddFactor("PEP_MATCH")
		next.AddAlert(fmt.Sprintf("PEP indicator: Customer name contains '%s'", strings.Join(matched, ", ")))
		next.Attach(models.StageResult{Stage: models.StagePEP, Details: *details})
		return next, nil
	}
}
