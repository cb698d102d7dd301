package rules

import (
	"fmt"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

// Sanctions list identifiers and match types recorded on each hit.
const (
	ListOFACSDN          = "OFAC_SDN"
	ListCountrySanctions = "COUNTRY_SANCTIONS"

	MatchExact        = "EXACT"
	MatchPartial      = "PARTIAL"
	MatchJurisdiction = "JURISDICTION"

	confidenceExact        = 0.95
	confidencePartial      = 0.75
	confidenceJurisdiction = 0.8
)

// SanctionsBreakdown is attached under models.StageSanctions.
type SanctionsBreakdown struct {
	PartiesScreened int                     `json:"parties_screened"`
	Hits            []models.SanctionDetail `json:"hits"`
}

// Sanctions screens each party against the sanctioned-entity list and,
// separately for transactions originating in a sanctioned jurisdiction,
// against the jurisdiction keywords. Hits already on the state are kept.
func Sanctions(cfg *Config) Stage {
	return func(s models.State) (models.State, error) {
		next := s.Clone()
		origin := strings.ToUpper(strings.TrimSpace(s.Transaction.OriginCountry))
		sanctionedOrigin := containsString(cfg.SanctionedJurisdictions, origin)

		var hits []models.SanctionDetail
		for _, party := range s.Transaction.Parties {
			p := strings.ToLower(strings.TrimSpace(party))
			if p == "" {
				continue
			}
			if hit, ok := matchEntity(cfg, party, p); ok {
				hits = append(hits, hit)
				next.AddAlert(fmt.Sprintf("SANCTIONS HIT: %s matched against OFAC SDN list", party))
			}
			// The jurisdiction check is independent of the entity list, so one
			// party can carry both hits.
			if !sanctionedOrigin {
				continue
			}
			for _, kw := range cfg.JurisdictionKeywords {
				if strings.Contains(p, kw) {
					hits = append(hits, models.SanctionDetail{
						Party:      party,
						MatchedTo:  origin,
						List:       ListCountrySanctions,
						MatchType:  MatchJurisdiction,
						Confidence: confidenceJurisdiction,
					})
					next.AddAlert(fmt.Sprintf("SANCTIONS HIT: %s linked to sanctioned jurisdiction %s", party, origin))
					break
				}
			}
		}

		for _, h := range hits {
			next.AddSanctionHit(h)
		}
		if len(hits) > 0 {
			next.AddFactor("SANCTIONS_HIT")
		}
		next.SanctionsScreened = true

		next.Attach(models.StageResult{
			Stage: models.StageSanctions,
			Details: SanctionsBreakdown{
				PartiesScreened: len(s.Transaction.Parties),
				Hits:            hits,
			},
		})
		return next, nil
	}
}

// matchEntity does a bidirectional case-insensitive substring match. The
// first matching list entry wins.
func matchEntity(cfg *Config, party, lowered string) (models.SanctionDetail, bool) {
	for _, entity := range cfg.SanctionedEntities {
		if !strings.Contains(lowered, entity) && !strings.Contains(entity, lowered) {
			continue
		}
		d := models.SanctionDetail{
			Party:      party,
			MatchedTo:  entity,
			List:       ListOFACSDN,
			MatchType:  MatchPartial,
			Confidence: confidencePartial,
		}
		if lowered == entity {
			d.MatchType = MatchExact
			d.Confidence = confidenceExact
		}
		return d, true
	}
	return models.SanctionDetail{}, false
}
