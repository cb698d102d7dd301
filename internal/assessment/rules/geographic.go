package rules

import (
	"fmt"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

// Jurisdiction classes, in priority order.
const (
	ClassHighRisk = "HIGH_RISK"
	ClassTaxHaven = "TAX_HAVEN"
	ClassGreyList = "GREY_LIST"
	ClassStandard = "STANDARD"
)

const (
	pointsHighRisk       = 25
	pointsTaxHaven       = 15
	pointsGreyList       = 10
	pointsComplexRouting = 10
	pointsTaxHavenChain  = 20
)

// Jurisdiction is one country considered by the geographic stage.
type Jurisdiction struct {
	Country string `json:"country"`
	Role    string `json:"role"`
	Class   string `json:"class"`
	Points  int    `json:"points"`
}

// GeographicBreakdown is attached under models.StageGeographic.
type GeographicBreakdown struct {
	Jurisdictions []Jurisdiction `json:"jurisdictions"`
	Subtotal      int            `json:"subtotal"`
}

// Geographic scores the origin, destination and intermediate countries.
func Geographic(cfg *Config) Stage {
	return func(s models.State) (models.State, error) {
		next := s.Clone()
		tx := s.Transaction

		var considered []Jurisdiction
		add := func(country, role string) {
			cc := strings.ToUpper(strings.TrimSpace(country))
			if cc != "" {
				considered = append(considered, Jurisdiction{Country: cc, Role: role})
			}
		}
		add(tx.OriginCountry, "origin")
		add(tx.DestinationCountry, "destination")
		for _, c := range tx.IntermediateCountries {
			add(c, "intermediate")
		}

		subtotal, taxHavens := 0, 0
		for i := range considered {
			j := &considered[i]
			switch {
			case containsString(cfg.HighRiskCountries, j.Country):
				j.Class, j.Points = ClassHighRisk, pointsHighRisk
				next.AddFactor("HIGH_RISK_JURISDICTION_" + j.Country)
				next.AddAlert(fmt.Sprintf("HIGH_RISK_JURISDICTION: %s (%s)", j.Country, j.Role))
			case containsString(cfg.TaxHavens, j.Country):
				j.Class, j.Points = ClassTaxHaven, pointsTaxHaven
				taxHavens++
				next.AddFactor("TAX_HAVEN_" + j.Country)
			case containsString(cfg.GreyList, j.Country):
				j.Class, j.Points = ClassGreyList, pointsGreyList
				next.AddFactor("GREY_LIST_" + j.Country)
			default:
				j.Class = ClassStandard
			}
			subtotal += j.Points
		}

		if len(tx.IntermediateCountries) >= 2 {
			subtotal += pointsComplexRouting
			next.AddFactor("COMPLEX_ROUTING")
		}
		if taxHavens >= 2 {
			subtotal += pointsTaxHavenChain
			next.AddFactor("TAX_HAVEN_CHAIN")
			next.AddAlert("Multiple tax havens in transaction path")
		}

		next.Attach(models.StageResult{
			Stage:  models.StageGeographic,
			Score:  capScore(subtotal, StageCap),
			Scored: true,
			Details: GeographicBreakdown{
				Jurisdictions: considered,
				Subtotal:      subtotal,
			},
		})
		return next, nil
	}
}
