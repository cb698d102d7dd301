package workflow

import (
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
)

// Router names, the prefix of every routing token.
const (
	RouterInitial   = "initial"
	RouterCrypto    = "crypto"
	RouterSanctions = "sanctions"
	RouterPEP       = "pep"
	RouterFinal     = "final"
)

// Outcome labels.
const (
	OutcomeCryptoPath       = "CRYPTO_PATH"
	OutcomeLargeTransaction = "LARGE_TRANSACTION"
	OutcomeNewAccountAlert  = "NEW_ACCOUNT_ALERT"
	OutcomeStandardFlow     = "STANDARD_FLOW"

	OutcomeCryptoHighRisk = "HIGH_RISK"
	OutcomeCryptoNormal   = "NORMAL"

	OutcomeHitFound = "HIT_FOUND"
	OutcomeClear    = "CLEAR"

	OutcomePEPFound = "PEP_FOUND"
	OutcomeNoPEP    = "NO_PEP"

	OutcomeCriticalSAR  = "CRITICAL_SAR"
	OutcomeHighRiskSAR  = "HIGH_RISK_SAR"
	OutcomeMediumReview = "MEDIUM_REVIEW"
	OutcomeLowRiskClear = "LOW_RISK_CLEAR"
)

// routeInitial sends crypto first, then very large amounts straight to
// sanctions, then large amounts on new accounts to due diligence.
func routeInitial(cfg *rules.Config) func(models.State) string {
	return func(s models.State) string {
		tx := s.Transaction
		t := cfg.Thresholds
		switch {
		case tx.IsCrypto():
			return OutcomeCryptoPath
		case tx.Amount > t.VeryLargeTransaction:
			return OutcomeLargeTransaction
		case s.Customer.AccountAgeDays < t.NewAccountDays && tx.Amount > t.LargeTransaction:
			return OutcomeNewAccountAlert
		default:
			return OutcomeStandardFlow
		}
	}
}

// routeCrypto looks at the codes the crypto rule stage recorded, so codes the
// reasoner appended in the same node cannot change the route.
func routeCrypto(s models.State) string {
	factors := s.RiskFactors
	if r, ok := s.Result(models.StageCrypto); ok {
		if b, ok := r.Details.(rules.CryptoBreakdown); ok {
			factors = b.Factors
		}
	}
	for _, f := range factors {
		if strings.Contains(f, "CRYPTO") || strings.Contains(f, "DARKNET") || strings.Contains(f, "MIXER") {
			return OutcomeCryptoHighRisk
		}
	}
	return OutcomeCryptoNormal
}

func routeSanctions(s models.State) string {
	if len(s.SanctionHits) > 0 {
		return OutcomeHitFound
	}
	return OutcomeClear
}

func routePEP(s models.State) string {
	if s.IsPEP() {
		return OutcomePEPFound
	}
	return OutcomeNoPEP
}

func routeFinal(cfg *rules.Config) func(models.State) string {
	return func(s models.State) string {
		t := cfg.Thresholds
		switch {
		case s.RiskScore >= t.Critical:
			return OutcomeCriticalSAR
		case s.RiskScore >= t.High:
			return OutcomeHighRiskSAR
		case s.RiskScore >= t.Medium:
			return OutcomeMediumReview
		default:
			return OutcomeLowRiskClear
		}
	}
}
