package rules

import (
	"fmt"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

const (
	pointsMixer           = 35
	pointsDarknet         = 40
	pointsNewWallet       = 15
	pointsRecentWallet    = 10
	pointsLayering        = 20
	pointsCrossChain      = 10
	pointsPrivacyCoin     = 25
	pointsHighValueCrypto = 10

	newWalletDays      = 7
	recentWalletDays   = 30
	unknownWalletDays  = 365
	layeringSwapCount  = 3
	crossChainMinSwaps = 1

	// CryptoReviewThreshold is the stage subtotal at which the reasoning
	// capability is consulted for supplementary codes.
	CryptoReviewThreshold = 25
)

// CryptoBreakdown is attached under models.StageCrypto.
// Factors lists only the codes this stage recorded, never reasoner output.
type CryptoBreakdown struct {
	WalletAgeDays  int      `json:"wallet_age_days"`
	Swaps          int      `json:"cross_chain_swaps"`
	Factors        []string `json:"factors"`
	Subtotal       int      `json:"subtotal"`
	ReviewEligible bool     `json:"review_eligible"`
}

// Crypto scores mixer, darknet, wallet-age and layering signals. Non-crypto
// transactions pass through unchanged.
func Crypto(cfg *Config) Stage {
	return func(s models.State) (models.State, error) {
		tx := s.Transaction
		if !tx.IsCrypto() {
			return s, nil
		}
		if err := validTransactionAmount(tx); err != nil {
			return models.State{}, err
		}

		next := s.Clone()
		recordedBefore := len(next.RiskFactors)
		details := models.CryptoDetails{}
		if tx.Crypto != nil {
			details = *tx.Crypto
		}

		score := 0
		if details.MixerUsed {
			score += pointsMixer
			next.AddFactor("CRYPTO_MIXER_DETECTED")
			next.AddAlert("Cryptocurrency mixing service detected")
		}

		if market := strings.ToLower(details.DarknetMarket); market != "" {
			for _, known := range cfg.DarknetMarkets {
				if strings.Contains(market, known) {
					score += pointsDarknet
					next.AddFactor("DARKNET_MARKET_ASSOCIATION")
					next.AddAlert(fmt.Sprintf("Darknet market association: %s", details.DarknetMarket))
					break
				}
			}
		}

		walletAge := unknownWalletDays
		if details.WalletAgeDays != nil {
			walletAge = *details.WalletAgeDays
		}
		switch {
		case walletAge < newWalletDays:
			score += pointsNewWallet
			next.AddFactor("NEW_CRYPTO_WALLET")
		case walletAge < recentWalletDays:
			score += pointsRecentWallet
			next.AddFactor("RECENT_CRYPTO_WALLET")
		}

		switch swaps := details.CrossChainSwaps; {
		case swaps >= layeringSwapCount:
			score += pointsLayering
			next.AddFactor("CRYPTO_LAYERING_PATTERN")
			next.AddAlert(fmt.Sprintf("%d cross-chain swaps detected", swaps))
		case swaps >= crossChainMinSwaps:
			score += pointsCrossChain
			next.AddFactor("CROSS_CHAIN_ACTIVITY")
		}

		if details.PrivacyCoin {
			score += pointsPrivacyCoin
			next.AddFactor("PRIVACY_COIN_USAGE")
			next.AddAlert("Privacy coin conversion detected")
		}

		if tx.Amount > cfg.Thresholds.HighValueCrypto {
			score += pointsHighValueCrypto
			next.AddFactor("HIGH_VALUE_CRYPTO")
		}

		next.Attach(models.StageResult{
			Stage:  models.StageCrypto,
			Score:  capScore(score, StageCap),
			Scored: true,
			Details: CryptoBreakdown{
				WalletAgeDays:  walletAge,
				Swaps:          details.CrossChainSwaps,
				Factors:        append([]string{}, next.RiskFactors[recordedBefore:]...),
				Subtotal:       score,
				ReviewEligible: score >= CryptoReviewThreshold,
			},
		})
		return next, nil
	}
}
