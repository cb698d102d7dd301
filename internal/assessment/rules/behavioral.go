package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

const (
	pointsPotentialStructuring = 20
	pointsHighVelocity         = 15
	pointsDailyLimit           = 15
	pointsUniformPattern       = 15
	pointsStructuringPattern   = 30
	pointsNewAccountHighValue  = 20
	pointsNewAccountVelocity   = 15
	pointsRoundAmount          = 5

	velocityWindow       = 24 * time.Hour
	uniformCVLimit       = 0.10
	minPatternAmounts    = 3
	newAccountBurstCount = 3
	roundAmountUnit      = 1000
	roundAmountMinimum   = 10000
)

// BehavioralBreakdown is attached under models.StageBehavioral.
// Both window figures include the current transaction.
type BehavioralBreakdown struct {
	TransactionsInWindow   int      `json:"transactions_in_24h"`
	WindowVolume           float64  `json:"daily_volume"`
	CoefficientOfVariation *float64 `json:"coefficient_of_variation,omitempty"`
	Subtotal               int      `json:"subtotal"`
}

// Behavioral scores structuring, velocity and new-account patterns against
// the customer's trailing 24h history.
func Behavioral(cfg *Config) Stage {
	return func(s models.State) (models.State, error) {
		tx := s.Transaction
		if err := validTransactionAmount(tx); err != nil {
			return models.State{}, err
		}
		for i, h := range s.Customer.History {
			if err := validAmount(fmt.Sprintf("history[%d].amount", i), h.Amount); err != nil {
				return models.State{}, err
			}
		}

		next := s.Clone()
		t := cfg.Thresholds
		score := 0

		if inStructuringRange(t, tx.Amount) {
			score += pointsPotentialStructuring
			next.AddFactor("POTENTIAL_STRUCTURING")
			next.AddAlert(fmt.Sprintf("Transaction amount %.2f just below %.0f threshold", tx.Amount, t.StructuringCeiling))
		}

		var window []float64
		windowVolume := 0.0
		for _, h := range s.Customer.History {
			if inVelocityWindow(tx.Timestamp, h.Timestamp) {
				window = append(window, h.Amount)
				windowVolume += h.Amount
			}
		}

		if len(window)+1 >= t.MaxDailyTransactions {
			score += pointsHighVelocity
			next.AddFactor("HIGH_VELOCITY")
			next.AddAlert(fmt.Sprintf("%d transactions in 24 hours", len(window)+1))
		}

		dailyTotal := windowVolume + tx.Amount
		if dailyTotal > t.MaxDailyAmount {
			score += pointsDailyLimit
			next.AddFactor("DAILY_LIMIT_EXCEEDED")
			next.AddAlert(fmt.Sprintf("Daily volume %.2f exceeds threshold", dailyTotal))
		}

		var cvPtr *float64
		amounts := append(append([]float64(nil), window...), tx.Amount)
		if len(amounts) >= minPatternAmounts {
			if cv, ok := coefficientOfVariation(amounts); ok {
				cvPtr = &cv
				if cv < uniformCVLimit {
					score += pointsUniformPattern
					next.AddFactor("UNIFORM_TRANSACTION_PATTERN")
				}
			}
			if allInStructuringRange(t, amounts) {
				score += pointsStructuringPattern
				next.AddFactor("STRUCTURING_PATTERN")
				next.AddAlert(fmt.Sprintf("Multiple transactions just below %.0f threshold", t.StructuringCeiling))
			}
		}

		if s.Customer.AccountAgeDays < t.NewAccountDays {
			if tx.Amount > t.LargeTransaction {
				score += pointsNewAccountHighValue
				next.AddFactor("NEW_ACCOUNT_HIGH_VALUE")
				next.AddAlert(fmt.Sprintf("High-value transaction on %d-day-old account", s.Customer.AccountAgeDays))
			}
			if len(window) >= newAccountBurstCount {
				score += pointsNewAccountVelocity
				next.AddFactor("NEW_ACCOUNT_HIGH_VELOCITY")
			}
		}

		if tx.Amount >= roundAmountMinimum && math.Mod(tx.Amount, roundAmountUnit) == 0 {
			score += pointsRoundAmount
			next.AddFactor("ROUND_AMOUNT")
		}

		next.Attach(models.StageResult{
			Stage:  models.StageBehavioral,
			Score:  capScore(score, StageCap),
			Scored: true,
			Details: BehavioralBreakdown{
				TransactionsInWindow:   len(window) + 1,
				WindowVolume:           dailyTotal,
				CoefficientOfVariation: cvPtr,
				Subtotal:               score,
			},
		})
		return next, nil
	}
}

// inVelocityWindow reports whether at lies strictly within 24h of ref on
// either side. Compared as instants so far-apart times cannot overflow a
// Duration.
func inVelocityWindow(ref, at time.Time) bool {
	return at.After(ref.Add(-velocityWindow)) && at.Before(ref.Add(velocityWindow))
}

func inStructuringRange(t Thresholds, amount float64) bool {
	return amount >= t.StructuringFloor && amount < t.StructuringCeiling
}

func allInStructuringRange(t Thresholds, amounts []float64) bool {
	for _, a := range amounts {
		if !inStructuringRange(t, a) {
			return false
		}
	}
	return true
}

// coefficientOfVariation returns population stddev / mean. ok is false when
// the mean is not positive.
func coefficientOfVariation(values []float64) (float64, bool) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean <= 0 {
		return 0, false
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean, true
}
