package rules

import (
	"fmt"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

// Screening validates the run input before any scoring stage sees it. It
// records nothing on the state; routing after screening is the engine's.
func Screening() Stage {
	return func(s models.State) (models.State, error) {
		if strings.TrimSpace(s.Transaction.ID) == "" {
			return models.State{}, fmt.Errorf("%w: transaction id is required", ErrMalformedInput)
		}
		if err := validTransactionAmount(s.Transaction); err != nil {
			return models.State{}, err
		}
		if s.Customer.AccountAgeDays < 0 {
			return models.State{}, fmt.Errorf("%w: account age must not be negative, got %d",
				ErrMalformedInput, s.Customer.AccountAgeDays)
		}
		for i, h := range s.Customer.History {
			if err := validAmount(fmt.Sprintf("history[%d].amount", i), h.Amount); err != nil {
				return models.State{}, err
			}
		}
		return s, nil
	}
}
