// Package rules holds the deterministic scoring stages of the assessment
// workflow. Everything here is pure domain logic with no I/O: a stage takes
// the current state and returns a superset of it.
package rules

import (
	"errors"
	"fmt"
	"math"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

// Stage is a deterministic rule stage.
type Stage func(models.State) (models.State, error)

// ErrMalformedInput marks input a stage cannot score. The workflow engine
// treats it as a contract violation and aborts the run.
var ErrMalformedInput = errors.New("malformed input")

// StageCap bounds the contribution of the geographic, behavioral and crypto
// stages.
const StageCap = 50

func capScore(score, limit int) int {
	if score > limit {
		return limit
	}
	return score
}

func validAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is not finite", ErrMalformedInput, field)
	}
	return nil
}

func validTransactionAmount(tx models.Transaction) error {
	if err := validAmount("amount", tx.Amount); err != nil {
		return err
	}
	if tx.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrMalformedInput, tx.Amount)
	}
	return nil
}
