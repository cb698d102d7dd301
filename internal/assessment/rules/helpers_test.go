package rules

import (
	"time"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newState(tx models.Transaction, customer models.Customer) models.State {
	if tx.Timestamp.IsZero() {
		tx.Timestamp = fixedNow
	}
	if tx.Currency == "" {
		tx.Currency = "USD"
	}
	return models.NewState(tx, customer, fixedNow)
}

func mustRun(stage Stage, s models.State) models.State {
	out, err := stage(s)
	if err != nil {
		panic(err)
	}
	return out
}

func resultScore(s models.State, stage string) int {
	r, ok := s.Result(stage)
	if !ok {
		return -1
	}
	return r.Score
}

func intPtr(v int) *int { return &v }
