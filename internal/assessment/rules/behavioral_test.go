package rules

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

type BehavioralSuite struct {
	suite.Suite
	stage Stage
}

func TestBehavioralSuite(t *testing.T) {
	suite.Run(t, new(BehavioralSuite))
}

func (s *BehavioralSuite) SetupTest() {
	s.stage = Behavioral(DefaultConfig())
}

func (s *BehavioralSuite) run(amount float64, customer models.Customer) models.State {
	out, err := s.stage(newState(models.Transaction{Amount: amount}, customer))
	s.Require().NoError(err)
	return out
}

func history(amounts ...float64) []models.HistoryItem {
	items := make([]models.HistoryItem, 0, len(amounts))
	for i, a := range amounts {
		items = append(items, models.HistoryItem{
			Amount:    a,
			Timestamp: fixedNow.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return items
}

// =============================================================================
// Structuring
// =============================================================================

func (s *BehavioralSuite) TestStructuringInterval() {
	for _, amount := range []float64{9000, 9000.01, 9500, 9999.99} {
		out := s.run(amount, models.Customer{AccountAgeDays: 400})
		s.Contains(out.RiskFactors, "POTENTIAL_STRUCTURING", "amount %v", amount)
		s.Equal(20, resultScore(out, models.StageBehavioral), "amount %v", amount)
	}

	for _, amount := range []float64{8999, 10000} {
		out := s.run(amount, models.Customer{AccountAgeDays: 400})
		s.NotContains(out.RiskFactors, "POTENTIAL_STRUCTURING", "amount %v", amount)
	}
}

func (s *BehavioralSuite) TestStructuringPatternFiresWithSingleAmountCheck() {
	out := s.run(9500, models.Customer{AccountAgeDays: 400, History: history(9200, 9350)})

	s.Equal([]string{"POTENTIAL_STRUCTURING", "UNIFORM_TRANSACTION_PATTERN", "STRUCTURING_PATTERN"}, out.RiskFactors)
	r, ok := out.Result(models.StageBehavioral)
	s.Require().True(ok)
	b := r.Details.(BehavioralBreakdown)
	s.Equal(65, b.Subtotal)
	s.Equal(50, r.Score)
	s.Equal(3, b.TransactionsInWindow)
	s.Equal(28050.0, b.WindowVolume)
}

func (s *BehavioralSuite) TestUniformPatternUsesPopulationDeviation() {
	// mean 15000, population stddev 1414.2 -> cv 0.094
	out := s.run(16000, models.Customer{AccountAgeDays: 400, History: history(14000, 15000, 13000, 17000)})
	s.Contains(out.RiskFactors, "UNIFORM_TRANSACTION_PATTERN")
	s.NotContains(out.RiskFactors, "STRUCTURING_PATTERN")
}

func (s *BehavioralSuite) TestPatternsNeedThreeAmounts() {
	out := s.run(9500, models.Customer{AccountAgeDays: 400, History: history(9400)})
	s.Equal([]string{"POTENTIAL_STRUCTURING"}, out.RiskFactors)
}

// =============================================================================
// Velocity window
// =============================================================================

func (s *BehavioralSuite) TestHistoryOutsideWindowIgnored() {
	customer := models.Customer{AccountAgeDays: 400, History: []models.HistoryItem{
		{Amount: 9200, Timestamp: fixedNow.Add(-25 * time.Hour)},
		{Amount: 9300, Timestamp: fixedNow.Add(-24 * time.Hour)},
	}}
	out := s.run(9500, customer)
	s.NotContains(out.RiskFactors, "STRUCTURING_PATTERN")
	r, _ := out.Result(models.StageBehavioral)
	s.Equal(1, r.Details.(BehavioralBreakdown).TransactionsInWindow)
}

func (s *BehavioralSuite) TestMissingTimestampDoesNotPullOldHistoryIntoWindow() {
	customer := models.Customer{AccountAgeDays: 400, History: []models.HistoryItem{
		{Amount: 9200, Timestamp: fixedNow.AddDate(0, -12, 0)},
		{Amount: 9350, Timestamp: fixedNow.AddDate(0, -6, 0)},
	}}

	s.Run("stage input with zero time", func() {
		in := newState(models.Transaction{Amount: 9500}, customer)
		in.Transaction.Timestamp = time.Time{}
		out, err := s.stage(in)
		s.Require().NoError(err)
		s.Equal([]string{"POTENTIAL_STRUCTURING"}, out.RiskFactors)
		r, _ := out.Result(models.StageBehavioral)
		s.Equal(1, r.Details.(BehavioralBreakdown).TransactionsInWindow)
	})

	s.Run("new state stamps the run start", func() {
		in := models.NewState(models.Transaction{Amount: 9500, Currency: "USD"}, customer, fixedNow)
		s.Equal(fixedNow, in.Transaction.Timestamp)
		out, err := s.stage(in)
		s.Require().NoError(err)
		s.NotContains(out.RiskFactors, "STRUCTURING_PATTERN")
		s.NotContains(out.RiskFactors, "UNIFORM_TRANSACTION_PATTERN")
	})
}

func TestInVelocityWindow(t *testing.T) {
	assert.True(t, inVelocityWindow(fixedNow, fixedNow.Add(-23*time.Hour)))
	assert.True(t, inVelocityWindow(fixedNow, fixedNow.Add(23*time.Hour)))
	assert.False(t, inVelocityWindow(fixedNow, fixedNow.Add(-24*time.Hour)))
	assert.False(t, inVelocityWindow(time.Time{}, fixedNow))
	assert.False(t, inVelocityWindow(fixedNow, time.Time{}))
}

func (s *BehavioralSuite) TestHighVelocityCountsCurrentTransaction() {
	amounts := make([]float64, 9)
	for i := range amounts {
		amounts[i] = 100 + float64(i)*300
	}
	out := s.run(50, models.Customer{AccountAgeDays: 400, History: history(amounts...)})
	s.Contains(out.RiskFactors, "HIGH_VELOCITY")
	s.Contains(out.Alerts, "10 transactions in 24 hours")
}

func (s *BehavioralSuite) TestDailyLimitExceeded() {
	out := s.run(20000, models.Customer{AccountAgeDays: 400, History: history(31000)})
	s.Contains(out.RiskFactors, "DAILY_LIMIT_EXCEEDED")
	s.Contains(out.RiskFactors, "ROUND_AMOUNT")
}

// =============================================================================
// New-account amplifiers and round amounts
// =============================================================================

func (s *BehavioralSuite) TestNewAccountAmplifiers() {
	out := s.run(12000, models.Customer{AccountAgeDays: 5, History: history(100, 5000, 12000)})
	s.Contains(out.RiskFactors, "NEW_ACCOUNT_HIGH_VALUE")
	s.Contains(out.RiskFactors, "NEW_ACCOUNT_HIGH_VELOCITY")
	s.Contains(out.Alerts, "High-value transaction on 5-day-old account")
}

func (s *BehavioralSuite) TestEstablishedAccountSkipsAmplifiers() {
	out := s.run(12000, models.Customer{AccountAgeDays: 30, History: history(100, 5000, 12000)})
	s.NotContains(out.RiskFactors, "NEW_ACCOUNT_HIGH_VALUE")
	s.NotContains(out.RiskFactors, "NEW_ACCOUNT_HIGH_VELOCITY")
}

func (s *BehavioralSuite) TestRoundAmount() {
	s.Contains(s.run(25000, models.Customer{AccountAgeDays: 400}).RiskFactors, "ROUND_AMOUNT")
	s.NotContains(s.run(25500, models.Customer{AccountAgeDays: 400}).RiskFactors, "ROUND_AMOUNT")
	s.NotContains(s.run(9000, models.Customer{AccountAgeDays: 400}).RiskFactors, "ROUND_AMOUNT")
}

// =============================================================================
// Malformed input
// =============================================================================

func (s *BehavioralSuite) TestMalformedInput() {
	cases := map[string]models.State{
		"nan amount":      newState(models.Transaction{Amount: math.NaN()}, models.Customer{}),
		"negative amount": newState(models.Transaction{Amount: -5}, models.Customer{}),
		"infinite history": newState(models.Transaction{Amount: 10}, models.Customer{
			History: []models.HistoryItem{{Amount: math.Inf(1), Timestamp: fixedNow}},
		}),
	}
	for name, state := range cases {
		s.Run(name, func() {
			_, err := s.stage(state)
			s.True(errors.Is(err, ErrMalformedInput))
		})
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	cv, ok := coefficientOfVariation([]float64{9200, 9350, 9500})
	require.True(t, ok)
	assert.InDelta(t, 0.01310, cv, 0.0001)

	_, ok = coefficientOfVariation([]float64{0, 0, 0})
	assert.False(t, ok)
}
