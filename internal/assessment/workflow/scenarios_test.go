package workflow

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/augment"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/reasoning"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/requestcontext"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/testutil"
)

var runTime = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, r reasoning.Reasoner) *Engine {
	t.Helper()
	aug := augment.New(r, augment.WithLogger(discardLogger()))
	engine, err := NewEngine(rules.DefaultConfig(), aug, WithLogger(discardLogger()))
	require.NoError(t, err)
	return engine
}

func runScenario(t *testing.T, tx models.Transaction, customer models.Customer) models.State {
	t.Helper()
	if tx.Currency == "" {
		tx.Currency = "USD"
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = runTime
	}
	ctx := requestcontext.WithTime(context.Background(), runTime)
	out, err := newTestEngine(t, reasoning.Disabled{}).Run(ctx, models.NewState(tx, customer, runTime))
	require.NoError(t, err)
	return out
}

func TestScenarios(t *testing.T) {
	testutil.Given(t, "a structuring-range wire with no documents", func(t *testing.T) {
		s := runScenario(t,
			models.Transaction{ID: "tx-1", Amount: 9500, Type: models.TransactionWire, OriginCountry: "US", DestinationCountry: "CA"},
			models.Customer{ID: "c-1", Name: "Jane Doe", AccountAgeDays: 120},
		)

		testutil.Then(t, "it is scored medium and queued for review", func(t *testing.T) {
			assert.Equal(t, 60, s.RiskScore)
			assert.Equal(t, models.RiskMedium, s.RiskLevel)
			assert.False(t, s.SARRequired)
			assert.Equal(t, models.StatusPendingReview, s.ReportingStatus)
			require.NotNil(t, s.ReviewDeadline)
			assert.Equal(t, runTime.Add(ReviewWindow), *s.ReviewDeadline)
			assert.Empty(t, s.CaseID)
		})

		testutil.Then(t, "the decision path records every node and route in order", func(t *testing.T) {
			assert.Equal(t, []string{"initial:STANDARD_FLOW", "sanctions:CLEAR", "pep:NO_PEP", "final:MEDIUM_REVIEW"}, s.RoutingDecisions)
			assert.Equal(t, []string{
				"initial_screening:start", "entry:initial_screening", "initial_screening:complete",
				"initial:STANDARD_FLOW",
				"geo_analysis:start", "geo_analysis:complete",
				"behavioral_analysis:start", "behavioral_analysis:complete",
				"document_check:start", "document_check:skipped_no_docs", "document_check:complete",
				"sanctions_check:start", "sanctions_check:complete",
				"sanctions:CLEAR",
				"pep_check:start", "pep_check:complete",
				"pep:NO_PEP",
				"risk_scoring:start", "risk_scoring:complete",
				"final:MEDIUM_REVIEW",
				"human_review:start", "routing:human_review", "human_review:complete",
			}, s.DecisionPath)
		})
	})

	testutil.Given(t, "a large wire from a sanctioned jurisdiction", func(t *testing.T) {
		s := runScenario(t,
			models.Transaction{ID: "tx-2", Amount: 500000, Type: models.TransactionWire, OriginCountry: "IR", DestinationCountry: "DE",
				Parties: []string{"tehran_exporters"}},
			models.Customer{ID: "c-2", Name: "Trading House", Type: models.CustomerCorporate, AccountAgeDays: 900},
		)

		testutil.Then(t, "it goes straight to SAR filing with a score", func(t *testing.T) {
			assert.Equal(t, []string{"initial:LARGE_TRANSACTION", "sanctions:HIT_FOUND"}, s.RoutingDecisions)
			assert.Equal(t, []string{"tehran_exporters"}, s.SanctionHits)
			assert.Equal(t, 80, s.RiskScore)
			assert.Equal(t, models.RiskHigh, s.RiskLevel)
			assert.True(t, s.SARRequired)
			assert.Equal(t, models.StatusSARGenerated, s.ReportingStatus)
			assert.Equal(t, CaseID(s.RunID, "tx-2"), s.CaseID)
			assert.Regexp(t, `^SAR-[0-9A-F]{12}$`, s.CaseID)
		})

		testutil.Then(t, "the large-transaction route skips geographic scoring", func(t *testing.T) {
			assert.False(t, s.HasFactorContaining("HIGH_RISK_JURISDICTION"))
			_, ok := s.Result(models.StageGeographic)
			assert.False(t, ok)
			assert.NotContains(t, s.DecisionPath, "geo_analysis:start")
		})

		testutil.Then(t, "scoring runs ahead of the terminal without a route token", func(t *testing.T) {
			n := len(s.DecisionPath)
			assert.Equal(t, []string{
				"sanctions:HIT_FOUND",
				"risk_scoring:start", "risk_scoring:complete",
				"sar_generation:start", "sar_generation:complete",
			}, s.DecisionPath[n-5:])
		})

		testutil.Then(t, "the narrative is flagged when reasoning is unavailable", func(t *testing.T) {
			require.NotNil(t, s.SARNarrative)
			assert.Empty(t, s.SARNarrative.Text)
			assert.NotEmpty(t, s.SARNarrative.Error)
		})
	})

	testutil.Given(t, "a mixed crypto transfer from a new wallet", func(t *testing.T) {
		age := 3
		s := runScenario(t,
			models.Transaction{ID: "tx-3", Amount: 5000, Currency: "BTC", Type: models.TransactionCrypto, AssetType: models.AssetCrypto,
				Crypto: &models.CryptoDetails{MixerUsed: true, WalletAgeDays: &age, CrossChainSwaps: 4}},
			models.Customer{ID: "c-3", Name: "Sam Lee", AccountAgeDays: 200},
		)

		testutil.Then(t, "due diligence runs and the case is reviewed", func(t *testing.T) {
			assert.Equal(t, []string{"initial:CRYPTO_PATH", "crypto:HIGH_RISK", "final:MEDIUM_REVIEW"}, s.RoutingDecisions)
			assert.Equal(t, 60, s.RiskScore)
			assert.Equal(t, models.RiskMedium, s.RiskLevel)
			assert.False(t, s.SARRequired)
			assert.Equal(t, models.StatusPendingReview, s.ReportingStatus)

			assert.Subset(t, s.RiskFactors, []string{"CRYPTO_MIXER_DETECTED", "NEW_CRYPTO_WALLET", "CRYPTO_LAYERING_PATTERN"})

			crypto, ok := s.Result(models.StageCrypto)
			require.True(t, ok)
			assert.Equal(t, 50, crypto.Score)

			edd, ok := s.Result(models.StageEnhancedDueDiligence)
			require.True(t, ok)
			assert.False(t, edd.Scored)
			assert.NotEmpty(t, edd.Error)
		})
	})

	testutil.Given(t, "a customer whose name carries official titles", func(t *testing.T) {
		s := runScenario(t,
			models.Transaction{ID: "tx-4", Amount: 2500, Type: models.TransactionWire, OriginCountry: "US", DestinationCountry: "GB"},
			models.Customer{ID: "c-4", Name: "Minister Adebayo Gov", AccountAgeDays: 400},
		)

		testutil.Then(t, "PEP status drives due diligence and the SAR flag", func(t *testing.T) {
			assert.Equal(t, []string{"initial:STANDARD_FLOW", "sanctions:CLEAR", "pep:PEP_FOUND", "final:MEDIUM_REVIEW"}, s.RoutingDecisions)
			assert.True(t, s.IsPEP())
			assert.Equal(t, 65, s.RiskScore)
			assert.Equal(t, models.RiskMedium, s.RiskLevel)
			assert.True(t, s.SARRequired)
			assert.Equal(t, models.StatusPendingReview, s.ReportingStatus)
		})
	})

	testutil.Given(t, "a third structuring-range payment within a day", func(t *testing.T) {
		s := runScenario(t,
			models.Transaction{ID: "tx-5", Amount: 9500, Type: models.TransactionWire, OriginCountry: "US", DestinationCountry: "US"},
			models.Customer{ID: "c-5", Name: "Pat Kim", AccountAgeDays: 400, History: []models.HistoryItem{
				{Amount: 9200, Timestamp: runTime.Add(-6 * time.Hour)},
				{Amount: 9350, Timestamp: runTime.Add(-3 * time.Hour)},
			}},
		)

		testutil.Then(t, "it is critical and filed", func(t *testing.T) {
			assert.Contains(t, s.RiskFactors, "STRUCTURING_PATTERN")
			assert.Equal(t, 95, s.RiskScore)
			assert.Equal(t, models.RiskCritical, s.RiskLevel)
			assert.True(t, s.SARRequired)
			assert.Equal(t, "final:CRITICAL_SAR", s.RoutingDecisions[len(s.RoutingDecisions)-1])
			assert.Equal(t, models.StatusSARGenerated, s.ReportingStatus)
		})
	})
}
