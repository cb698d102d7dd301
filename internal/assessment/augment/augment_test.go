package augment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/reasoning"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/reasoning/mocks"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
)

type AugmentSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	reasoner *mocks.MockReasoner
	metrics  *metrics.Metrics
	aug      *Augmenter
	cfg      *rules.Config
}

func TestAugmentSuite(t *testing.T) {
	suite.Run(t, new(AugmentSuite))
}

func (s *AugmentSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.reasoner = mocks.NewMockReasoner(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.cfg = rules.DefaultConfig()
	s.aug = New(s.reasoner,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *AugmentSuite) TearDownTest() {
	s.ctrl.Finish()
}

var unavailable = &reasoning.Error{Kind: reasoning.KindTimeout, Attempts: 3}

func (s *AugmentSuite) state(tx models.Transaction, customer models.Customer) models.State {
	if tx.Amount == 0 {
		tx.Amount = 5000
	}
	tx.Currency = "USD"
	tx.Timestamp = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return models.NewState(tx, customer, tx.Timestamp)
}

func (s *AugmentSuite) cryptoState(mixer bool) models.State {
	age := 3
	st := s.state(models.Transaction{
		ID:        "tx-crypto",
		Type:      models.TransactionCrypto,
		AssetType: models.AssetCrypto,
		Crypto:    &models.CryptoDetails{MixerUsed: mixer, WalletAgeDays: &age, CrossChainSwaps: 4},
	}, models.Customer{ID: "c-1", Name: "Sam Lee", AccountAgeDays: 200})
	out, err := rules.Crypto(s.cfg)(st)
	s.Require().NoError(err)
	return out
}

func (s *AugmentSuite) skipped(step string) float64 {
	return testutil.ToFloat64(s.metrics.AugmentationSkipped.WithLabelValues(step))
}

func (s *AugmentSuite) TestCrypto() {
	s.Run("appends only new CRYPTO_ codes", func() {
		st := s.cryptoState(true)
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), systemPrompt).
			Return("CRYPTO_MIXER_DETECTED CRYPTO_PEEL_CHAIN and TBML_OVER_INVOICING", nil)

		out := s.aug.Crypto(s.ctx, st)

		s.Equal(append(append([]string(nil), st.RiskFactors...), "CRYPTO_PEEL_CHAIN"), out.RiskFactors)
		s.NotContains(out.RiskFactors, "TBML_OVER_INVOICING")
	})

	s.Run("skips the reasoner below the review threshold", func() {
		age := 400
		st := s.state(models.Transaction{
			ID:     "tx-small",
			Type:   models.TransactionCrypto,
			Crypto: &models.CryptoDetails{WalletAgeDays: &age, CrossChainSwaps: 1},
		}, models.Customer{ID: "c-1"})
		st, err := rules.Crypto(s.cfg)(st)
		s.Require().NoError(err)
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		out := s.aug.Crypto(s.ctx, st)

		s.Equal(st.RiskFactors, out.RiskFactors)
	})

	s.Run("failure leaves the state untouched", func() {
		st := s.cryptoState(true)
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", unavailable)

		out := s.aug.Crypto(s.ctx, st)

		s.Equal(st.RiskFactors, out.RiskFactors)
		s.Equal(1.0, s.skipped(StepCrypto))
	})
}

func (s *AugmentSuite) TestSanctionsNeverChangesHits() {
	st := s.state(models.Transaction{ID: "tx-1", Parties: []string{"acme ltd"}}, models.Customer{ID: "c-1"})
	st, err := rules.Sanctions(s.cfg)(st)
	s.Require().NoError(err)
	s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("POTENTIAL MATCH: SANCTIONS_EVASION_RISK. Confidence: 0.4", nil)

	out := s.aug.Sanctions(s.ctx, st)

	s.Empty(out.SanctionHits)
	r, ok := out.Result(models.StageSanctionsReview)
	s.Require().True(ok)
	s.False(r.Scored)
	review := r.Details.(SanctionsReview)
	s.True(review.PotentialMatch)
	s.Equal(1, review.PartiesScreened)
	s.Equal([]string{"POTENTIAL", "MATCH", "SANCTIONS_EVASION_RISK"}, review.RiskCodes)
	s.Equal(0.4, review.Confidence)
}

func (s *AugmentSuite) TestPEP() {
	customer := func(name string) models.State {
		st := s.state(models.Transaction{ID: "tx-1"}, models.Customer{ID: "c-1", Name: name})
		st, err := rules.PEP(s.cfg)(st)
		s.Require().NoError(err)
		return st
	}

	s.Run("raises status the keyword check missed", func() {
		st := customer("Jane Doe")
		s.Require().False(st.IsPEP())
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("Subject is a PEP, PEP_FAMILY_MEMBER", nil)

		out := s.aug.PEP(s.ctx, st)

		s.True(out.IsPEP())
		s.Equal(llmPEPConfidence, out.PEPDetails.Confidence)
		s.Equal(matchLLMAnalysis, out.PEPDetails.MatchType)
		s.Equal([]string{"PEP_MATCH", "PEP_FAMILY_MEMBER"}, out.RiskFactors)
	})

	s.Run("keeps the higher confidence", func() {
		st := customer("Minister Adebayo")
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("Confirmed PEP. Confidence: 0.9", nil)

		out := s.aug.PEP(s.ctx, st)

		s.Equal(0.9, out.PEPDetails.Confidence)
		s.Equal([]string{"PEP_MATCH"}, out.RiskFactors)
	})

	s.Run("a negative answer never lowers the status", func() {
		st := customer("Minister Adebayo")
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("Subject is NOT a PEP", nil)

		out := s.aug.PEP(s.ctx, st)

		s.True(out.IsPEP())
		s.Equal(0.7, out.PEPDetails.Confidence)
	})
}

func (s *AugmentSuite) TestDocuments() {
	withDocs := s.state(models.Transaction{ID: "tx-1", Documents: []string{"invoice-4411.pdf", "bill-of-lading.pdf"}},
		models.Customer{ID: "c-1"})

	s.Run("keeps trade and document codes and scores the review", func() {
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("TBML_OVER_INVOICING, DOC_MISMATCH, PHANTOM_SHIPMENT, DUPLICATE_INVOICE. RISK_SCORE: 45", nil)

		out := s.aug.Documents(s.ctx, withDocs)

		s.Equal([]string{"TBML_OVER_INVOICING", "DOC_MISMATCH", "DUPLICATE_INVOICE"}, out.RiskFactors)
		s.Equal([]string{"Document analysis flags: TBML_OVER_INVOICING, DOC_MISMATCH, DUPLICATE_INVOICE"}, out.Alerts)
		r, ok := out.Result(models.StageDocuments)
		s.Require().True(ok)
		s.True(r.Scored)
		s.Equal(45, r.Score)
		s.Equal(2, r.Details.(DocumentReview).DocumentsReviewed)
	})

	s.Run("failure attaches an unscored result with the error", func() {
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", unavailable)

		out := s.aug.Documents(s.ctx, withDocs)

		r, ok := out.Result(models.StageDocuments)
		s.Require().True(ok)
		s.False(r.Scored)
		s.Contains(r.Error, "timeout")
		s.Empty(out.RiskFactors)
	})

	s.Run("no documents never reaches the reasoner", func() {
		st := s.state(models.Transaction{ID: "tx-2"}, models.Customer{ID: "c-1"})
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		out := s.aug.Documents(s.ctx, st)

		_, ok := out.Result(models.StageDocuments)
		s.False(ok)
	})
}

func (s *AugmentSuite) TestEnhancedDueDiligence() {
	st := s.cryptoState(true)

	s.Run("scores with the parsed score", func() {
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("CRYPTO_MIXER_DETECTED, LAYERING_SUSPECTED. High risk. Risk score: 70", nil)

		out := s.aug.EnhancedDueDiligence(s.ctx, st)

		s.Equal(append(append([]string(nil), st.RiskFactors...), "LAYERING_SUSPECTED"), out.RiskFactors)
		r, ok := out.Result(models.StageEnhancedDueDiligence)
		s.Require().True(ok)
		s.True(r.Scored)
		s.Equal(70, r.Score)
		s.Equal(models.RiskHigh, r.Details.(DueDiligence).RecommendedLevel)
	})

	s.Run("defaults the score when none is given", func() {
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("looks unusual", nil)

		out := s.aug.EnhancedDueDiligence(s.ctx, st)

		r, _ := out.Result(models.StageEnhancedDueDiligence)
		s.Equal(eddDefaultScore, r.Score)
	})

	s.Run("failure attaches an unscored result", func() {
		s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", unavailable)

		out := s.aug.EnhancedDueDiligence(s.ctx, st)

		r, ok := out.Result(models.StageEnhancedDueDiligence)
		s.Require().True(ok)
		s.False(r.Scored)
		s.NotEmpty(r.Error)
		s.Equal(st.RiskFactors, out.RiskFactors)
	})
}

func (s *AugmentSuite) TestNarrative() {
	st := s.state(models.Transaction{ID: "tx-1"}, models.Customer{ID: "c-1", Name: "Jane Doe"})

	s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("Narrative text", nil)
	s.Equal(models.SARNarrative{Text: "Narrative text"}, s.aug.Narrative(s.ctx, st))

	s.reasoner.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", unavailable)
	n := s.aug.Narrative(s.ctx, st)
	s.Empty(n.Text)
	s.Contains(n.Error, "sar_narrative review")
}

func TestNewWithoutReasonerIsDisabled(t *testing.T) {
	aug := New(nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	n := aug.Narrative(context.Background(), models.State{})
	if n.Error == "" {
		t.Fatal("expected narrative error from disabled reasoner")
	}
}
