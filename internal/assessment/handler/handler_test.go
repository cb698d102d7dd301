package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/augment"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/reasoning"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/service"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/store/memory"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/workflow"
	dErrors "github.com/KUNALSHAWW/SentinelAI-AML/pkg/domain-errors"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/sentinel"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	store  *memory.InMemoryStore
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := workflow.NewEngine(rules.DefaultConfig(),
		augment.New(reasoning.Disabled{}, augment.WithLogger(logger)),
		workflow.WithLogger(logger),
	)
	s.Require().NoError(err)
	s.store = memory.NewInMemoryStore()
	svc := service.New(engine, s.store, service.WithLogger(logger))

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = testutil.NewRequest(s.T(), method, path)
	case string:
		req = testutil.NewRequestWithBody(s.T(), method, path, b)
	default:
		req = testutil.NewJSONRequest(s.T(), method, path, b)
	}
	return testutil.DoRequest(s.router, req)
}

func reviewCase(txID string) map[string]any {
	return map[string]any{
		"transaction": map[string]any{
			"id": txID, "amount": 9500, "currency": "usd", "transaction_type": "WIRE_TRANSFER",
			"origin_country": "US", "destination_country": "CA",
		},
		"customer": map[string]any{"id": "c-1", "name": "Jane Doe", "account_age_days": 120},
	}
}

func decode[T any](s *HandlerSuite, rec *httptest.ResponseRecorder) T {
	return *testutil.UnmarshalResponse[T](s.T(), rec)
}

func (s *HandlerSuite) TestAnalyzeGetAndResolve() {
	rec := s.do(http.MethodPost, "/v1/assessments", reviewCase("tx-1"))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Assessment](s, rec)
	s.Equal(60, created.RiskScore)
	s.Equal(models.StatusPendingReview, created.ReportingStatus)
	s.NotNil(created.ReviewDeadline)

	rec = s.do(http.MethodGet, "/v1/assessments/"+created.RunID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(created.RunID, decode[models.Assessment](s, rec).RunID)

	rec = s.do(http.MethodPost, "/v1/assessments/"+created.RunID+"/resolve", map[string]string{"disposition": "cleared"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(models.StatusCleared, decode[models.Assessment](s, rec).ReportingStatus)

	rec = s.do(http.MethodPost, "/v1/assessments/"+created.RunID+"/resolve", map[string]string{"disposition": "SAR_GENERATED"})
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestAnalyzeWithoutTimestampIgnoresOldHistory() {
	req := reviewCase("tx-old-history")
	req["customer"].(map[string]any)["transaction_history"] = []map[string]any{
		{"amount": 9200, "timestamp": "2025-01-10T10:00:00Z"},
		{"amount": 9350, "timestamp": "2025-06-10T10:00:00Z"},
	}

	rec := s.do(http.MethodPost, "/v1/assessments", req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Assessment](s, rec)
	s.Contains(created.RiskFactors, "POTENTIAL_STRUCTURING")
	s.NotContains(created.RiskFactors, "STRUCTURING_PATTERN")
	s.NotContains(created.RiskFactors, "UNIFORM_TRANSACTION_PATTERN")
}

func (s *HandlerSuite) TestResolveRejectsNonClosingTarget() {
	rec := s.do(http.MethodPost, "/v1/assessments", reviewCase("tx-2"))
	s.Require().Equal(http.StatusCreated, rec.Code)
	created := decode[models.Assessment](s, rec)

	rec = s.do(http.MethodPost, "/v1/assessments/"+created.RunID+"/resolve", map[string]string{"disposition": "PENDING_REVIEW"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/assessments/"+created.RunID+"/resolve", map[string]string{"disposition": ""})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestNotFound() {
	rec := s.do(http.MethodGet, "/v1/assessments/missing", nil)
	testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")

	rec = s.do(http.MethodPost, "/v1/assessments/missing/resolve", map[string]string{"disposition": "CLEARED"})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestAnalyzeValidation() {
	s.Run("malformed JSON", func() {
		rec := s.do(http.MethodPost, "/v1/assessments", `{"transaction":`)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing transaction id", func() {
		req := reviewCase(" ")
		rec := s.do(http.MethodPost, "/v1/assessments", req)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("transaction.id is required", decode[map[string]string](s, rec)["error_description"])
	})

	s.Run("non-positive amount", func() {
		req := reviewCase("tx-3")
		req["transaction"].(map[string]any)["amount"] = 0
		rec := s.do(http.MethodPost, "/v1/assessments", req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestBatchReportsItemsIndependently() {
	bad := reviewCase("tx-bad")
	bad["transaction"].(map[string]any)["amount"] = -5
	rec := s.do(http.MethodPost, "/v1/assessments/batch", map[string]any{
		"items": []any{reviewCase("tx-a"), bad, reviewCase("tx-c")},
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[BatchResponse](s, rec)
	s.Equal(2, resp.Succeeded)
	s.Equal(1, resp.Failed)
	s.Require().Len(resp.Results, 3)
	s.Equal("tx-a", resp.Results[0].Assessment.TransactionID)
	s.Nil(resp.Results[1].Assessment)
	s.Contains(resp.Results[1].Error, "initial_screening")
	s.Equal(2, resp.Results[2].Index)

	rec = s.do(http.MethodPost, "/v1/assessments/batch", map[string]any{"items": []any{}})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestListByCustomer() {
	for i := range 3 {
		rec := s.do(http.MethodPost, "/v1/assessments", reviewCase(fmt.Sprintf("tx-%d", i)))
		s.Require().Equal(http.StatusCreated, rec.Code)
	}

	rec := s.do(http.MethodGet, "/v1/customers/c-1/assessments?limit=2", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	resp := decode[ListResponse](s, rec)
	s.Equal("c-1", resp.CustomerID)
	s.Len(resp.Assessments, 2)

	rec = s.do(http.MethodGet, "/v1/customers/nobody/assessments", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Empty(decode[ListResponse](s, rec).Assessments)

	rec = s.do(http.MethodGet, "/v1/customers/c-1/assessments?limit=abc", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want dErrors.Code
	}{
		{"malformed input", &workflow.StageComputationError{Node: "initial_screening", Err: rules.ErrMalformedInput}, dErrors.CodeValidation},
		{"stage failure", &workflow.StageComputationError{Node: "risk_scoring", Err: errors.New("boom")}, dErrors.CodeUnprocessable},
		{"not found", sentinel.ErrNotFound, dErrors.CodeNotFound},
		{"invalid disposition", fmt.Errorf("resolve: %w", models.ErrInvalidDisposition), dErrors.CodeConflict},
		{"deadline", context.DeadlineExceeded, dErrors.CodeTimeout},
		{"already coded", dErrors.New(dErrors.CodeBadRequest, "x"), dErrors.CodeBadRequest},
		{"unknown", errors.New("disk on fire"), dErrors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, dErrors.CodeOf(toDomainError(tc.err)))
		})
	}
}
