package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/rules"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/service"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/workflow"
	dErrors "github.com/KUNALSHAWW/SentinelAI-AML/pkg/domain-errors"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/httputil"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/sentinel"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/requestcontext"
)

// Service defines the interface for assessment operations.
type Service interface {
	Analyze(ctx context.Context, tx models.Transaction, customer models.Customer) (models.State, *models.Assessment, error)
	AnalyzeBatch(ctx context.Context, items []service.BatchItem) []service.BatchResult
	Get(ctx context.Context, runID string) (*models.Assessment, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Assessment, error)
	Resolve(ctx context.Context, runID string, disposition models.ReportingStatus) (*models.Assessment, error)
}

// Handler wires assessment endpoints to the coordinator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an assessment handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts assessment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/assessments", h.HandleAnalyze)
	r.Post("/v1/assessments/batch", h.HandleBatch)
	r.Get("/v1/assessments/{runID}", h.HandleGet)
	r.Post("/v1/assessments/{runID}/resolve", h.HandleResolve)
	r.Get("/v1/customers/{customerID}/assessments", h.HandleListByCustomer)
}

// HandleAnalyze handles POST /v1/assessments.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	_, assessment, err := h.service.Analyze(ctx, req.Transaction, req.Customer)
	if err != nil {
		h.logger.ErrorContext(ctx, "assessment failed",
			"request_id", requestID,
			"transaction_id", req.Transaction.ID,
			"error", err,
		)
		httputil.WriteError(w, toDomainError(err))
		return
	}

	h.logger.InfoContext(ctx, "assessment completed",
		"request_id", requestID,
		"run_id", assessment.RunID,
		"risk_level", assessment.RiskLevel,
		"reporting_status", assessment.ReportingStatus,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, assessment)
}

// HandleBatch handles POST /v1/assessments/batch. Item failures are reported
// per item and the response is 200 as long as the batch itself was valid.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	items := make([]service.BatchItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.BatchItem{Transaction: it.Transaction, Customer: it.Customer}
	}
	resp := fromBatch(h.service.AnalyzeBatch(ctx, items))

	h.logger.InfoContext(ctx, "batch completed",
		"request_id", requestID,
		"items", len(items),
		"succeeded", resp.Succeeded,
		"failed", resp.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/assessments/{runID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	assessment, err := h.service.Get(ctx, runID)
	if err != nil {
		h.logFailure(ctx, "assessment lookup failed", runID, err)
		httputil.WriteError(w, toDomainError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assessment)
}

// HandleResolve handles POST /v1/assessments/{runID}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	runID := chi.URLParam(r, "runID")

	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assessment, err := h.service.Resolve(ctx, runID, models.ReportingStatus(req.Disposition))
	if err != nil {
		h.logFailure(ctx, "resolve failed", runID, err)
		httputil.WriteError(w, toDomainError(err))
		return
	}

	h.logger.InfoContext(ctx, "assessment resolved",
		"request_id", requestID,
		"run_id", runID,
		"disposition", assessment.ReportingStatus,
		"note", req.Note,
	)
	httputil.WriteJSON(w, http.StatusOK, assessment)
}

// HandleListByCustomer handles GET /v1/customers/{customerID}/assessments.
func (h *Handler) HandleListByCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	list, err := h.service.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		h.logFailure(ctx, "list assessments failed", customerID, err)
		httputil.WriteError(w, toDomainError(err))
		return
	}
	if list == nil {
		list = []*models.Assessment{}
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{CustomerID: customerID, Assessments: list})
}

func (h *Handler) logFailure(ctx context.Context, msg, id string, err error) {
	level := slog.LevelError
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, models.ErrInvalidDisposition) {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"id", id,
		"error", err,
	)
}

// toDomainError maps domain and infrastructure errors to API error codes.
func toDomainError(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	var stageErr *workflow.StageComputationError
	switch {
	case errors.Is(err, rules.ErrMalformedInput):
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "assessment not found")
	case errors.Is(err, models.ErrInvalidDisposition):
		return dErrors.Wrap(err, dErrors.CodeConflict, err.Error())
	case errors.As(err, &stageErr):
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, "assessment failed at "+stageErr.Node)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "assessment timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
	}
}
