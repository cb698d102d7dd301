package handler

import (
	"fmt"
	"math"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	dErrors "github.com/KUNALSHAWW/SentinelAI-AML/pkg/domain-errors"
)

// MaxBatchItems caps a single batch request.
const MaxBatchItems = 100

// AnalyzeRequest is the body of POST /v1/assessments.
type AnalyzeRequest struct {
	Transaction models.Transaction `json:"transaction"`
	Customer    models.Customer    `json:"customer"`
}

// Validate normalises identifiers and rejects requests the workflow could
// never screen.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AnalyzeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Transaction.ID = strings.TrimSpace(r.Transaction.ID)
	if r.Transaction.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "transaction.id is required")
	}
	if math.IsNaN(r.Transaction.Amount) || math.IsInf(r.Transaction.Amount, 0) || r.Transaction.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "transaction.amount must be a positive number")
	}
	r.Transaction.Currency = strings.ToUpper(strings.TrimSpace(r.Transaction.Currency))
	r.Customer.ID = strings.TrimSpace(r.Customer.ID)
	if r.Customer.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "customer.id is required")
	}
	if r.Customer.AccountAgeDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "customer.account_age_days must not be negative")
	}
	return nil
}

// BatchRequest is the body of POST /v1/assessments/batch. Items are not
// validated here; a malformed item fails on its own without failing the batch.
type BatchRequest struct {
	Items []AnalyzeRequest `json:"items"`
}

func (r *BatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "items must not be empty")
	}
	if len(r.Items) > MaxBatchItems {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("items must contain at most %d entries", MaxBatchItems))
	}
	return nil
}

// ResolveRequest is the body of POST /v1/assessments/{runID}/resolve.
type ResolveRequest struct {
	Disposition string `json:"disposition"`
	Note        string `json:"note,omitempty"`
}

func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Disposition = strings.ToUpper(strings.TrimSpace(r.Disposition))
	if r.Disposition == "" {
		return dErrors.New(dErrors.CodeValidation, "disposition is required")
	}
	if len(r.Note) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 2000 characters")
	}
	return nil
}
