package handler

import (
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/service"
)

// BatchItemResponse is one entry of a batch response.
type BatchItemResponse struct {
	Index      int                `json:"index"`
	Assessment *models.Assessment `json:"assessment,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// BatchResponse is the HTTP response for POST /v1/assessments/batch.
type BatchResponse struct {
	Results   []BatchItemResponse `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// ListResponse is the HTTP response for GET /v1/customers/{customerID}/assessments.
type ListResponse struct {
	CustomerID  string               `json:"customer_id"`
	Assessments []*models.Assessment `json:"assessments"`
}

func fromBatch(results []service.BatchResult) *BatchResponse {
	resp := &BatchResponse{Results: make([]BatchItemResponse, 0, len(results))}
	for _, r := range results {
		item := BatchItemResponse{Index: r.Index, Assessment: r.Assessment}
		if r.Err != nil {
			item.Error = r.Err.Error()
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}
