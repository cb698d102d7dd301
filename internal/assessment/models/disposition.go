package models

import (
	"errors"
	"fmt"
)

// RiskLevel is the discrete band derived from a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ReportingStatus is the disposition a terminal node assigns to a run.
type ReportingStatus string

const (
	StatusSARGenerated  ReportingStatus = "SAR_GENERATED"
	StatusPendingReview ReportingStatus = "PENDING_REVIEW"
	StatusCleared       ReportingStatus = "CLEARED"
)

// ErrInvalidDisposition is returned when a terminal action is requested with
// a status outside the closing set.
var ErrInvalidDisposition = errors.New("invalid disposition")

// IsClosing reports whether the status is one a terminal node may assign.
func (s ReportingStatus) IsClosing() bool {
	switch s {
	case StatusSARGenerated, StatusPendingReview, StatusCleared:
		return true
	default:
		return false
	}
}

// ParseReportingStatus validates a caller-supplied disposition.
func ParseReportingStatus(raw string) (ReportingStatus, error) {
	s := ReportingStatus(raw)
	if !s.IsClosing() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDisposition, raw)
	}
	return s, nil
}
