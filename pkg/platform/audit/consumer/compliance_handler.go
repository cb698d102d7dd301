package consumer

import (
	"context"
	"fmt"
	"log/slog"

	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
)

// ComplianceHandler stores SAR filings, review requests and resolutions.
// Store failures are returned so the record is redelivered.
type ComplianceHandler struct {
	store  audit.Store
	logger *slog.Logger
}

func NewComplianceHandler(store audit.Store, logger *slog.Logger) *ComplianceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplianceHandler{store: store, logger: logger}
}

func (h *ComplianceHandler) Handle(ctx context.Context, msg *Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		// A poison record would block the partition forever.
		h.logger.Error("CRITICAL: failed to decode compliance event",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if event.RunID == "" {
		h.logger.Error("CRITICAL: compliance event missing run id",
			"event_id", event.ID,
			"action", event.Action,
		)
		return nil
	}

	if err := h.store.Append(ctx, event); err != nil {
		h.logger.Error("failed to store compliance event",
			"event_id", event.ID,
			"run_id", event.RunID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store compliance event: %w", err)
	}

	h.logger.Debug("stored compliance event",
		"event_id", event.ID,
		"run_id", event.RunID,
		"action", event.Action,
	)
	return nil
}
