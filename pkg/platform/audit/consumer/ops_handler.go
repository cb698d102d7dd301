package consumer

import (
	"context"
	"log/slog"

	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
)

// OpsHandler stores operational events on a best-effort basis.
type OpsHandler struct {
	store  audit.Store
	logger *slog.Logger
}

func NewOpsHandler(store audit.Store, logger *slog.Logger) *OpsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsHandler{store: store, logger: logger}
}

func (h *OpsHandler) Handle(ctx context.Context, msg *Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		h.logger.Debug("failed to decode ops event",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	if err := h.store.Append(ctx, event); err != nil {
		h.logger.Debug("failed to store ops event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err,
		)
	}
	return nil
}
