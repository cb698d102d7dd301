package consumer

import (
	"context"
	"log/slog"

	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
)

// Router dispatches messages to category-specific handlers using the
// "category" record header.
type Router struct {
	handlers map[audit.EventCategory]Handler
	fallback Handler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback Handler) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handlers: make(map[audit.EventCategory]Handler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a category.
func (r *Router) Register(category audit.EventCategory, handler Handler) {
	r.handlers[category] = handler
}

// Handle routes the message to the handler registered for its category.
func (r *Router) Handle(ctx context.Context, msg *Message) error {
	category := audit.EventCategory(msg.Headers["category"])
	handler, ok := r.handlers[category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, msg)
		}
		r.logger.Warn("no handler for audit category, skipping message",
			"category", category,
			"key", string(msg.Key),
			"offset", msg.Offset,
		)
		return nil // commit to avoid redelivery
	}
	return handler.Handle(ctx, msg)
}
