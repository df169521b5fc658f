package logger

import (
	"context"
	"log/slog"

	"vectorpg/internal/middleware"
)

// ContextHandler decorates a slog.Handler so every record emitted with a
// correlation-carrying context gets a correlation_id attribute.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
