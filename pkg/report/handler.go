package report

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/logging"
)

// ErrorHandler is notified about every failed record.
type ErrorHandler interface {
	OnError(ctx context.Context, detail ErrorDetail)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(ctx context.Context, detail ErrorDetail)

// OnError implements ErrorHandler.
func (f ErrorHandlerFunc) OnError(ctx context.Context, detail ErrorDetail) {
	f(ctx, detail)
}

// LogErrorHandler logs failures until Limit failures have been seen. A
// zero limit logs every failure.
type LogErrorHandler struct {
	Limit int
}

// OnError implements ErrorHandler.
func (h *LogErrorHandler) OnError(ctx context.Context, detail ErrorDetail) {
	logger := logging.FromContext(ctx)
	if h.Limit == 0 || detail.Index < h.Limit {
		logger.Error().
			Int("failed", detail.Index).
			Strs("skus", detail.SKUs).
			Int("status", detail.StatusCode).
			Str("error", detail.Message).
			Msg("Skipping product due to an error")
		return
	}
	logger.Warn().Msgf("Error not logged as error limit of %d has reached.", h.Limit)
}
