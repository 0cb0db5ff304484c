package context

import (
	"context"

	"github.com/go-kit/kit/metrics/provider"
	"github.com/owenthereal/upline/internal/logging"
)

type contextKey string

const (
	loggerKey          contextKey = "logger"
	metricsProviderKey contextKey = "metrics-provider"
)

func WithLogger(ctx context.Context, logger *logging.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the logger stored in ctx, or a logger discarding
// everything.
func Logger(ctx context.Context) *logging.Logger {
	if logger, ok := ctx.Value(loggerKey).(*logging.Logger); ok {
		return logger
	}
	return logging.Must()
}

func WithMetricsProvider(ctx context.Context, p provider.Provider) context.Context {
	return context.WithValue(ctx, metricsProviderKey, p)
}

func MetricsProvider(ctx context.Context) provider.Provider {
	if p, ok := ctx.Value(metricsProviderKey).(provider.Provider); ok {
		return p
	}
	return provider.NewDiscardProvider()
}
