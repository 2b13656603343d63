package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/dukex/cadence/pkg/otelhelper"
)

// SetupTracing installs the global OTLP tracer provider when an exporter
// endpoint is configured. Without one, tracing stays a no-op.
func SetupTracing(ctx context.Context, serviceName string, logger *slog.Logger) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return
	}

	_, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize tracer", "error", err)
	}
}
