package tracing

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const exportTimeout = 10 * time.Second

// newOTLPExporter builds a span exporter for the collector endpoint. An
// "http://" prefix selects the OTLP/HTTP transport, anything else uses gRPC.
// Local collectors run without TLS so both transports dial insecurely.
func newOTLPExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	if strings.HasPrefix(endpoint, "http://") {
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(strings.TrimPrefix(endpoint, "http://")),
			otlptracehttp.WithTimeout(exportTimeout),
			otlptracehttp.WithInsecure(),
		)
	}

	endpoint = strings.TrimPrefix(endpoint, "grpc://")
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithInsecure(),
	)
}

// noopExporter backs the tracer provider when no collector is configured
type noopExporter struct{}

func (noopExporter) ExportSpans(_ context.Context, _ []sdktrace.ReadOnlySpan) error { return nil }

func (noopExporter) Shutdown(_ context.Context) error { return nil }
