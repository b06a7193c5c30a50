package telemetry

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/VickyKR37/autobook/internal/infra/config"
)

func TestExporterOptionsEndpointForms(t *testing.T) {
	if got := len(exporterOptions("")); got != 1 {
		t.Fatalf("expected only the timeout option for empty endpoint, got %d", got)
	}
	if got := len(exporterOptions("http://collector:4318")); got != 2 {
		t.Fatalf("expected URL option, got %d options", got)
	}
	if got := len(exporterOptions("collector:4318")); got != 3 {
		t.Fatalf("expected endpoint and insecure options, got %d options", got)
	}
}

func TestNewTracerProviderLifecycle(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, config.TelemetrySettings{
		OTLPEndpoint: "localhost:4318",
		ServiceName:  "autobook-access-test",
		SamplingRate: 0,
	}, "test", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTracerProvider returned error: %v", err)
	}

	_, span := tp.Tracer("test").Start(ctx, "noop")
	span.End()

	if tp.Provider() == nil {
		t.Fatal("expected underlying provider")
	}

	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
