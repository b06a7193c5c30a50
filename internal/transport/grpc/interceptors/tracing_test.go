package interceptors

import (
	"testing"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracingHandlerAcceptsProviderAndPropagators(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	handler := NewTracingHandler(TracingOptions{
		TracerProvider: tp,
		Propagators:    propagation.TraceContext{},
	})
	if handler == nil {
		t.Fatal("expected stats handler")
	}
}

func TestTracingServerOptionWithDefaults(t *testing.T) {
	if opt := TracingServerOption(TracingOptions{}); opt == nil {
		t.Fatal("expected server option")
	}
}
