package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T, status int) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(Tracing(tp), EnrichContext())
	router.POST("/api/v1/mechanic-access/validate", func(c *gin.Context) {
		c.Status(status)
	})
	return router, recorder
}

func TestTracingSpanFeedsTraceIDHeader(t *testing.T) {
	router, recorder := newTracedRouter(t, http.StatusOK)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/mechanic-access/validate", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if got := rr.Header().Get(TraceIDHeader); got != spans[0].SpanContext().TraceID().String() {
		t.Fatalf("expected trace header %s, got %s", spans[0].SpanContext().TraceID(), got)
	}
	if spans[0].Name() != "POST /api/v1/mechanic-access/validate" {
		t.Fatalf("unexpected span name %q", spans[0].Name())
	}
}

func TestTracingContinuesInboundTraceParent(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	router, recorder := newTracedRouter(t, http.StatusOK)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mechanic-access/validate", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if got := recorder.Ended()[0].SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("expected inbound trace to continue, got %s", got)
	}
}

func TestTracingMarksServerErrors(t *testing.T) {
	router, recorder := newTracedRouter(t, http.StatusInternalServerError)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/mechanic-access/validate", nil))

	if got := recorder.Ended()[0].Status().Code; got != codes.Error {
		t.Fatalf("expected error status, got %v", got)
	}
}

func TestEnrichContextFallsBackToHeaderWithoutSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(EnrichContext())
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(TraceIDHeader, "client-trace")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Body.String() != "client-trace" || rr.Header().Get(TraceIDHeader) != "client-trace" {
		t.Fatalf("expected client trace id to be echoed, got body %q header %q", rr.Body.String(), rr.Header().Get(TraceIDHeader))
	}
}
