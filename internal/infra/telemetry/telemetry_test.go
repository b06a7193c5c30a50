package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAccessCodeMetricsCountsByLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewAccessCodeMetrics(AccessCodeMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	metrics.ObserveIssued("account_created")
	metrics.ObserveIssued("regenerate")
	metrics.ObserveIssued("regenerate")
	metrics.ObserveValidation("granted")
	metrics.ObserveValidation("code_mismatch")

	if got := testutil.ToFloat64(metrics.Issued.WithLabelValues("regenerate")); got != 2 {
		t.Fatalf("expected 2 regenerations, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Issued.WithLabelValues("account_created")); got != 1 {
		t.Fatalf("expected 1 initial issuance, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Validations.WithLabelValues("code_mismatch")); got != 1 {
		t.Fatalf("expected 1 mismatch, got %f", got)
	}
}

func TestAccessCodeMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewAccessCodeMetrics(AccessCodeMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	second, err := NewAccessCodeMetrics(AccessCodeMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second registration failed: %v", err)
	}

	second.ObserveValidation("granted")
	if got := testutil.ToFloat64(first.Validations.WithLabelValues("granted")); got != 1 {
		t.Fatalf("expected shared collector, got %f", got)
	}
}

func TestAccessCodeMetricsNilSafe(t *testing.T) {
	var metrics *AccessCodeMetrics
	metrics.ObserveIssued("regenerate")
	metrics.ObserveValidation("granted")
}
