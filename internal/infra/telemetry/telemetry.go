package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/VickyKR37/autobook/internal/core/port"
)

// AccessCodeMetricsOptions configures the access code collectors.
type AccessCodeMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// AccessCodeMetrics counts issued codes and validation outcomes.
type AccessCodeMetrics struct {
	Issued      *prometheus.CounterVec
	Validations *prometheus.CounterVec
}

var _ port.AccessCodeMetrics = (*AccessCodeMetrics)(nil)

// NewAccessCodeMetrics constructs the collectors and registers them with the provided registerer.
func NewAccessCodeMetrics(opts AccessCodeMetricsOptions) (*AccessCodeMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "autobook"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	issued, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "access_code",
		Name:      "issued_total",
		Help:      "Total number of access codes issued partitioned by trigger.",
	}, []string{"trigger"}))
	if err != nil {
		return nil, fmt.Errorf("register issued collector: %w", err)
	}

	validations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "access_code",
		Name:      "validations_total",
		Help:      "Total number of mechanic access validations partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, fmt.Errorf("register validations collector: %w", err)
	}

	return &AccessCodeMetrics{Issued: issued, Validations: validations}, nil
}

// ObserveIssued records one issued code for trigger.
func (m *AccessCodeMetrics) ObserveIssued(trigger string) {
	if m == nil || m.Issued == nil {
		return
	}
	m.Issued.WithLabelValues(trigger).Inc()
}

// ObserveValidation records one validation attempt with the given outcome.
func (m *AccessCodeMetrics) ObserveValidation(outcome string) {
	if m == nil || m.Validations == nil {
		return
	}
	m.Validations.WithLabelValues(outcome).Inc()
}

func registerCounterVec(reg prometheus.Registerer, collector *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(collector); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}
