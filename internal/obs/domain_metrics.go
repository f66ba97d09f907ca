package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TokenRequestTotal counts token acquisition attempts against the processor.
	TokenRequestTotal *prometheus.CounterVec
	// PaymentOpTotal counts payment operations (create/confirm/status) by outcome code.
	PaymentOpTotal *prometheus.CounterVec
	// ProcessorLatency records outbound processor call latency in milliseconds.
	ProcessorLatency *prometheus.HistogramVec
	// WebhookEventTotal counts inbound webhook events by verification outcome.
	WebhookEventTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TokenRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Processor authentication attempts by result.",
		}, []string{"result"})
		PaymentOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_operations_total",
			Help:      "Payment operations by operation and outcome code.",
		}, []string{"operation", "code"})
		ProcessorLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processor_request_duration_ms",
			Help:      "Latency of outbound processor calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"})
		WebhookEventTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound payment webhook events by verification outcome.",
		}, []string{"result"})
		reg.MustRegister(TokenRequestTotal, PaymentOpTotal, ProcessorLatency, WebhookEventTotal)
	})
}

// ObservePaymentOp records a payment operation outcome when metrics are registered.
func ObservePaymentOp(operation, code string) {
	if PaymentOpTotal != nil {
		PaymentOpTotal.WithLabelValues(operation, code).Inc()
	}
}

// ObserveTokenRequest records a token acquisition outcome.
func ObserveTokenRequest(result string) {
	if TokenRequestTotal != nil {
		TokenRequestTotal.WithLabelValues(result).Inc()
	}
}
