package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hub_bridge"

var (
	// HTTPRequestsTotal counts API requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SagaStageTotal counts stage transitions. result is "ok" or "failed".
	SagaStageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saga_stage_total",
		Help:      "Bridge saga stage transitions",
	}, []string{"stage", "result"})

	SagaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "saga_duration_seconds",
		Help:      "End-to-end bridge saga duration",
		Buckets:   []float64{30, 60, 120, 300, 600, 900, 1200, 1800, 2700},
	}, []string{"outcome"})

	SagasInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sagas_in_flight",
		Help:      "Sagas currently owned by this process",
	})

	AttestationPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attestation_polls_total",
		Help:      "Attestation oracle polls by result",
	}, []string{"result"})

	ExecutorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "executor_calls_total",
		Help:      "Custody contract calls by kind and result",
	}, []string{"kind", "result"})

	WalletProvisioningTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_provisioning_total",
		Help:      "Wallet provisioning lookups by path",
	}, []string{"path"})

	DeliveryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_attempts_total",
		Help:      "Delivery transfer attempts by result",
	}, []string{"result"})

	StalledSagasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stalled_sagas_total",
		Help:      "Sagas marked stalled by the recovery sweep",
	})

	DatabaseConnectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "database_connections",
		Help:      "Database pool connections by state",
	}, []string{"state"})
)
