package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcileRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_reconcile_runs_total",
		Help: "Total number of catalog reconciliation runs",
	}, []string{"branch", "result"})

	ReconciledProductsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_reconciled_products_total",
		Help: "Total number of products upserted during reconciliation",
	}, []string{"branch"})

	RemoteCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_call_latency_seconds",
		Help:    "Latency of payment provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "outcome"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of webhook deliveries by event kind and outcome",
	}, []string{"kind", "outcome"})

	FulfillmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_fulfillments_total",
		Help: "Total number of checkout completions handled",
	}, []string{"result"})

	CheckoutSessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Total number of checkout sessions created",
	})

	ProductCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_cache_lookups_total",
		Help: "Product cache lookups by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
