// Package metrics declares the Prometheus collectors shared across the service.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// DistanceResolutions counts resolved distances by source (provider, cache, estimate).
	DistanceResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distance_resolutions_total",
			Help: "Distance lookups partitioned by the source that answered them",
		},
		[]string{"source"},
	)

	// QuoteCalculations counts quotes by path (rules or fallback).
	QuoteCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_calculations_total",
			Help: "Quote calculations partitioned by the path that produced them",
		},
		[]string{"source"},
	)

	// PurchaseAttempts counts purchase attempts by branch (checkout, direct,
	// confirm) and result.
	PurchaseAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_purchase_attempts_total",
			Help: "Lead purchase attempts partitioned by branch and result",
		},
		[]string{"branch", "result"},
	)

	RuleStoreRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_rule_refreshes_total",
			Help: "Pricing rule cache refreshes partitioned by result",
		},
		[]string{"result"},
	)
)
