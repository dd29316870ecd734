package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashout_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "cashout_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"route"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cashout_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	ProjectionsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashout_projections_total",
			Help: "Total number of projections served, by cache result",
		},
		[]string{"cache"},
	)
)
