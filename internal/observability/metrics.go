package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "matches_total", Help: "Total passenger sessions that found a driver"})
	RidesConfirmed     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "rides_confirmed_total", Help: "Total rides confirmed by passengers"})
	RidesCancelled     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "rides_cancelled_total", Help: "Total passenger sessions cancelled"})
	OffersDispatched   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "dispatch_offers_total", Help: "Total ride offers pushed to drivers"})
	OffersExpired      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "dispatch_offers_expired_total", Help: "Offers withdrawn after the acceptance window lapsed"})
	RidesCompleted     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "rides_completed_total", Help: "Rides completed by drivers"})
	SharesApproved     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "share_requests_approved_total", Help: "Co-passenger requests approved"})
	SharesRejected     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharka", Name: "share_requests_rejected_total", Help: "Co-passenger requests rejected"})
	DriversOnline      = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "sharka", Name: "drivers_online", Help: "Number of online drivers"})
	MatchLatency       = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "sharka", Name: "match_latency_seconds", Help: "Time from booking to driver_found"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sharka", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sharka",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
