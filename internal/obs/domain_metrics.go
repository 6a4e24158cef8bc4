package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// RecomputeTotal counts pricing recomputes by tender mode.
	RecomputeTotal *prometheus.CounterVec
	// RecomputeDuration records recompute latency in microseconds.
	RecomputeDuration prometheus.Histogram
	// GuardRejectionsTotal counts mutations rejected by session guards.
	GuardRejectionsTotal *prometheus.CounterVec
	// SessionsOpen tracks the number of live cart sessions.
	SessionsOpen prometheus.Gauge
	// ObserverErrorsTotal counts snapshot observer failures by topic.
	ObserverErrorsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RecomputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_recompute_total",
			Help:      "Count of pricing snapshot recomputes by tender mode.",
		}, []string{"mode"})
		RecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_recompute_duration_us",
			Help:      "Latency of pricing recomputes in microseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
		})
		GuardRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_guard_rejections_total",
			Help:      "Count of cart mutations rejected by session guards.",
		}, []string{"guard"})
		SessionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_sessions_open",
			Help:      "Number of live cart sessions on this terminal.",
		})
		ObserverErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_observer_errors_total",
			Help:      "Count of snapshot observer failures by topic.",
		}, []string{"topic"})

		mustRegisterCollector(reg, RecomputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RecomputeTotal = v
			}
		})
		mustRegisterCollector(reg, RecomputeDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				RecomputeDuration = v
			}
		})
		mustRegisterCollector(reg, GuardRejectionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GuardRejectionsTotal = v
			}
		})
		mustRegisterCollector(reg, SessionsOpen, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				SessionsOpen = v
			}
		})
		mustRegisterCollector(reg, ObserverErrorsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ObserverErrorsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
