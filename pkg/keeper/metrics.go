package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "keeper_tick_duration_seconds",
		Help:    "Full tick scan duration distribution in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
	})
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_ticks_total",
	})
	executionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_executions_total",
	})
	underfundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_underfunded_skips_total",
	})
	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keeper_failures_total",
	}, []string{"stage"})
)
