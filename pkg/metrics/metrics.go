// Package metrics exposes the prometheus collectors for the WRDS agent.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrds_agent_build_info",
			Help: "Build information of the WRDS agent",
		},
		[]string{"version", "commit", "date"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrds_agent_runs_total",
			Help: "Orchestration runs by terminal state",
		},
		[]string{"state"},
	)

	AttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wrds_agent_attempts_total",
			Help: "Generate-execute-validate attempts across all runs",
		},
	)
)
