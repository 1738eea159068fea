// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoundsStarted counts successful round starts by effective category.
	RoundsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guess_rounds_started_total",
		Help: "Rounds started, by category",
	}, []string{"category"})

	// RoundsWon counts victories, split by whether a hint was used.
	RoundsWon = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guess_rounds_won_total",
		Help: "Rounds won, by perfect flag",
	}, []string{"perfect"})

	// Guesses counts accepted guesses by outcome (correct, wrong) and hint reveals.
	Guesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guess_guesses_total",
		Help: "Accepted guesses and hint reveals, by outcome",
	}, []string{"outcome"})

	// GenerationFailures counts failed entry generations by error code.
	GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guess_generation_failures_total",
		Help: "Entry generation failures, by code",
	}, []string{"code"})

	// FallbackServed counts entries served from the fallback table after a
	// generator failure, by the failure code.
	FallbackServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guess_fallback_served_total",
		Help: "Fallback entries served after generator failures, by code",
	}, []string{"code"})

	// StateResets counts persisted documents discarded on load.
	StateResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guess_state_resets_total",
		Help: "Persisted documents reset to defaults, by reason",
	}, []string{"reason"})
)
