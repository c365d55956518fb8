// internal/metrics/metrics.go
// Package metrics exposes the Prometheus counters the seller updates
// during operation:
//   - seller_runs_total{trigger}            – exit runs started (insta|ladder)
//   - seller_sells_submitted_total{mode,outcome} – swap submissions (direct|bundle, ok|error)
//   - seller_ladder_levels_fired_total{side}     – levels fired (stop_loss|take_profit)
//   - seller_balance_race_wins_total{source}     – balance race winners (stream|rpc)
//
// Registered in init() and served by the HTTP router at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RunsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_runs_total",
			Help: "Exit runs started",
		},
		[]string{"trigger"}, // insta|ladder
	)

	SellsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_sells_submitted_total",
			Help: "Swap submissions by mode and outcome",
		},
		[]string{"mode", "outcome"}, // direct|bundle, ok|error
	)

	LadderLevelsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_ladder_levels_fired_total",
			Help: "Ladder levels fired by side",
		},
		[]string{"side"}, // stop_loss|take_profit
	)

	BalanceRaceWins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_balance_race_wins_total",
			Help: "Balance race winners by source",
		},
		[]string{"source"}, // stream|rpc
	)
)

func init() {
	prometheus.MustRegister(RunsStarted, SellsSubmitted, LadderLevelsFired, BalanceRaceWins)
}
