/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	openSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contestbox_sessions_open",
			Help: "Current number of registered participant connections",
		},
	)

	// outcome is "ok" or the failure kind
	commandsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contestbox_commands_total",
			Help: "Total number of inbound commands",
		},
		[]string{"command", "outcome"},
	)

	correctAnswers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contestbox_correct_answers_total",
			Help: "Total number of correct answers committed",
		},
	)

	broadcastsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contestbox_broadcasts_dropped_total",
			Help: "Total number of broadcast messages not delivered",
		},
		[]string{"kind"},
	)

	rankingInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contestbox_ranking_invalidations_total",
			Help: "Total number of times the ranking cache was marked stale",
		},
	)
)

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}

	kind := KindOf(err)
	if kind == 0 {
		return "error"
	}

	return strings.ReplaceAll(kind.String(), " ", "_")
}

func commandLabel(command string) string {
	switch command {
	case CommandConnect, CommandAnswer, CommandHint1, CommandHint2:
		return command
	case "":
		return "missing"
	default:
		return "unknown"
	}
}
