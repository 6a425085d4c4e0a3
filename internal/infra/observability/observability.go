// Package observability holds the Prometheus metrics of the allowance core.
//
// Metrics cover:
//   - The running balance and ledger mutations by type
//   - Quest transitions (complete, uncomplete, period reset)
//   - Best-effort persistence failures (never fatal, always counted)
//   - Celebration signals handed to the UI
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerBalance tracks the current running balance.
var LedgerBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "allowance",
	Subsystem: "ledger",
	Name:      "balance",
	Help:      "Current running balance of the ledger.",
})

// LedgerTransactions tracks the number of transactions held by the ledger.
var LedgerTransactions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "allowance",
	Subsystem: "ledger",
	Name:      "transactions",
	Help:      "Number of transactions currently in the ledger.",
})

// LedgerMutations counts ledger mutations by operation and transaction type.
var LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "allowance",
	Subsystem: "ledger",
	Name:      "mutations_total",
	Help:      "Total ledger mutations by operation (add, remove) and type (income, expense).",
}, []string{"op", "type"})

// LedgerRejected counts rejected transaction inputs by reason.
var LedgerRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "allowance",
	Subsystem: "ledger",
	Name:      "rejected_total",
	Help:      "Total transaction inputs rejected by validation.",
}, []string{"reason"})

// ─── Quest Metrics ──────────────────────────────────────────────────────────

// QuestTransitions counts quest state transitions.
var QuestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "allowance",
	Subsystem: "quest",
	Name:      "transitions_total",
	Help:      "Total quest transitions by quest and transition (complete, uncomplete, reset).",
}, []string{"quest", "transition"})

// QuestsCompleted tracks how many quests are completed for their current period.
var QuestsCompleted = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "allowance",
	Subsystem: "quest",
	Name:      "completed",
	Help:      "Number of quests completed for their current period.",
})

// ─── Persistence Metrics ────────────────────────────────────────────────────

// PersistenceFailures counts store failures by operation (load, save, decode).
var PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "allowance",
	Subsystem: "store",
	Name:      "failures_total",
	Help:      "Total key-value store failures; state continues in memory.",
}, []string{"op"})

// ─── Celebration Metrics ────────────────────────────────────────────────────

// CelebrationActive is 1 while a celebration is shown.
var CelebrationActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "allowance",
	Subsystem: "celebration",
	Name:      "active",
	Help:      "Whether a celebration is currently requested (1) or not (0).",
})

// Celebrations counts celebration signals.
var Celebrations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "allowance",
	Subsystem: "celebration",
	Name:      "started_total",
	Help:      "Total celebrations requested.",
})

// SetCelebrating updates the celebration gauge.
func SetCelebrating(active bool) {
	if active {
		CelebrationActive.Set(1)
		return
	}
	CelebrationActive.Set(0)
}

// ─── Event Stream Metrics ───────────────────────────────────────────────────

// EventSubscribers is the number of live event stream clients.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "allowance",
	Subsystem: "events",
	Name:      "subscribers",
	Help:      "Number of connected event stream clients.",
})

// EventsDropped counts events not delivered to a slow client.
var EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "allowance",
	Subsystem: "events",
	Name:      "dropped_total",
	Help:      "Total events dropped because a client buffer was full.",
})
