package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ─── Metrics ────────────────────────────────────────────────────────────────

func TestLedgerMutations_Increment(t *testing.T) {
	before := testutil.ToFloat64(LedgerMutations.WithLabelValues("add", "income"))
	LedgerMutations.WithLabelValues("add", "income").Inc()
	after := testutil.ToFloat64(LedgerMutations.WithLabelValues("add", "income"))
	if after-before != 1 {
		t.Errorf("mutations delta = %v, want 1", after-before)
	}
}

func TestSetCelebrating(t *testing.T) {
	SetCelebrating(true)
	if got := testutil.ToFloat64(CelebrationActive); got != 1 {
		t.Errorf("CelebrationActive = %v, want 1", got)
	}
	SetCelebrating(false)
	if got := testutil.ToFloat64(CelebrationActive); got != 0 {
		t.Errorf("CelebrationActive = %v, want 0", got)
	}
}

func TestMetrics_Registered(t *testing.T) {
	// promauto registers on the default registry; collecting must not panic
	// and each vector must expose the labels it is used with.
	QuestTransitions.WithLabelValues("bike-to-school", "complete")
	PersistenceFailures.WithLabelValues("save")
	LedgerRejected.WithLabelValues("invalid_amount")

	if n := testutil.CollectAndCount(QuestTransitions); n < 1 {
		t.Errorf("QuestTransitions series = %d, want >= 1", n)
	}
	if n := testutil.CollectAndCount(PersistenceFailures); n < 1 {
		t.Errorf("PersistenceFailures series = %d, want >= 1", n)
	}
	if n := testutil.CollectAndCount(LedgerRejected); n < 1 {
		t.Errorf("LedgerRejected series = %d, want >= 1", n)
	}
}
