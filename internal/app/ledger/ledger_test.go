package ledger

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pawbank/allowance/internal/domain"
	"github.com/pawbank/allowance/internal/infra/memkv"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type recordSink struct{ events []domain.Event }

func (s *recordSink) Publish(e domain.Event) { s.events = append(s.events, e) }

func newTestLedger(t *testing.T, store domain.KeyValueStore) (*Ledger, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)}
	l := New(store, clock, zaptest.NewLogger(t))
	n := 0
	l.newID = func() string {
		n++
		return fmt.Sprintf("tx-%03d", n)
	}
	return l, clock
}

func hydrated(t *testing.T) (*Ledger, *memkv.Store) {
	t.Helper()
	store := memkv.New()
	l, _ := newTestLedger(t, store)
	if err := l.Hydrate(); err != nil {
		t.Fatalf("Hydrate() error: %v", err)
	}
	return l, store
}

func assertBalanceInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	if !l.BalanceDecimal().Equal(l.RecomputeBalance()) {
		t.Fatalf("balance %s != recomputed %s", l.BalanceDecimal(), l.RecomputeBalance())
	}
}

// ─── Seed ───────────────────────────────────────────────────────────────────

func TestHydrate_FreshStoreSeedsSampleHistory(t *testing.T) {
	l, store := hydrated(t)

	if l.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", l.Len())
	}
	if l.Balance() != SeedBalance {
		t.Errorf("Balance() = %v, want %v", l.Balance(), SeedBalance)
	}
	assertBalanceInvariant(t, l)

	titles := []string{}
	for _, tx := range l.Transactions() {
		titles = append(titles, tx.Title)
	}
	want := []string{"Weekly Homework A", "Ride Bike to School", "New Story Book", "Puzzle Toy", "Piggy bank savings"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("seed titles mismatch (-want +got):\n%s", diff)
	}

	// Seed is persisted right away.
	if _, ok, _ := store.Load(KeyTransactions); !ok {
		t.Error("seed transactions not persisted")
	}
	raw, ok, _ := store.Load(KeyBalance)
	if !ok || string(raw) != "87" {
		t.Errorf("stored balance = %q, want 87", raw)
	}
}

func TestSeedTransactions_SumToSeedBalance(t *testing.T) {
	txs := SeedTransactions(time.Now(), func() string { return "x" })
	if got := sum(txs); !got.Equal(decimal.NewFromInt(SeedBalance)) {
		t.Errorf("sum(seed) = %s, want %d", got, SeedBalance)
	}
	for i := 1; i < len(txs); i++ {
		if txs[i].Date.After(txs[i-1].Date) {
			t.Errorf("seed not newest-first at %d", i)
		}
	}
}

// ─── AddTransaction ─────────────────────────────────────────────────────────

func TestAddTransaction_PrependsAndUpdatesBalance(t *testing.T) {
	l, _ := hydrated(t)
	sink := &recordSink{}
	l.SetSink(sink)

	tx, err := l.AddTransaction(domain.TransactionInput{
		Title: "Comic Book", Subtitle: "Friendly fun", Amount: 9, Type: domain.Expense, Tint: domain.TintLavender,
	})
	if err != nil {
		t.Fatalf("AddTransaction() error: %v", err)
	}
	if tx.ID == "" || tx.Date.IsZero() {
		t.Errorf("transaction missing id/date: %+v", tx)
	}
	if got := l.Transactions()[0]; got.ID != tx.ID {
		t.Errorf("front transaction = %q, want %q", got.ID, tx.ID)
	}
	if l.Balance() != 78 {
		t.Errorf("Balance() = %v, want 78", l.Balance())
	}
	assertBalanceInvariant(t, l)

	if len(sink.events) != 1 || sink.events[0].Type != domain.EventTransactionAdded {
		t.Fatalf("events = %+v, want one transaction_added", sink.events)
	}
	if sink.events[0].Balance != 78 {
		t.Errorf("event balance = %v, want 78", sink.events[0].Balance)
	}
}

func TestAddTransaction_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   domain.TransactionInput
		want error
	}{
		{"zero", domain.TransactionInput{Title: "x", Amount: 0, Type: domain.Income}, domain.ErrInvalidAmount},
		{"negative", domain.TransactionInput{Title: "x", Amount: -4, Type: domain.Expense}, domain.ErrInvalidAmount},
		{"nan", domain.TransactionInput{Title: "x", Amount: math.NaN(), Type: domain.Income}, domain.ErrInvalidAmount},
		{"inf", domain.TransactionInput{Title: "x", Amount: math.Inf(1), Type: domain.Income}, domain.ErrInvalidAmount},
		{"type", domain.TransactionInput{Title: "x", Amount: 1, Type: "gift"}, domain.ErrInvalidTransactionType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := hydrated(t)
			before := l.Transactions()
			_, err := l.AddTransaction(tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if diff := cmp.Diff(before, l.Transactions()); diff != "" {
				t.Errorf("rejected input changed transactions:\n%s", diff)
			}
			if l.Balance() != SeedBalance {
				t.Errorf("Balance() = %v, want %v", l.Balance(), SeedBalance)
			}
		})
	}
}

func TestAddTransaction_EmptyTitleAllowed(t *testing.T) {
	l, _ := hydrated(t)
	if _, err := l.AddTransaction(domain.TransactionInput{Amount: 1, Type: domain.Income}); err != nil {
		t.Errorf("empty title rejected: %v", err)
	}
}

func TestBalanceInvariant_RandomSequences(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	l, _ := hydrated(t)

	var ids []string
	for i := 0; i < 500; i++ {
		if len(ids) > 0 && r.Intn(4) == 0 {
			k := r.Intn(len(ids))
			if _, ok := l.RemoveTransaction(ids[k]); !ok {
				t.Fatalf("step %d: remove %s failed", i, ids[k])
			}
			ids = append(ids[:k], ids[k+1:]...)
		} else {
			typ := domain.Income
			if r.Intn(2) == 0 {
				typ = domain.Expense
			}
			amount := float64(r.Intn(10000)+1) / 100 // 0.01 .. 100.00
			tx, err := l.AddTransaction(domain.TransactionInput{Title: "t", Amount: amount, Type: typ})
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			ids = append(ids, tx.ID)
		}
		assertBalanceInvariant(t, l)
	}
}

// ─── RemoveTransaction ──────────────────────────────────────────────────────

func TestRemoveTransaction_RoundTrip(t *testing.T) {
	l, _ := hydrated(t)
	before := l.Transactions()
	beforeBalance := l.BalanceDecimal()

	for _, typ := range []domain.TransactionType{domain.Income, domain.Expense} {
		tx, err := l.AddTransaction(domain.TransactionInput{Title: "Lemonade", Amount: 3.1, Type: typ})
		if err != nil {
			t.Fatal(err)
		}
		removed, ok := l.RemoveTransaction(tx.ID)
		if !ok {
			t.Fatalf("RemoveTransaction(%s) not found", tx.ID)
		}
		if diff := cmp.Diff(tx, removed); diff != "" {
			t.Errorf("removed record mismatch:\n%s", diff)
		}
		if diff := cmp.Diff(before, l.Transactions()); diff != "" {
			t.Errorf("%s: list not restored (-want +got):\n%s", typ, diff)
		}
		if !l.BalanceDecimal().Equal(beforeBalance) {
			t.Errorf("%s: balance = %s, want %s", typ, l.BalanceDecimal(), beforeBalance)
		}
	}
}

func TestRemoveTransaction_MiddleKeepsOrder(t *testing.T) {
	l, _ := hydrated(t)
	txs := l.Transactions()
	if _, ok := l.RemoveTransaction(txs[2].ID); !ok {
		t.Fatal("remove middle failed")
	}
	want := []domain.Transaction{txs[0], txs[1], txs[3], txs[4]}
	if diff := cmp.Diff(want, l.Transactions()); diff != "" {
		t.Errorf("order mismatch:\n%s", diff)
	}
	// Removing the 12 expense raises the balance.
	if l.Balance() != SeedBalance+12 {
		t.Errorf("Balance() = %v, want %v", l.Balance(), SeedBalance+12)
	}
}

func TestRemoveTransaction_NotFound(t *testing.T) {
	l, store := hydrated(t)
	saves := store.Saves()
	if _, ok := l.RemoveTransaction("nope"); ok {
		t.Error("ok = true for unknown id")
	}
	if store.Saves() != saves {
		t.Error("not-found removal should not persist")
	}
}

func TestRemoveLatestForQuest(t *testing.T) {
	l, _ := hydrated(t)
	older, _ := l.AddTransaction(domain.TransactionInput{Title: "Bike to school", Amount: 5, Type: domain.Income, QuestID: "bike-to-school"})
	newer, _ := l.AddTransaction(domain.TransactionInput{Title: "Bike to school", Amount: 5, Type: domain.Income, QuestID: "bike-to-school"})

	got, ok := l.RemoveLatestForQuest("bike-to-school", "Bike to school")
	if !ok || got.ID != newer.ID {
		t.Fatalf("removed %q, want newest %q", got.ID, newer.ID)
	}
	if _, ok := l.Get(older.ID); !ok {
		t.Error("older reward should remain")
	}
}

func TestRemoveLatestForQuest_LegacyTitleFallback(t *testing.T) {
	l, _ := hydrated(t)
	legacy, _ := l.AddTransaction(domain.TransactionInput{Title: "Bike to school", Amount: 5, Type: domain.Income})
	// An expense with the same title is never a reward.
	l.AddTransaction(domain.TransactionInput{Title: "Bike to school", Amount: 1, Type: domain.Expense})

	got, ok := l.RemoveLatestForQuest("bike-to-school", "Bike to school")
	if !ok || got.ID != legacy.ID {
		t.Fatalf("removed %+v, want legacy reward %q", got, legacy.ID)
	}
	if _, ok := l.RemoveLatestForQuest("bike-to-school", "Bike to school"); ok {
		t.Error("second removal should find nothing")
	}
}

// ─── Persistence ────────────────────────────────────────────────────────────

func TestHydrate_RestoresPersistedState(t *testing.T) {
	l, store := hydrated(t)
	tx, _ := l.AddTransaction(domain.TransactionInput{Title: "Allowance", Subtitle: "Manual Income", Amount: 10.5, Type: domain.Income, Tint: domain.TintMint})

	l2, _ := newTestLedger(t, store)
	if err := l2.Hydrate(); err != nil {
		t.Fatalf("Hydrate() error: %v", err)
	}
	if diff := cmp.Diff(l.Transactions(), l2.Transactions()); diff != "" {
		t.Errorf("transactions mismatch after reload:\n%s", diff)
	}
	if !l2.BalanceDecimal().Equal(l.BalanceDecimal()) {
		t.Errorf("balance = %s, want %s", l2.BalanceDecimal(), l.BalanceDecimal())
	}
	if got, _ := l2.Get(tx.ID); got.Tint != domain.TintMint {
		t.Errorf("tint = %q, want Mint", got.Tint)
	}
}

func TestHydrate_StoredBalanceMismatchUsesRecompute(t *testing.T) {
	store := memkv.New()
	store.Save(KeyTransactions, []byte(`[{"id":"a","title":"Gift","subtitle":"","date":"2026-01-01T00:00:00Z","amount":20,"type":"income","tint":"Mint"}]`))
	store.Save(KeyBalance, []byte("0"))

	core, logs := observer.New(zap.WarnLevel)
	l := New(store, nil, zap.New(core))
	if err := l.Hydrate(); err != nil {
		t.Fatal(err)
	}
	if l.Balance() != 20 {
		t.Errorf("Balance() = %v, want 20", l.Balance())
	}
	if logs.FilterMessageSnippet("disagrees").Len() != 1 {
		t.Errorf("expected a balance mismatch warning, got %v", logs.All())
	}
}

func TestHydrate_LoadFailureFallsBackToMemory(t *testing.T) {
	store := memkv.New()
	store.FailLoad = errors.New("keychain locked")
	l, _ := newTestLedger(t, store)

	err := l.Hydrate()
	if !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("Hydrate() error = %v, want ErrPersistenceUnavailable", err)
	}
	if l.Balance() != SeedBalance {
		t.Errorf("Balance() = %v, want seeded %v", l.Balance(), SeedBalance)
	}
	if _, err := l.AddTransaction(domain.TransactionInput{Title: "x", Amount: 1, Type: domain.Income}); err != nil {
		t.Errorf("ledger should keep working in memory: %v", err)
	}
}

func TestHydrate_TransientLoadFailureKeepsStoredHistory(t *testing.T) {
	l, store := hydrated(t)
	for i := 0; i < 3; i++ {
		l.AddTransaction(domain.TransactionInput{Title: "Chores", Amount: 1, Type: domain.Income})
	}
	saved, _, _ := store.Load(KeyTransactions)

	store.FailLoad = errors.New("keychain locked")
	l2, _ := newTestLedger(t, store)
	if err := l2.Hydrate(); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if !l2.Detached() {
		t.Fatal("ledger should be detached after a load failure")
	}
	store.FailLoad = nil
	l2.AddTransaction(domain.TransactionInput{Title: "Lemonade", Amount: 2, Type: domain.Income})
	l2.RemoveTransaction(l2.Transactions()[1].ID)

	after, _, _ := store.Load(KeyTransactions)
	if string(after) != string(saved) {
		t.Errorf("stored history overwritten after transient failure:\n%s", after)
	}

	l3, _ := newTestLedger(t, store)
	if err := l3.Hydrate(); err != nil {
		t.Fatal(err)
	}
	if l3.Detached() || l3.Len() != 8 || !l3.BalanceDecimal().Equal(l.BalanceDecimal()) {
		t.Errorf("rehydrated Len()=%d Balance()=%s, want 8 and %s", l3.Len(), l3.BalanceDecimal(), l.BalanceDecimal())
	}
}

func TestMutation_SaveFailureIsLoggedNotReturned(t *testing.T) {
	store := memkv.New()
	core, logs := observer.New(zap.WarnLevel)
	l := New(store, nil, zap.New(core))
	l.Hydrate()

	store.FailSave = errors.New("disk full")
	if _, err := l.AddTransaction(domain.TransactionInput{Title: "x", Amount: 2, Type: domain.Income}); err != nil {
		t.Fatalf("AddTransaction() error = %v, want nil (best effort)", err)
	}
	if l.Balance() != SeedBalance+2 {
		t.Errorf("Balance() = %v, want %v", l.Balance(), SeedBalance+2)
	}
	if logs.FilterMessageSnippet("not persisted").Len() == 0 {
		t.Error("expected persistence warning")
	}
	if err := l.Persist(); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Errorf("Persist() error = %v, want ErrPersistenceUnavailable", err)
	}
}

func TestHydrate_CorruptDataStartsEmpty(t *testing.T) {
	store := memkv.New()
	store.Save(KeyTransactions, []byte("{not json"))
	l, _ := newTestLedger(t, store)

	if err := l.Hydrate(); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if l.Len() != 0 || l.Balance() != 0 {
		t.Errorf("Len()=%d Balance()=%v, want empty", l.Len(), l.Balance())
	}
}

func TestHydrate_EmptyListIsNotReseeded(t *testing.T) {
	store := memkv.New()
	store.Save(KeyTransactions, []byte("[]"))
	l, _ := newTestLedger(t, store)
	if err := l.Hydrate(); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (user cleared history)", l.Len())
	}
}
