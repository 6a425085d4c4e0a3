// Package ledger keeps the ordered transaction log and its running balance.
//
// The ledger:
//  1. Hydrates from the key-value store, or seeds the sample history on first run
//  2. Prepends new transactions (newest first) and updates the balance in place
//  3. Removes transactions by id, reversing their balance effect exactly
//  4. Persists both the list and the balance after every mutation (best effort)
//
// The balance is an exact decimal, so the incrementally maintained value and
// a full recompute over the list always agree.
//
// A Ledger is not safe for concurrent use; hosts serialize access.
package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pawbank/allowance/internal/domain"
	"github.com/pawbank/allowance/internal/infra/observability"
)

// Store keys.
const (
	KeyTransactions = "savedTransactions"
	KeyBalance      = "savedBalance"
)

// Ledger is the transaction log plus derived running balance.
type Ledger struct {
	store domain.KeyValueStore
	clock domain.Clock
	log   *zap.Logger
	sink  domain.EventSink
	newID func() string

	transactions []domain.Transaction
	balance      decimal.Decimal

	// detached is set when the store could not be read. Mutations stay in
	// memory so the stored history is never replaced by the sample set.
	detached bool
}

// New creates an empty ledger. Call Hydrate before use.
func New(store domain.KeyValueStore, clock domain.Clock, logger *zap.Logger) *Ledger {
	if clock == nil {
		clock = domain.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:        store,
		clock:        clock,
		log:          logger.Named("ledger"),
		sink:         domain.NopSink{},
		newID:        uuid.NewString,
		transactions: []domain.Transaction{},
	}
}

// SetSink sets the receiver of change events.
func (l *Ledger) SetSink(sink domain.EventSink) {
	if sink == nil {
		sink = domain.NopSink{}
	}
	l.sink = sink
}

// ─── Hydrate / Persist ──────────────────────────────────────────────────────

// Hydrate loads state from the store. With no stored transactions it seeds
// the sample history and persists it. A store failure leaves the ledger
// usable in memory, detached from the store until the next successful
// Hydrate, and returns an error wrapping ErrPersistenceUnavailable.
func (l *Ledger) Hydrate() error {
	data, ok, err := l.store.Load(KeyTransactions)
	if err != nil {
		observability.PersistenceFailures.WithLabelValues("load").Inc()
		l.log.Warn("transactions unavailable, using sample history in memory", zap.Error(err))
		l.seed()
		l.detached = true
		return fmt.Errorf("hydrate ledger: %w: %v", domain.ErrPersistenceUnavailable, err)
	}
	l.detached = false
	if !ok {
		l.seed()
		l.log.Info("seeded sample history",
			zap.Int("transactions", len(l.transactions)),
			zap.String("balance", l.balance.String()))
		l.persist()
		return nil
	}

	txs, skipped, err := DecodeTransactions(data)
	if err != nil {
		observability.PersistenceFailures.WithLabelValues("decode").Inc()
		l.log.Error("stored transactions are corrupt, starting empty", zap.Error(err))
		l.reset(nil)
		return fmt.Errorf("hydrate ledger: %w: %v", domain.ErrPersistenceUnavailable, err)
	}
	if skipped > 0 {
		l.log.Warn("skipped invalid stored transactions", zap.Int("skipped", skipped))
	}
	l.reset(txs)
	l.reconcileStoredBalance()
	return nil
}

// reconcileStoredBalance compares the stored balance with the recomputed one.
// The recomputed value always wins.
func (l *Ledger) reconcileStoredBalance() {
	data, ok, err := l.store.Load(KeyBalance)
	if err != nil || !ok {
		return
	}
	stored, err := DecodeBalance(data)
	if err != nil {
		l.log.Warn("stored balance unreadable", zap.Error(err))
		return
	}
	if !stored.Equal(l.balance) {
		l.log.Warn("stored balance disagrees with transactions, using recomputed value",
			zap.String("stored", stored.String()),
			zap.String("recomputed", l.balance.String()))
	}
}

func (l *Ledger) seed() {
	l.reset(SeedTransactions(l.clock.Now(), l.newID))
}

func (l *Ledger) reset(txs []domain.Transaction) {
	if txs == nil {
		txs = []domain.Transaction{}
	}
	l.transactions = txs
	l.balance = sum(txs)
	l.updateGauges()
}

// Persist writes the transaction list and balance to the store.
func (l *Ledger) Persist() error {
	data, err := EncodeTransactions(l.transactions)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	var errs []error
	if err := l.store.Save(KeyTransactions, data); err != nil {
		errs = append(errs, err)
	}
	if err := l.store.Save(KeyBalance, EncodeBalance(l.balance)); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("persist ledger: %w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Detached reports whether the last Hydrate failed to read the store.
func (l *Ledger) Detached() bool { return l.detached }

// persist is the best-effort variant used after mutations. A detached
// ledger does not write.
func (l *Ledger) persist() {
	if l.detached {
		l.log.Debug("ledger detached from store, change kept in memory")
		return
	}
	if err := l.Persist(); err != nil {
		observability.PersistenceFailures.WithLabelValues("save").Inc()
		l.log.Warn("ledger not persisted, continuing in memory", zap.Error(err))
	}
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// AddTransaction records a new transaction at the front of the list.
func (l *Ledger) AddTransaction(in domain.TransactionInput) (domain.Transaction, error) {
	if !domain.ValidAmount(in.Amount) {
		observability.LedgerRejected.WithLabelValues("invalid_amount").Inc()
		return domain.Transaction{}, fmt.Errorf("add transaction %q (amount %v): %w", in.Title, in.Amount, domain.ErrInvalidAmount)
	}
	if !in.Type.Valid() {
		observability.LedgerRejected.WithLabelValues("invalid_type").Inc()
		return domain.Transaction{}, fmt.Errorf("add transaction %q (type %q): %w", in.Title, in.Type, domain.ErrInvalidTransactionType)
	}

	tx := domain.Transaction{
		ID:       l.newID(),
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Date:     l.clock.Now(),
		Amount:   in.Amount,
		Type:     in.Type,
		Tint:     domain.ParseTint(string(in.Tint)),
		QuestID:  in.QuestID,
	}

	txs := make([]domain.Transaction, 0, len(l.transactions)+1)
	txs = append(txs, tx)
	l.transactions = append(txs, l.transactions...)
	l.balance = l.balance.Add(signed(tx))
	l.persist()

	observability.LedgerMutations.WithLabelValues("add", string(tx.Type)).Inc()
	l.updateGauges()
	l.publish(domain.EventTransactionAdded, tx)
	l.log.Debug("transaction added",
		zap.String("id", tx.ID),
		zap.String("title", tx.Title),
		zap.String("type", string(tx.Type)),
		zap.Float64("amount", tx.Amount))
	return tx, nil
}

// RemoveTransaction removes the transaction with the given id and reverses
// its effect on the balance. ok is false when no such transaction exists.
func (l *Ledger) RemoveTransaction(id string) (tx domain.Transaction, ok bool) {
	for i := range l.transactions {
		if l.transactions[i].ID == id {
			return l.removeAt(i), true
		}
	}
	return domain.Transaction{}, false
}

// RemoveLatestForQuest removes the newest reward recorded for questID.
// Records written before rewards carried a quest id are matched by title.
func (l *Ledger) RemoveLatestForQuest(questID, title string) (domain.Transaction, bool) {
	for i, tx := range l.transactions {
		if questID != "" && tx.QuestID == questID {
			return l.removeAt(i), true
		}
	}
	for i, tx := range l.transactions {
		if tx.QuestID == "" && tx.Type == domain.Income && title != "" && tx.Title == title {
			return l.removeAt(i), true
		}
	}
	return domain.Transaction{}, false
}

func (l *Ledger) removeAt(i int) domain.Transaction {
	tx := l.transactions[i]
	txs := make([]domain.Transaction, 0, len(l.transactions)-1)
	txs = append(txs, l.transactions[:i]...)
	l.transactions = append(txs, l.transactions[i+1:]...)
	l.balance = l.balance.Sub(signed(tx))
	l.persist()

	observability.LedgerMutations.WithLabelValues("remove", string(tx.Type)).Inc()
	l.updateGauges()
	l.publish(domain.EventTransactionRemoved, tx)
	l.log.Debug("transaction removed", zap.String("id", tx.ID), zap.String("title", tx.Title))
	return tx
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Balance returns the running balance.
func (l *Ledger) Balance() float64 { return l.balance.InexactFloat64() }

// BalanceDecimal returns the exact running balance.
func (l *Ledger) BalanceDecimal() decimal.Decimal { return l.balance }

// RecomputeBalance sums the signed amounts of all transactions.
func (l *Ledger) RecomputeBalance() decimal.Decimal { return sum(l.transactions) }

// Transactions returns a copy of the list, newest first.
func (l *Ledger) Transactions() []domain.Transaction {
	out := make([]domain.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.transactions) }

// Get returns the transaction with the given id.
func (l *Ledger) Get(id string) (domain.Transaction, bool) {
	for _, tx := range l.transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return domain.Transaction{}, false
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func signed(tx domain.Transaction) decimal.Decimal {
	return decimal.NewFromFloat(tx.SignedAmount())
}

func sum(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(signed(tx))
	}
	return total
}

func (l *Ledger) updateGauges() {
	observability.LedgerBalance.Set(l.balance.InexactFloat64())
	observability.LedgerTransactions.Set(float64(len(l.transactions)))
}

func (l *Ledger) publish(typ domain.EventType, tx domain.Transaction) {
	l.sink.Publish(domain.Event{
		Type:          typ,
		At:            l.clock.Now(),
		TransactionID: tx.ID,
		QuestID:       tx.QuestID,
		Balance:       l.balance.InexactFloat64(),
	})
}
