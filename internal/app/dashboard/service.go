// Package dashboard is the host-facing facade over the ledger and the quest
// tracker.
//
// The service:
//  1. Hydrates both components and runs the activation sweep
//  2. Serializes every call, since HTTP handlers and timers are concurrent
//  3. Applies manual-entry defaults before transactions reach the ledger
//  4. Hides the celebration after a fixed duration, per completion token
//  5. Builds display snapshots with formatted money, dates and labels
package dashboard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pawbank/allowance/internal/app/engagement"
	"github.com/pawbank/allowance/internal/app/events"
	"github.com/pawbank/allowance/internal/app/ledger"
	"github.com/pawbank/allowance/internal/domain"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config holds the dashboard settings.
type Config struct {
	KidName             string
	Currency            string
	CelebrationDuration time.Duration
	Quests              engagement.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		KidName:             "Jennifer",
		Currency:            "USD",
		CelebrationDuration: 2 * time.Second,
		Quests:              engagement.DefaultConfig(),
	}
}

// Manual-entry defaults.
const (
	ManualIncomeSubtitle  = "Manual Income"
	ManualExpenseSubtitle = "Manual Expense"
)

// Timer is the part of *time.Timer the service needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc in production.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// ─── Service ────────────────────────────────────────────────────────────────

// Service owns one ledger and one quest tracker.
type Service struct {
	mu     sync.Mutex
	cfg    Config
	money  Formatter
	clock  domain.Clock
	log    *zap.Logger
	ledger *ledger.Ledger
	quests *engagement.QuestTracker
	hub    *events.Hub

	after  AfterFunc
	timers map[uint64]Timer
	closed bool
}

// New builds a service over store, hydrates it and runs the activation
// sweep. Persistence failures during hydration are logged and the service
// continues in memory; only invalid configuration is an error.
func New(cfg Config, store domain.KeyValueStore, clock domain.Clock, logger *zap.Logger) (*Service, error) {
	if clock == nil {
		clock = domain.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CelebrationDuration <= 0 {
		cfg.CelebrationDuration = DefaultConfig().CelebrationDuration
	}
	if strings.TrimSpace(cfg.KidName) == "" {
		cfg.KidName = DefaultConfig().KidName
	}
	mf, err := NewFormatter(cfg.Currency)
	if err != nil {
		return nil, err
	}

	hub := events.NewHub()
	l := ledger.New(store, clock, logger)
	tracker, err := engagement.NewQuestTracker(cfg.Quests, l, store, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("quest catalogue: %w", err)
	}

	s := &Service{
		cfg:    cfg,
		money:  mf,
		clock:  clock,
		log:    logger.Named("dashboard"),
		ledger: l,
		quests: tracker,
		hub:    hub,
		after:  systemAfterFunc,
		timers: make(map[uint64]Timer),
	}

	if err := l.Hydrate(); err != nil {
		s.log.Warn("ledger running without persistence", zap.Error(err))
	}
	if err := tracker.Hydrate(); err != nil {
		s.log.Warn("quests running without persistence", zap.Error(err))
	}
	tracker.ResetSweep(clock.Now())

	l.SetSink(hub)
	tracker.SetSink(hub)
	return s, nil
}

// SetAfterFunc replaces the timer factory used for celebration hides.
func (s *Service) SetAfterFunc(f AfterFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == nil {
		f = systemAfterFunc
	}
	s.after = f
}

// Activate runs the reset sweep; hosts call it whenever the app comes to the
// foreground. It returns the quests that were reset.
func (s *Service) Activate() []domain.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quests.ResetSweep(s.clock.Now())
}

// Sweep runs the reset sweep at now.
func (s *Service) Sweep(now time.Time) []domain.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quests.ResetSweep(now)
}

// ─── Ledger Operations ──────────────────────────────────────────────────────

// AddTransaction records a manual transaction. A missing subtitle or tint is
// filled from the transaction type.
func (s *Service) AddTransaction(in domain.TransactionInput) (domain.Transaction, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	if in.Subtitle == "" {
		in.Subtitle = ManualIncomeSubtitle
		if in.Type == domain.Expense {
			in.Subtitle = ManualExpenseSubtitle
		}
	}
	if in.Tint == "" {
		in.Tint = domain.TintMint
		if in.Type == domain.Expense {
			in.Tint = domain.TintSunset
		}
	}
	// Quest rewards are only created by the tracker.
	in.QuestID = ""

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.AddTransaction(in)
}

// RemoveTransaction deletes the transaction with the given id.
func (s *Service) RemoveTransaction(id string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.ledger.RemoveTransaction(strings.ToLower(strings.TrimSpace(id)))
	if !ok {
		return domain.Transaction{}, fmt.Errorf("remove %q: %w", id, domain.ErrTransactionNotFound)
	}
	return tx, nil
}

// ─── Quest Operations ───────────────────────────────────────────────────────

// ToggleQuest toggles a quest by id or title. A completion starts a
// celebration that is hidden again after the configured duration.
func (s *Service) ToggleQuest(ref string) (engagement.ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.quests.Toggle(ref)
	if err != nil {
		return res, err
	}
	if res.Status == domain.QuestCompleted && !s.closed {
		s.scheduleHide(res.Celebration)
	}
	return res, nil
}

// scheduleHide must be called with s.mu held.
func (s *Service) scheduleHide(token uint64) {
	s.timers[token] = s.after(s.cfg.CelebrationDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.timers, token)
		if s.quests.EndCelebration(token) {
			s.log.Debug("celebration hidden", zap.Uint64("token", token))
		}
	})
}

// ─── Views ──────────────────────────────────────────────────────────────────

// TransactionView is a transaction with display text.
type TransactionView struct {
	domain.Transaction
	AmountText string `json:"amount_text"`
	DateText   string `json:"date_text"`
}

// QuestView is a quest state with its reward label.
type QuestView struct {
	domain.QuestState
	RewardText string `json:"reward_text"`
}

// Snapshot is everything the dashboard screen shows.
type Snapshot struct {
	KidName          string            `json:"kid_name"`
	Currency         string            `json:"currency"`
	Balance          float64           `json:"balance"`
	BalanceText      string            `json:"balance_text"`
	Transactions     []TransactionView `json:"transactions"`
	Quests           []QuestView       `json:"quests"`
	CompletedCount   int               `json:"completed_count"`
	TotalQuests      int               `json:"total_quests"`
	StreakDays       int               `json:"streak_days"`
	StreakText       string            `json:"streak_text"`
	Celebrating      bool              `json:"celebrating"`
	CelebrationToken uint64            `json:"celebration_token"`
}

// Snapshot returns the current dashboard state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	celebrating, token := s.quests.Celebration()
	return Snapshot{
		KidName:          s.cfg.KidName,
		Currency:         s.money.Code(),
		Balance:          s.ledger.Balance(),
		BalanceText:      s.money.Amount(s.ledger.BalanceDecimal()),
		Transactions:     s.transactionViews(0),
		Quests:           s.questViews(),
		CompletedCount:   s.quests.CompletedCount(),
		TotalQuests:      s.quests.TotalQuests(),
		StreakDays:       s.quests.StreakDays(),
		StreakText:       StreakText(s.quests.StreakDays()),
		Celebrating:      celebrating,
		CelebrationToken: token,
	}
}

// Transactions returns up to limit transactions, newest first. A limit of
// zero or less returns all of them.
func (s *Service) Transactions(limit int) []TransactionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactionViews(limit)
}

// Quests returns every quest with its status and reward label.
func (s *Service) Quests() []QuestView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questViews()
}

func (s *Service) transactionViews(limit int) []TransactionView {
	txs := s.ledger.Transactions()
	if limit > 0 && limit < len(txs) {
		txs = txs[:limit]
	}
	out := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, s.view(tx))
	}
	return out
}

// View renders tx with its display texts.
func (s *Service) View(tx domain.Transaction) TransactionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(tx)
}

func (s *Service) view(tx domain.Transaction) TransactionView {
	return TransactionView{
		Transaction: tx,
		AmountText:  s.money.Signed(tx),
		DateText:    ShortDate(tx.Date, s.cfg.Quests.Calendar.Location),
	}
}

func (s *Service) questViews() []QuestView {
	states := s.quests.Quests()
	out := make([]QuestView, 0, len(states))
	for _, st := range states {
		out = append(out, QuestView{QuestState: st, RewardText: s.money.Reward(st.Quest)})
	}
	return out
}

// ─── Events ─────────────────────────────────────────────────────────────────

// Subscribe streams JSON-encoded change events until the returned func is
// called or the service closes.
func (s *Service) Subscribe() (<-chan []byte, func()) {
	return s.hub.Subscribe()
}

// Subscribers returns the number of live event subscribers.
func (s *Service) Subscribers() int { return s.hub.ClientCount() }

// Close stops pending celebration timers and disconnects subscribers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for token, t := range s.timers {
		t.Stop()
		delete(s.timers, token)
	}
	s.hub.Close()
}
