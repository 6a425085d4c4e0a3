// Package engagement tracks recurring quests, their rewards and the
// celebration and streak decoration shown around them.
//
// Each quest is Pending or Completed for its current period:
//
//	Pending   --Toggle-->     Completed   (reward income added to the ledger)
//	Completed --Toggle-->     Pending     (reward removed again)
//	Completed --ResetSweep--> Pending     (period over, reward kept)
//
// The tracker is not safe for concurrent use; hosts serialize access.
package engagement

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pawbank/allowance/internal/domain"
	"github.com/pawbank/allowance/internal/infra/observability"
)

// Store keys.
const (
	KeyCompletedQuests    = "completedQuests"
	KeyCompletionDates    = "questCompletionDates"
	KeyRewardTransactions = "questRewardTransactions"
	KeyCompletedCount     = "savedTodayCompleted"
	KeyStreakDays         = "savedStreak"
)

// RewardSubtitle is the subtitle of every quest reward transaction.
const RewardSubtitle = "Quest completed!"

// RewardLedger is the part of the ledger that quest rewards are mirrored into.
type RewardLedger interface {
	AddTransaction(in domain.TransactionInput) (domain.Transaction, error)
	RemoveTransaction(id string) (domain.Transaction, bool)
	RemoveLatestForQuest(questID, title string) (domain.Transaction, bool)
}

// Config controls the quest tracker.
type Config struct {
	Quests     []domain.Quest
	Calendar   Calendar
	StreakSeed int // streak shown on a fresh install
}

// DefaultConfig returns the shipped quest catalogue.
func DefaultConfig() Config {
	return Config{
		Quests:     domain.DefaultQuests(),
		Calendar:   DefaultCalendar(),
		StreakSeed: 4,
	}
}

// ToggleResult describes what a toggle did.
type ToggleResult struct {
	Quest       domain.Quest       `json:"quest"`
	Status      domain.QuestStatus `json:"status"`
	Transaction domain.Transaction `json:"transaction"` // reward added or removed
	Celebration uint64             `json:"celebration,omitempty"`
}

// QuestTracker owns quest completion state and period resets.
type QuestTracker struct {
	calendar Calendar
	quests   []domain.Quest
	byID     map[string]int

	ledger RewardLedger
	store  domain.KeyValueStore
	clock  domain.Clock
	log    *zap.Logger
	sink   domain.EventSink

	completed  map[string]time.Time // quest id → completion instant (zero if unknown)
	rewards    map[string]string    // quest id → reward transaction id
	streakDays int

	celebrationToken uint64
	celebrating      bool

	// detached is set when stored state could not be read; changes then
	// stay in memory so defaults never overwrite the saved state.
	detached bool
}

// NewQuestTracker validates the catalogue and creates a tracker with every
// quest pending. Call Hydrate, then ResetSweep, before use.
func NewQuestTracker(cfg Config, ledger RewardLedger, store domain.KeyValueStore, clock domain.Clock, logger *zap.Logger) (*QuestTracker, error) {
	if clock == nil {
		clock = domain.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[string]int, len(cfg.Quests))
	quests := make([]domain.Quest, 0, len(cfg.Quests))
	for _, q := range cfg.Quests {
		q.Frequency, _ = domain.ParseFrequency(string(q.Frequency))
		q.Tint = domain.ParseTint(string(q.Tint))
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate quest id %q", q.ID)
		}
		byID[q.ID] = len(quests)
		quests = append(quests, q)
	}
	return &QuestTracker{
		calendar:   cfg.Calendar,
		quests:     quests,
		byID:       byID,
		ledger:     ledger,
		store:      store,
		clock:      clock,
		log:        logger.Named("quests"),
		sink:       domain.NopSink{},
		completed:  make(map[string]time.Time),
		rewards:    make(map[string]string),
		streakDays: cfg.StreakSeed,
	}, nil
}

// SetSink sets the receiver of change events.
func (t *QuestTracker) SetSink(sink domain.EventSink) {
	if sink == nil {
		sink = domain.NopSink{}
	}
	t.sink = sink
}

// ─── Hydrate / Persist ──────────────────────────────────────────────────────

// Hydrate loads completion state and the streak from the store. Completed
// entries are accepted by quest id or by a (legacy) quest title; entries for
// quests no longer configured are dropped. A store failure keeps defaults,
// detaches the tracker from the store until the next successful Hydrate and
// returns an error wrapping ErrPersistenceUnavailable.
func (t *QuestTracker) Hydrate() error {
	var errs []error

	var completed []string
	if err := t.loadJSON(KeyCompletedQuests, &completed); err != nil {
		errs = append(errs, err)
	}
	dates := map[string]time.Time{}
	if err := t.loadJSON(KeyCompletionDates, &dates); err != nil {
		errs = append(errs, err)
	}
	rewards := map[string]string{}
	if err := t.loadJSON(KeyRewardTransactions, &rewards); err != nil {
		errs = append(errs, err)
	}

	t.completed = make(map[string]time.Time)
	t.rewards = make(map[string]string)
	for _, ref := range completed {
		q, ok := t.Resolve(ref)
		if !ok {
			t.log.Warn("dropping completion for unknown quest", zap.String("quest", ref))
			continue
		}
		at := dates[ref]
		if at.IsZero() {
			at = dates[q.ID]
		}
		t.completed[q.ID] = at
		if id := rewards[q.ID]; id != "" {
			t.rewards[q.ID] = id
		}
	}

	if raw, ok, err := t.store.Load(KeyCompletedCount); err == nil && ok {
		if n, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil && n != len(t.completed) {
			t.log.Info("stored completion count drifted, deriving from completed set",
				zap.Int("stored", n), zap.Int("derived", len(t.completed)))
		}
	}

	raw, ok, err := t.store.Load(KeyStreakDays)
	switch {
	case err != nil:
		errs = append(errs, err)
	case ok:
		if n, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil && n >= 0 {
			t.streakDays = n
		}
	}

	observability.QuestsCompleted.Set(float64(len(t.completed)))
	t.detached = false
	if err := errors.Join(errs...); err != nil {
		t.detached = true
		observability.PersistenceFailures.WithLabelValues("load").Inc()
		t.log.Warn("quest state partially unavailable, continuing in memory", zap.Error(err))
		return fmt.Errorf("hydrate quests: %w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

func (t *QuestTracker) loadJSON(key string, v any) error {
	raw, ok, err := t.store.Load(key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		observability.PersistenceFailures.WithLabelValues("decode").Inc()
		t.log.Warn("ignoring unreadable quest state", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Persist writes completion state, the derived count and the streak.
func (t *QuestTracker) Persist() error {
	ids := make([]string, 0, len(t.completed))
	dates := make(map[string]time.Time, len(t.completed))
	for id, at := range t.completed {
		ids = append(ids, id)
		if !at.IsZero() {
			dates[id] = at
		}
	}
	sort.Strings(ids)

	var errs []error
	save := func(key string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", key, err))
			return
		}
		if err := t.store.Save(key, data); err != nil {
			errs = append(errs, err)
		}
	}
	save(KeyCompletedQuests, ids)
	save(KeyCompletionDates, dates)
	save(KeyRewardTransactions, t.rewards)
	save(KeyCompletedCount, len(t.completed))
	save(KeyStreakDays, t.streakDays)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("persist quests: %w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

func (t *QuestTracker) persist() {
	if t.detached {
		t.log.Debug("quest state detached from store, change kept in memory")
		return
	}
	if err := t.Persist(); err != nil {
		observability.PersistenceFailures.WithLabelValues("save").Inc()
		t.log.Warn("quest state not persisted, continuing in memory", zap.Error(err))
	}
}

// ─── Transitions ────────────────────────────────────────────────────────────

// Resolve finds a quest by id, by display title (case-insensitive) or by a
// title an older app build persisted.
func (t *QuestTracker) Resolve(ref string) (domain.Quest, bool) {
	if i, ok := t.byID[ref]; ok {
		return t.quests[i], true
	}
	ref = strings.TrimSpace(ref)
	for _, q := range t.quests {
		if strings.EqualFold(q.Title, ref) {
			return q, true
		}
	}
	if id, ok := domain.LegacyQuestTitles[ref]; ok {
		if i, ok := t.byID[id]; ok {
			return t.quests[i], true
		}
	}
	return domain.Quest{}, false
}

// Toggle completes a pending quest or un-completes a completed one.
func (t *QuestTracker) Toggle(ref string) (ToggleResult, error) {
	q, ok := t.Resolve(ref)
	if !ok {
		return ToggleResult{}, fmt.Errorf("toggle %q: %w", ref, domain.ErrUnknownQuest)
	}
	if _, done := t.completed[q.ID]; done {
		return t.uncomplete(q), nil
	}
	return t.complete(q)
}

func (t *QuestTracker) complete(q domain.Quest) (ToggleResult, error) {
	tx, err := t.ledger.AddTransaction(domain.TransactionInput{
		Title:    q.Title,
		Subtitle: RewardSubtitle,
		Amount:   q.Reward,
		Type:     domain.Income,
		Tint:     q.Tint,
		QuestID:  q.ID,
	})
	if err != nil {
		return ToggleResult{}, fmt.Errorf("reward quest %q: %w", q.ID, err)
	}

	now := t.clock.Now()
	t.completed[q.ID] = now
	t.rewards[q.ID] = tx.ID
	t.celebrationToken++
	t.celebrating = true
	t.persist()

	observability.QuestTransitions.WithLabelValues(q.ID, "complete").Inc()
	observability.QuestsCompleted.Set(float64(len(t.completed)))
	observability.Celebrations.Inc()
	observability.SetCelebrating(true)
	t.publish(domain.EventQuestCompleted, q.ID, tx.ID, now)
	t.sink.Publish(domain.Event{Type: domain.EventCelebrationStarted, At: now, QuestID: q.ID, Token: t.celebrationToken})
	t.log.Info("quest completed",
		zap.String("quest", q.ID),
		zap.Float64("reward", q.Reward),
		zap.String("transaction", tx.ID))

	return ToggleResult{Quest: q, Status: domain.QuestCompleted, Transaction: tx, Celebration: t.celebrationToken}, nil
}

func (t *QuestTracker) uncomplete(q domain.Quest) ToggleResult {
	rewardID := t.rewards[q.ID]
	delete(t.completed, q.ID)
	delete(t.rewards, q.ID)

	var (
		tx      domain.Transaction
		removed bool
	)
	if rewardID != "" {
		// A missing reward was removed by hand; older rewards for this
		// quest belong to earlier periods and stay.
		tx, removed = t.ledger.RemoveTransaction(rewardID)
	} else {
		tx, removed = t.ledger.RemoveLatestForQuest(q.ID, q.Title)
	}
	if !removed {
		t.log.Warn("no reward transaction to reverse", zap.String("quest", q.ID))
	}
	t.persist()

	now := t.clock.Now()
	observability.QuestTransitions.WithLabelValues(q.ID, "uncomplete").Inc()
	observability.QuestsCompleted.Set(float64(len(t.completed)))
	t.publish(domain.EventQuestUncompleted, q.ID, tx.ID, now)
	t.log.Info("quest uncompleted", zap.String("quest", q.ID), zap.Bool("reward_reversed", removed))

	return ToggleResult{Quest: q, Status: domain.QuestPending, Transaction: tx}
}

// ResetSweep returns every completed quest whose period has elapsed at now
// to Pending. Rewards are kept. Completions without a recorded date count as
// elapsed. The state is persisted after every sweep; a second sweep in the
// same period changes nothing.
func (t *QuestTracker) ResetSweep(now time.Time) []domain.Quest {
	var reset []domain.Quest
	for _, q := range t.quests {
		at, done := t.completed[q.ID]
		if !done {
			continue
		}
		if !at.IsZero() && !t.calendar.Elapsed(q.Frequency, at, now) {
			continue
		}
		delete(t.completed, q.ID)
		delete(t.rewards, q.ID)
		reset = append(reset, q)

		observability.QuestTransitions.WithLabelValues(q.ID, "reset").Inc()
		t.publish(domain.EventQuestReset, q.ID, "", now)
	}
	t.persist()
	observability.QuestsCompleted.Set(float64(len(t.completed)))
	if len(reset) > 0 {
		t.log.Info("quests reset for new period", zap.Int("count", len(reset)))
	}
	return reset
}

// ─── Celebration ────────────────────────────────────────────────────────────

// Celebration reports whether a celebration is requested and its token.
func (t *QuestTracker) Celebration() (active bool, token uint64) {
	return t.celebrating, t.celebrationToken
}

// EndCelebration clears the celebration if token is the newest one. Stale
// tokens from earlier completions are ignored.
func (t *QuestTracker) EndCelebration(token uint64) bool {
	if !t.celebrating || token != t.celebrationToken {
		return false
	}
	t.celebrating = false
	observability.SetCelebrating(false)
	t.sink.Publish(domain.Event{Type: domain.EventCelebrationEnded, At: t.clock.Now(), Token: token})
	return true
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Quests returns every quest with its current status, in catalogue order.
func (t *QuestTracker) Quests() []domain.QuestState {
	out := make([]domain.QuestState, 0, len(t.quests))
	for _, q := range t.quests {
		st := domain.QuestState{Quest: q, Status: domain.QuestPending}
		if at, done := t.completed[q.ID]; done {
			st.Status = domain.QuestCompleted
			if !at.IsZero() {
				at := at
				st.CompletedAt = &at
			}
		}
		out = append(out, st)
	}
	return out
}

// IsCompleted reports whether the quest with the given id is completed.
func (t *QuestTracker) IsCompleted(id string) bool {
	_, done := t.completed[id]
	return done
}

// CompletedIDs returns the ids of completed quests, sorted.
func (t *QuestTracker) CompletedIDs() []string {
	ids := make([]string, 0, len(t.completed))
	for id := range t.completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CompletedCount is the number of quests completed for their current
// period. It is always derived from the completed set.
func (t *QuestTracker) CompletedCount() int { return len(t.completed) }

// TotalQuests is the number of configured quests.
func (t *QuestTracker) TotalQuests() int { return len(t.quests) }

// StreakDays returns the informational streak counter.
func (t *QuestTracker) StreakDays() int { return t.streakDays }

func (t *QuestTracker) publish(typ domain.EventType, questID, txID string, at time.Time) {
	t.sink.Publish(domain.Event{Type: typ, At: at, QuestID: questID, TransactionID: txID})
}
