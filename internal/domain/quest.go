package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Quest Types ────────────────────────────────────────────────────────────
// A quest is a recurring chore that pays a fixed reward once per period.
// Quests are static configuration; only their completion state is persisted.

// Frequency is the reset period of a quest.
type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// ParseFrequency accepts "daily"/"weekly" in any case ("Daily" is what the
// mobile app persisted).
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Daily, Weekly:
		return f, nil
	}
	return "", fmt.Errorf("invalid quest frequency %q", s)
}

// Unit is the period word used in reward labels ("day", "week").
func (f Frequency) Unit() string {
	if f == Weekly {
		return "week"
	}
	return "day"
}

// Quest is a chore definition. ID correlates completion state and reward
// transactions; Title is for display only and may be renamed freely.
type Quest struct {
	ID        string    `json:"id" toml:"id"`
	Title     string    `json:"title" toml:"title"`
	Reward    float64   `json:"reward" toml:"reward"`
	Tint      Tint      `json:"tint" toml:"tint"`
	Frequency Frequency `json:"frequency" toml:"frequency"`
}

// Validate checks a quest definition.
func (q Quest) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("quest %q: id is required", q.Title)
	}
	if !ValidAmount(q.Reward) {
		return fmt.Errorf("quest %q: %w", q.ID, ErrInvalidAmount)
	}
	if _, err := ParseFrequency(string(q.Frequency)); err != nil {
		return fmt.Errorf("quest %q: %w", q.ID, err)
	}
	return nil
}

// QuestStatus is the per-period state of a quest.
type QuestStatus string

const (
	QuestPending   QuestStatus = "pending"
	QuestCompleted QuestStatus = "completed"
)

// QuestState is a read-only view of one quest for the host.
type QuestState struct {
	Quest
	Status      QuestStatus `json:"status"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Completed reports whether the quest is done for its current period.
func (s QuestState) Completed() bool { return s.Status == QuestCompleted }

// DefaultQuests is the canonical quest catalogue shipped with the app.
func DefaultQuests() []Quest {
	return []Quest{
		{ID: "bike-to-school", Title: "Bike to school", Reward: 5, Tint: TintOceanBlue, Frequency: Daily},
		{ID: "all-a-homework", Title: "All-A homework", Reward: 5, Tint: TintMint, Frequency: Weekly},
	}
}

// LegacyQuestTitles maps titles persisted by older app builds to quest IDs.
// "All homework A" is the label one build wrote for the homework quest.
var LegacyQuestTitles = map[string]string{
	"Bike to school": "bike-to-school",
	"All-A homework": "all-a-homework",
	"All homework A": "all-a-homework",
}
