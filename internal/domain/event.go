package domain

import "time"

// EventType names a state change the UI layer may react to.
type EventType string

const (
	EventTransactionAdded   EventType = "transaction_added"
	EventTransactionRemoved EventType = "transaction_removed"
	EventQuestCompleted     EventType = "quest_completed"
	EventQuestUncompleted   EventType = "quest_uncompleted"
	EventQuestReset         EventType = "quest_reset"
	EventCelebrationStarted EventType = "celebration_started"
	EventCelebrationEnded   EventType = "celebration_ended"
)

// Event is a single change notification.
type Event struct {
	Type          EventType `json:"type"`
	At            time.Time `json:"at"`
	TransactionID string    `json:"transaction_id,omitempty"`
	QuestID       string    `json:"quest_id,omitempty"`
	Balance       float64   `json:"balance"`
	Token         uint64    `json:"token,omitempty"` // celebration token
}

// NopSink discards events.
type NopSink struct{}

// Publish implements EventSink.
func (NopSink) Publish(Event) {}
