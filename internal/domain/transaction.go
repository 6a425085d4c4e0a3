// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring — ledger, quests and the host all depend on it,
// it depends on nothing.
package domain

import (
	"math"
	"strings"
	"time"
)

// ─── Transaction Types ──────────────────────────────────────────────────────

// TransactionType is the side of a transaction. Amounts are always stored
// positive; the type carries the sign.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType parses "income" / "expense" (case-insensitive).
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidTransactionType
	}
	return t, nil
}

// ─── Tint Palette ───────────────────────────────────────────────────────────

// Tint is a display-only color tag from a fixed palette.
type Tint string

const (
	TintOceanBlue Tint = "OceanBlue"
	TintMint      Tint = "Mint"
	TintSunset    Tint = "Sunset"
	TintLavender  Tint = "Lavender"
	TintRose      Tint = "Rose"
	TintSky       Tint = "Sky"
	TintInk       Tint = "Ink"
)

// Palette lists every tint in display order.
var Palette = []Tint{TintOceanBlue, TintMint, TintSunset, TintLavender, TintRose, TintSky, TintInk}

// ParseTint maps a tint name onto the palette. Unknown names fall back to
// OceanBlue, the same way the mobile app resolves an unknown accent.
func ParseTint(s string) Tint {
	for _, t := range Palette {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t
		}
	}
	return TintOceanBlue
}

// ─── Transaction ────────────────────────────────────────────────────────────

// Transaction is an immutable ledger record.
type Transaction struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Date     time.Time       `json:"date"`
	Amount   float64         `json:"amount"`
	Type     TransactionType `json:"type"`
	Tint     Tint            `json:"tint"`
	QuestID  string          `json:"questId,omitempty"` // set only on quest rewards
}

// SignedAmount returns +Amount for income and -Amount for expense.
func (t Transaction) SignedAmount() float64 {
	if t.Type == Expense {
		return -t.Amount
	}
	return t.Amount
}

// TransactionInput is what callers supply; ID and Date are assigned by the ledger.
type TransactionInput struct {
	Title    string
	Subtitle string
	Amount   float64
	Type     TransactionType
	Tint     Tint
	QuestID  string
}

// MaxAmount is the largest amount a single transaction may carry.
const MaxAmount = 1e9

// ValidAmount reports whether amount is a finite, strictly positive number
// no larger than MaxAmount.
func ValidAmount(amount float64) bool {
	return amount > 0 && amount <= MaxAmount && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}
