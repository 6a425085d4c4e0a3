package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pawbank/allowance/internal/domain"
)

// ─── Persistence Codec ──────────────────────────────────────────────────────
// Transactions are stored as a JSON array with a fixed field order, dates as
// RFC 3339 and amounts as plain doubles. Records written by the mobile app
// (dates as seconds since 2001-01-01, accent under "tintName") still decode.

// appleEpoch is the reference date of the mobile app's default date encoding.
var appleEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

type wireTransaction struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Date     json.RawMessage `json:"date"`
	Amount   float64         `json:"amount"`
	Type     string          `json:"type"`
	Tint     string          `json:"tint,omitempty"`
	TintName string          `json:"tintName,omitempty"`
	QuestID  string          `json:"questId,omitempty"`
}

// EncodeTransactions serializes transactions in list order.
func EncodeTransactions(txs []domain.Transaction) ([]byte, error) {
	out := make([]wireTransaction, 0, len(txs))
	for _, tx := range txs {
		date, err := json.Marshal(tx.Date.Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		out = append(out, wireTransaction{
			ID:       tx.ID,
			Title:    tx.Title,
			Subtitle: tx.Subtitle,
			Date:     date,
			Amount:   tx.Amount,
			Type:     string(tx.Type),
			Tint:     string(tx.Tint),
			QuestID:  tx.QuestID,
		})
	}
	return json.Marshal(out)
}

// DecodeTransactions parses a stored transaction list. Records that break
// the ledger invariants (non-positive amount, unknown type, bad date) are
// skipped and counted rather than failing the whole list.
func DecodeTransactions(data []byte) (txs []domain.Transaction, skipped int, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []domain.Transaction{}, 0, nil
	}
	var wire []wireTransaction
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, 0, fmt.Errorf("parse transactions: %w", err)
	}

	txs = make([]domain.Transaction, 0, len(wire))
	for _, w := range wire {
		typ, err := domain.ParseTransactionType(w.Type)
		if err != nil || !domain.ValidAmount(w.Amount) || w.ID == "" {
			skipped++
			continue
		}
		date, err := decodeDate(w.Date)
		if err != nil {
			skipped++
			continue
		}
		tint := w.Tint
		if tint == "" {
			tint = w.TintName
		}
		txs = append(txs, domain.Transaction{
			ID:       strings.ToLower(w.ID),
			Title:    w.Title,
			Subtitle: w.Subtitle,
			Date:     date,
			Amount:   w.Amount,
			Type:     typ,
			Tint:     domain.ParseTint(tint),
			QuestID:  w.QuestID,
		})
	}
	return txs, skipped, nil
}

func decodeDate(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("missing date")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return appleEpoch.Add(time.Duration(secs * float64(time.Second))), nil
}

// EncodeBalance serializes a balance as its exact decimal string.
func EncodeBalance(b decimal.Decimal) []byte {
	return []byte(b.String())
}

// DecodeBalance parses a stored balance.
func DecodeBalance(data []byte) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(string(data)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance: %w", err)
	}
	return d, nil
}
