package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/pawbank/allowance/internal/domain"
)

// ShortDateLayout renders transaction dates as "Jan 2".
const ShortDateLayout = "Jan 2"

// Formatter renders amounts in one currency. Whole amounts drop the minor
// units ("$87"); fractional ones keep them ("$2.50").
type Formatter struct {
	cur money.Currency
}

// NewFormatter returns a formatter for an ISO 4217 currency code.
func NewFormatter(code string) (Formatter, error) {
	cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code)))
	if cur == nil {
		return Formatter{}, fmt.Errorf("unknown currency %q", code)
	}
	return Formatter{cur: *cur}, nil
}

// Code returns the currency code.
func (f Formatter) Code() string { return f.cur.Code }

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// Amount formats d, with a leading "-" when negative. Amounts beyond int64
// minor units fall back to plain decimal text.
func (f Formatter) Amount(d decimal.Decimal) string {
	mf := f.cur.Formatter()
	if d.Shift(int32(f.cur.Fraction)).Abs().GreaterThanOrEqual(maxMinorUnits) {
		sign := ""
		if d.IsNegative() {
			sign = "-"
		}
		return sign + f.cur.Grapheme + d.Abs().StringFixed(int32(f.cur.Fraction))
	}
	if d.Equal(d.Truncate(0)) {
		mf.Fraction = 0
		return mf.Format(d.IntPart())
	}
	return mf.Format(d.Shift(int32(f.cur.Fraction)).Round(0).IntPart())
}

// Signed formats a transaction amount with its sign: "+$5", "-$12".
func (f Formatter) Signed(tx domain.Transaction) string {
	abs := f.Amount(decimal.NewFromFloat(tx.Amount).Abs())
	if tx.Type == domain.Expense {
		return "-" + abs
	}
	return "+" + abs
}

// Reward formats a quest reward label: "+$5/day", "+$5/week".
func (f Formatter) Reward(q domain.Quest) string {
	return "+" + f.Amount(decimal.NewFromFloat(q.Reward)) + "/" + q.Frequency.Unit()
}

// StreakText renders the streak counter: "4-day streak".
func StreakText(days int) string {
	return fmt.Sprintf("%d-day streak", days)
}

// ShortDate renders t in loc as "Jan 2".
func ShortDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(ShortDateLayout)
}
