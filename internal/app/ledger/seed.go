package ledger

import (
	"time"

	"github.com/pawbank/allowance/internal/domain"
)

// SeedBalance is the starting balance of a fresh install. It equals the sum
// of the signed amounts of SeedTransactions.
const SeedBalance = 87

// SeedTransactions returns the sample history shown on first run, newest
// first. The opening "Piggy bank savings" deposit makes the samples add up
// to SeedBalance.
func SeedTransactions(now time.Time, newID func() string) []domain.Transaction {
	day := 24 * time.Hour
	return []domain.Transaction{
		{ID: newID(), Title: "Weekly Homework A", Subtitle: "Reward saved", Date: now, Amount: 5, Type: domain.Income, Tint: domain.TintMint},
		{ID: newID(), Title: "Ride Bike to School", Subtitle: "Daily streak", Date: now.Add(-day), Amount: 5, Type: domain.Income, Tint: domain.TintOceanBlue},
		{ID: newID(), Title: "New Story Book", Subtitle: "Reading is fun!", Date: now.Add(-2 * day), Amount: 12, Type: domain.Expense, Tint: domain.TintSunset},
		{ID: newID(), Title: "Puzzle Toy", Subtitle: "Weekend treat", Date: now.Add(-3 * day), Amount: 8, Type: domain.Expense, Tint: domain.TintRose},
		{ID: newID(), Title: "Piggy bank savings", Subtitle: "Opening balance", Date: now.Add(-4 * day), Amount: 97, Type: domain.Income, Tint: domain.TintSky},
	}
}
