package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pawbank/allowance/internal/app/dashboard"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Int("recent", 5, "Number of recent transactions to show")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balance, quests and recent transactions",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	recent, _ := cmd.Flags().GetInt("recent")

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	snap := d.Service.Snapshot()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s's allowance\n", snap.KidName)
	fmt.Fprintf(out, "Balance: %s  (%s)\n", snap.BalanceText, snap.StreakText)
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Quests %d/%d done\n", snap.CompletedCount, snap.TotalQuests)
	printQuests(out, snap.Quests)

	txs := snap.Transactions
	if recent >= 0 && recent < len(txs) {
		txs = txs[:recent]
	}
	if len(txs) > 0 {
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Recent")
		printTransactions(out, txs)
	}
	return nil
}

// ─── Shared Printers ────────────────────────────────────────────────────────

func printQuests(out io.Writer, quests []dashboard.QuestView) {
	for _, q := range quests {
		mark := " "
		if q.Completed() {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %-24s %-10s %s\n", mark, q.Title, q.RewardText, q.ID)
	}
}

func printTransactions(out io.Writer, txs []dashboard.TransactionView) {
	for _, tx := range txs {
		fmt.Fprintf(out, "  %-6s  %-22s %-18s %8s  %s\n", tx.DateText, tx.Title, tx.Subtitle, tx.AmountText, tx.ID)
	}
}
