package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pawbank/allowance/internal/domain"
)

func init() {
	rootCmd.AddCommand(questCmd)
	questCmd.AddCommand(questListCmd)
	questCmd.AddCommand(questToggleCmd)
	questCmd.AddCommand(questSweepCmd)
}

var questCmd = &cobra.Command{
	Use:   "quest",
	Short: "List, complete and reset chore quests",
}

var questListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show every quest and whether it is done",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		snap := d.Service.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d done\n", snap.CompletedCount, snap.TotalQuests)
		printQuests(cmd.OutOrStdout(), snap.Quests)
		return nil
	},
}

var questToggleCmd = &cobra.Command{
	Use:   "toggle QUEST",
	Short: "Complete a pending quest, or undo a completed one",
	Long: `Toggle a quest by id or title. Completing pays the reward into the
ledger; toggling again in the same period takes it back out.`,
	Example: `  allowance quest toggle bike-to-school
  allowance quest toggle "All-A homework"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := d.Service.ToggleQuest(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Status == domain.QuestCompleted {
			reward := d.Service.View(res.Transaction)
			fmt.Fprintf(out, "🎉 %s done! %s\n", res.Quest.Title, reward.AmountText)
		} else {
			fmt.Fprintf(out, "%s is pending again\n", res.Quest.Title)
		}
		fmt.Fprintf(out, "Balance: %s\n", d.Service.Snapshot().BalanceText)
		return nil
	},
}

var questSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reset quests whose day or week has ended",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		reset := d.Service.Activate()
		fmt.Fprintf(cmd.OutOrStdout(), "%d quest(s) reset\n", len(reset))
		for _, q := range reset {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", q.Title)
		}
		return nil
	},
}
