package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pawbank/allowance/internal/domain"
)

func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txRemoveCmd)
	txCmd.AddCommand(txListCmd)

	txAddCmd.Flags().String("title", "", "What the money was for")
	txAddCmd.Flags().String("subtitle", "", "Short note (default Manual Income / Manual Expense)")
	txAddCmd.Flags().Float64("amount", 0, "Amount, always positive")
	txAddCmd.Flags().StringP("type", "t", "", "income or expense")
	txAddCmd.Flags().String("tint", "", "Accent color (OceanBlue, Mint, Sunset, Lavender, Rose, Sky, Ink)")
	txAddCmd.MarkFlagRequired("amount")
	txAddCmd.MarkFlagRequired("type")

	txListCmd.Flags().IntP("limit", "n", 0, "Show at most N transactions (0 = all)")
}

var txCmd = &cobra.Command{
	Use:     "tx",
	Aliases: []string{"transaction"},
	Short:   "Add, remove and list transactions",
}

// ─── tx add ─────────────────────────────────────────────────────────────────

var txAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record income or an expense",
	Example: `  allowance tx add --title "Grandma" --amount 10 --type income
  allowance tx add --title "Stickers" --amount 2.5 -t expense --tint Rose`,
	Args: cobra.NoArgs,
	RunE: runTxAdd,
}

func runTxAdd(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	subtitle, _ := cmd.Flags().GetString("subtitle")
	amount, _ := cmd.Flags().GetFloat64("amount")
	typeName, _ := cmd.Flags().GetString("type")
	tint, _ := cmd.Flags().GetString("tint")

	typ, err := domain.ParseTransactionType(typeName)
	if err != nil {
		return fmt.Errorf("--type %q: %w", typeName, err)
	}
	in := domain.TransactionInput{Title: title, Subtitle: subtitle, Amount: amount, Type: typ}
	if tint != "" {
		in.Tint = domain.ParseTint(tint)
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	tx, err := d.Service.AddTransaction(in)
	if err != nil {
		return err
	}
	view := d.Service.View(tx)
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", view.AmountText, tx.Title, tx.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", d.Service.Snapshot().BalanceText)
	return nil
}

// ─── tx rm ──────────────────────────────────────────────────────────────────

var txRemoveCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"remove"},
	Short:   "Delete a transaction",
	Args:    cobra.ExactArgs(1),
	RunE:    runTxRemove,
}

func runTxRemove(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	tx, err := d.Service.RemoveTransaction(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", tx.Title)
	fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", d.Service.Snapshot().BalanceText)
	return nil
}

// ─── tx list ────────────────────────────────────────────────────────────────

var txListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List transactions, newest first",
	Args:    cobra.NoArgs,
	RunE:    runTxList,
}

func runTxList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	txs := d.Service.Transactions(limit)
	if len(txs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No transactions.")
		return nil
	}
	printTransactions(cmd.OutOrStdout(), txs)
	return nil
}
