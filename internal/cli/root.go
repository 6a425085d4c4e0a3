// Package cli implements the allowance command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pawbank/allowance/internal/daemon"
)

var (
	homeDir   string
	ephemeral bool
	verbose   bool

	cfg    daemon.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "allowance",
	Short: "Pocket-money ledger and chore quests",
	Long: `allowance keeps a child's pocket-money ledger and a small set of
recurring chore quests. Completing a quest pays its reward into the ledger;
daily quests reset at local midnight and weekly quests when the week starts.

Run 'allowance serve' to start the local dashboard API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = daemon.LoadConfig(homeDir)
		if err != nil {
			return err
		}
		if ephemeral {
			cfg.Store.Driver = daemon.DriverMemory
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger, err = daemon.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data and config directory (default $ALLOWANCE_HOME or ~/.allowance)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep everything in memory for this run")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openDaemon builds the store and service for one command.
func openDaemon() (*daemon.Daemon, error) {
	d, err := daemon.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open allowance data: %w", err)
	}
	return d, nil
}
