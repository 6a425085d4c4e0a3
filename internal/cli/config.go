package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pawbank/allowance/internal/daemon"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().Bool("write", false, "Write the effective config to config.toml if it does not exist yet")
	configCmd.Flags().Bool("keys", false, "List the keys held by the store instead")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, config.toml and ALLOWANCE_*
environment overrides have been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")
	if keys, _ := cmd.Flags().GetBool("keys"); keys {
		return printStoredKeys(cmd)
	}
	path := filepath.Join(cfg.Home, daemon.ConfigFileName)

	if write {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
			return fmt.Errorf("create home: %w", err)
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("create config: %w", err)
		}
		if err := cfg.Encode(f); err != nil {
			f.Close()
			return fmt.Errorf("write config: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
	return cfg.Encode(cmd.OutOrStdout())
}

func printStoredKeys(cmd *cobra.Command) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.StoredKeys()
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, e := range entries {
		updated := "-"
		if !e.UpdatedAt.IsZero() {
			updated = e.UpdatedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%-24s %8d bytes  %s\n", e.Key, e.Size, updated)
	}
	return nil
}
