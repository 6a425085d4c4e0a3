package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "Listen host (overrides [api].host)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides [api].port)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard API",
	Long: `Start the HTTP API the dashboard talks to. The server runs until it
receives SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.API.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.API.Port = port
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting allowance",
		zap.String("addr", cfg.Addr()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("metrics", cfg.Metrics.Enabled))
	return d.Serve(ctx)
}
