// cmd/stackharmony/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/config"
	"github.com/julianshen/stackharmony/internal/logging"
	"github.com/julianshen/stackharmony/internal/output"
	"github.com/julianshen/stackharmony/internal/runner"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("stackharmony %s (commit: %s, built: %s)", version, commit, date)
}

// cli holds the persistent flags and the state built from them before a
// subcommand runs.
type cli struct {
	configPath string
	verbose    bool
	outputFlag string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:   "stackharmony",
		Short: "Score and validate developer tool stacks",
		Long: `stackharmony scores how well developer tools work together, validates
stacks for conflicts and missing dependencies, and recommends tools that fit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&c.outputFlag, "output", "o", output.FormatAuto, "output format: auto, json, markdown")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(c.lookupCmd())
	rootCmd.AddCommand(c.harmonyCmd())
	rootCmd.AddCommand(c.validateCmd())
	rootCmd.AddCommand(c.recommendCmd())
	rootCmd.AddCommand(c.matrixCmd())
	rootCmd.AddCommand(c.compareCmd())
	rootCmd.AddCommand(c.seedCmd())
	rootCmd.AddCommand(c.generateCmd())
	rootCmd.AddCommand(c.serveCmd())
	return rootCmd
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := logging.New(cfg.Log, c.verbose)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = log
	return nil
}
