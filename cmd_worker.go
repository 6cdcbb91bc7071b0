//go:build !lambda

package main

import (
	"os"

	"github.com/spf13/cobra"

	"workshop-optimizer/internal/config"
	"workshop-optimizer/internal/gateway"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the optimizer worker over JSON lines on stdin/stdout",
	Long: "worker reads catalog and optimize messages, one JSON object per line, from\n" +
		"stdin and writes ready, error and optimized replies to stdout in order.\n" +
		"Set optimizer.command to run it as the backend of another instance.",
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol, so logs always go to stderr.
	logger := newLogger(os.Stderr, cfg.LogFormat, cfg.Verbose)

	w := newWorker(cfg.Optimizer, logger)
	w.Start()
	logger.Debug("[worker] serving stdin")
	return gateway.ServeStream(cmd.Context(), w, os.Stdin, os.Stdout, logger)
}
