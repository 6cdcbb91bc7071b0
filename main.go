//go:build !lambda

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"workshop-optimizer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "workshop-optimizer",
	Short: "Find the most valuable daily workshop production chains",
	Long: "workshop-optimizer enumerates every chain of products that fits a 24 hour\n" +
		"workshop day, scores it against the island's market and groove, and ranks\n" +
		"the results.",
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .workshop-optimizer.yaml)")
	pf.BoolP("verbose", "v", false, "print search progress to stderr")
	pf.String("data", "", "product data file (default embedded)")
	pf.String("state", "island.toml", "island settings file")
	pf.Int("max-results", 100, "number of ranked chains to return")

	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("data_path", pf.Lookup("data"))
	_ = viper.BindPFlag("state_path", pf.Lookup("state"))
	_ = viper.BindPFlag("max_results", pf.Lookup("max-results"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".workshop-optimizer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	config.BindEnv()

	// A missing config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// loadApp reads configuration, installs the logger and wires the optimizer.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(os.Stderr, cfg.LogFormat, cfg.Verbose)
	slog.SetDefault(logger)
	return newApp(cfg, logger)
}

func main() {
	Execute()
}
