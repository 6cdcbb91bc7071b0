//go:build !lambda

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"workshop-optimizer/internal/gateway"
)

// optimizeOutput is the --json document.
type optimizeOutput struct {
	Date    string         `json:"date"`
	TimeMs  int64          `json:"timeMs"`
	Results []gateway.Plan `json:"results"`
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Rank production chains for the saved island settings",
	Args:  cobra.NoArgs,
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	is, err := a.loadIsland()
	if err != nil {
		return err
	}

	start := time.Now()
	plans, err := a.plan(cmd.Context(), is, a.cfg.MaxResults)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	a.logger.Debug("[done] optimize", "results", len(plans), "elapsed", elapsed)

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(optimizeOutput{
			Date:    time.Now().UTC().Format(time.RFC3339),
			TimeMs:  elapsed.Milliseconds(),
			Results: plans,
		})
	}
	fmt.Print(FormatResult(plans))
	return nil
}
