//go:build !lambda

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"workshop-optimizer/internal/island"
	"workshop-optimizer/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-rank chains whenever the island settings file changes",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	show := func(is *island.Island) error {
		plans, err := a.plan(cmd.Context(), is, a.cfg.MaxResults)
		if err != nil {
			return err
		}
		fmt.Print(FormatResult(plans))
		return nil
	}

	is, err := a.loadIsland()
	if err != nil {
		return err
	}
	if err := show(is); err != nil {
		return err
	}
	return followIsland(cmd.Context(), a, show)
}

// followIsland reloads the settings file after every change and passes the
// result to apply until ctx is done. Unreadable files are logged and skipped.
func followIsland(ctx context.Context, a *app, apply func(*island.Island) error) error {
	w, err := watch.New(a.cfg.StatePath, 0, a.logger)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	a.logger.Debug("[watch] following", "path", w.Path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if change.Removed {
				a.logger.Info("[watch] settings file removed, using defaults", "path", change.Path)
			}
			is, err := a.loadIsland()
			if err != nil {
				a.logger.Warn("[watch] reload failed", "err", err)
				continue
			}
			if err := apply(is); err != nil {
				return err
			}
		}
	}
}
