//go:build !lambda

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"workshop-optimizer/internal/island"
	"workshop-optimizer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the optimizer over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8391", "listen address")
	serveCmd.Flags().Bool("watch", false, "reload island settings when the file changes")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.watch", serveCmd.Flags().Lookup("watch"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	is, err := a.loadIsland()
	if err != nil {
		return err
	}
	srv := server.New(a.gw, a.data, a.logger, a.cfg.MaxResults)
	srv.LimitRate(a.cfg.Serve.RateLimit)
	if err := srv.SetIsland(is); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return srv.Run(ctx, a.cfg.Serve.Addr)
	})
	if a.cfg.Serve.Watch {
		g.Go(func() error {
			return followIsland(ctx, a, func(is *island.Island) error {
				a.logger.Info("[watch] island settings reloaded", "path", a.cfg.StatePath)
				return srv.SetIsland(is)
			})
		})
	}
	return g.Wait()
}
