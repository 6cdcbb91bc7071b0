//go:build !lambda

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"workshop-optimizer/internal/config"
	"workshop-optimizer/internal/gamedata"
	"workshop-optimizer/internal/island"
)

var islandCmd = &cobra.Command{
	Use:   "island",
	Short: "Show or edit the saved island settings",
}

var islandShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the island settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return editIsland(false, func(d *gamedata.Data, is *island.Island) error {
			fmt.Print(FormatIsland(is, d))
			return nil
		})
	},
}

var islandSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set island rank, landmark count or current groove",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return editIsland(true, func(d *gamedata.Data, is *island.Island) error {
			f := cmd.Flags()
			if f.Changed("rank") {
				is.Rank, _ = f.GetInt("rank")
				if is.Rank < 1 || is.Rank > d.MaxRank {
					return fmt.Errorf("rank %d out of range [1,%d]", is.Rank, d.MaxRank)
				}
			}
			if f.Changed("landmarks") {
				is.Landmarks, _ = f.GetInt("landmarks")
				if is.Landmarks < 0 || is.Landmarks > len(d.LandmarkRanks) {
					return fmt.Errorf("landmarks %d out of range [0,%d]", is.Landmarks, len(d.LandmarkRanks))
				}
			}
			if f.Changed("groove") {
				is.Groove, _ = f.GetInt("groove")
			}
			if maxGroove := is.MaxGroove(d); is.Groove < 0 || is.Groove > maxGroove {
				return fmt.Errorf("groove %d out of range [0,%d]", is.Groove, maxGroove)
			}
			return nil
		})
	},
}

var islandWorkshopCmd = &cobra.Command{
	Use:   "set-workshop <slot> <tier-id|none>",
	Short: "Build, upgrade or remove the workshop in a slot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid slot %q", args[0])
		}
		return editIsland(true, func(d *gamedata.Data, is *island.Island) error {
			tier := island.Unbuilt
			if args[1] != "none" {
				t, ok := d.Tier(args[1])
				if !ok {
					return fmt.Errorf("unknown workshop tier %q", args[1])
				}
				tier = t.Rank
			}
			return is.SetWorkshop(d, slot, tier)
		})
	},
}

var islandProductCmd = &cobra.Command{
	Use:   "set-product <product-id>",
	Short: "Record popularity, supply or predicted demand for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		popularity, _ := f.GetString("popularity")
		supply, _ := f.GetString("supply")
		predicted, _ := f.GetString("predicted")
		return editIsland(true, func(d *gamedata.Data, is *island.Island) error {
			return is.SetProduct(d, args[0], popularity, supply, predicted)
		})
	},
}

var islandResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset every product to average popularity and sufficient supply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return editIsland(true, func(_ *gamedata.Data, is *island.Island) error {
			is.Reset()
			return nil
		})
	},
}

func init() {
	islandSetCmd.Flags().Int("rank", island.DefaultRank, "island rank")
	islandSetCmd.Flags().Int("landmarks", 0, "number of landmarks built")
	islandSetCmd.Flags().Int("groove", 0, "current groove")

	islandProductCmd.Flags().String("popularity", "", "low|average|high|veryHigh")
	islandProductCmd.Flags().String("supply", "", "nonexistent|insufficient|sufficient|surplus|overflowing")
	islandProductCmd.Flags().String("predicted", "", "predicted demand for the next cycle")

	islandCmd.AddCommand(islandShowCmd, islandSetCmd, islandWorkshopCmd, islandProductCmd, islandResetCmd)
	rootCmd.AddCommand(islandCmd)
}

// editIsland loads the settings, applies fn and saves them when save is set.
// The optimizer is not started.
func editIsland(save bool, fn func(*gamedata.Data, *island.Island) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.LogFormat, cfg.Verbose)
	d, err := gamedata.LoadOrDefault(cfg.DataPath)
	if err != nil {
		return err
	}

	is, err := island.Load(cfg.StatePath, d, logger)
	if err != nil {
		return err
	}
	if err := fn(d, is); err != nil {
		return err
	}
	if !save {
		return nil
	}
	if err := is.Save(cfg.StatePath); err != nil {
		return err
	}
	logger.Debug("[island] saved", "path", cfg.StatePath)
	return nil
}
