package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/hsm/examples/arena"
	"github.com/comalice/hsm/internal/production"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the game's state tree",
		Long:  `Starts a game, plays --steps ticks of the configured script without a clock and prints the resulting tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			steps, _ := cmd.Flags().GetInt("steps")

			game := arena.NewGame(cfg.Arena.EnemiesPerRound, nil)
			director := arena.NewDirector(game, arena.Script{
				KillEvery:    cfg.Arena.KillEvery,
				ShopTicks:    cfg.Arena.ShopTicks,
				DeathAtRound: cfg.Arena.DeathAtRound,
				Restarts:     cfg.Arena.Restarts,
			})
			// The first update starts the game.
			for i := 0; i <= steps; i++ {
				director.Update()
			}

			tree, _ := production.Tree(game.Machine)
			v := &production.DefaultVisualizer{}
			out := cmd.OutOrStdout()
			switch format {
			case "dot":
				fmt.Fprint(out, v.ExportDOT(tree))
			case "json":
				data, err := v.ExportJSON(tree)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "yaml":
				data, err := v.ExportYAML(tree)
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(data))
			default:
				return fmt.Errorf("unknown format %q (want dot, yaml or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "dot", "Output format: dot, yaml, json")
	cmd.Flags().Int("steps", 0, "Ticks to play before printing")
	return cmd
}
