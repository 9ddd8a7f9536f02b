package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"romscribe/internal/gamelist"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [gamelist.xml]",
		Short: "Show the games in a written game list",
		Long:  "Show the games in a written game list. Without an argument the list in the configured output directory is read.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := ctx.ensureConfig(cmd)
				if err != nil {
					return err
				}
				if cfg.Paths.OutputDir == "" {
					return fmt.Errorf("no game list given and no output directory configured (--outDir or paths.output_dir)")
				}
				path = filepath.Join(cfg.Paths.OutputDir, gamelist.FileName)
			}

			games, err := gamelist.Read(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(games) == 0 {
				fmt.Fprintf(out, "%s contains no games\n", path)
				return nil
			}
			rows := make([][]string, 0, len(games))
			for _, g := range games {
				rows = append(rows, []string{
					filepath.Base(g.Path),
					g.Name,
					g.ReleaseDate,
					g.Genre,
					strconv.FormatFloat(g.Rating, 'f', 2, 64),
					strconv.Itoa(g.Players),
					yesNo(g.Image != ""),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Name", "Released", "Genre", "Rating", "Players", "Image"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d game(s) in %s\n", len(games), path)
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
