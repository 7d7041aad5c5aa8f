package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"transcoder/internal/profiles"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Show the rendition ladder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := profiles.FromConfig(cfg.Profiles)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, catalog.Len())
			for _, p := range catalog.Profiles() {
				rows = append(rows, []string{
					p.Label,
					p.Resolution(),
					p.VideoRate(),
					p.AudioRate(),
					strconv.Itoa(p.Bandwidth()),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Label", "Resolution", "Video", "Audio", "Bandwidth"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
				shouldColorize(out),
			))
			return nil
		},
	}
}
