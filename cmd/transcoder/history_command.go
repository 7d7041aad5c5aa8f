package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"transcoder/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jobID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded status transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled (set history.enabled = true)")
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []history.Entry
			if jobID != "" {
				entries, err = store.ForJob(cmd.Context(), jobID)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No status transitions recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				position := "-"
				if entry.QueuePosition != nil {
					position = strconv.Itoa(*entry.QueuePosition)
				}
				manifest := "-"
				if entry.ManifestKey != nil {
					manifest = *entry.ManifestKey
				}
				rows = append(rows, []string{
					entry.RecordedAt.Local().Format(time.DateTime),
					entry.JobID,
					string(entry.Status),
					position,
					manifest,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Recorded", "Video", "Status", "Position", "Manifest"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "Only show transitions for this video id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent transitions to show")
	return cmd
}
