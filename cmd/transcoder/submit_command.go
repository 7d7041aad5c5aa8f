package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"transcoder/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "submit <video-id> <original-key>",
		Short: "Queue a stored upload for transcoding on a running daemon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Submit(cmd.Context(), api.TranscodeRequest{
				VideoID:     args[0],
				OriginalKey: args[1],
				Filename:    filename,
			})
			if err != nil {
				return wrapDaemonError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", resp.Message, resp.VideoID)
			return nil
		},
	}

	cmd.Flags().StringVar(&filename, "filename", "", "Original filename of the upload")
	return cmd
}
