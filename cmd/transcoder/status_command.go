package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"transcoder/internal/api"
	"transcoder/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, clientErr := ctx.client()
			if clientErr != nil {
				client = nil
			}
			snapshot := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg, client)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			renderDaemonSection(out, snapshot)
			if snapshot.Daemon != nil {
				renderWorkflowSection(out, snapshot.Daemon.Workflow, colorize)
			}
			renderDependencySection(out, snapshot.Dependencies, colorize)
			renderChecksSection(out, snapshot, colorize)
			return nil
		},
	}
}

func renderDaemonSection(out io.Writer, snapshot daemonctl.Snapshot) {
	fmt.Fprintln(out, "Daemon")
	switch {
	case snapshot.Daemon != nil:
		d := snapshot.Daemon
		fmt.Fprintf(out, "  Running:  %s (pid %d)\n", yesNo(d.Running), d.PID)
		if d.StartedAt != "" {
			fmt.Fprintf(out, "  Started:  %s\n", d.StartedAt)
		}
		fmt.Fprintf(out, "  Storage:  %s\n", d.Storage)
		fmt.Fprintf(out, "  Work dir: %s\n", d.WorkDir)
		if d.HistoryPath != "" {
			fmt.Fprintf(out, "  History:  %s\n", d.HistoryPath)
		}
	case snapshot.DaemonError != "":
		fmt.Fprintf(out, "  Running:  unknown (%s)\n", snapshot.DaemonError)
	default:
		fmt.Fprintln(out, "  Running:  no")
	}
	fmt.Fprintln(out)
}

func renderWorkflowSection(out io.Writer, wf api.WorkflowStatus, colorize bool) {
	fmt.Fprintln(out, "Queue")
	active := "idle"
	if wf.Active != nil {
		active = wf.Active.VideoID
	}
	fmt.Fprintf(out, "  Active:    %s\n", active)
	fmt.Fprintf(out, "  Pending:   %d\n", len(wf.Pending))
	fmt.Fprintf(out, "  Processed: %d (%d failed)\n", wf.Processed, wf.Failed)
	if wf.LastJob != nil {
		fmt.Fprintf(out, "  Last job:  %s %s\n", wf.LastJob.Job.VideoID, wf.LastJob.Status)
	}
	if wf.LastError != "" {
		fmt.Fprintf(out, "  Last error: %s\n", wf.LastError)
	}
	if len(wf.Pending) > 0 {
		rows := make([][]string, 0, len(wf.Pending))
		for i, job := range wf.Pending {
			rows = append(rows, []string{strconv.Itoa(i + 1), job.VideoID, job.OriginalKey})
		}
		fmt.Fprintln(out, renderTable([]string{"#", "Video", "Source"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft}, colorize))
	}
	fmt.Fprintln(out)
}

func renderDependencySection(out io.Writer, lines []daemonctl.DependencyLine, colorize bool) {
	fmt.Fprintln(out, "Dependencies")
	rows := make([][]string, 0, len(lines))
	for _, dep := range lines {
		rows = append(rows, []string{dep.Name, dep.Command, strings.ToUpper(dep.Severity), dep.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Name", "Command", "State", "Detail"}, rows, nil, colorize))
	fmt.Fprintln(out)
}

func renderChecksSection(out io.Writer, snapshot daemonctl.Snapshot, colorize bool) {
	fmt.Fprintln(out, "Checks")
	rows := make([][]string, 0, len(snapshot.Checks))
	for _, check := range snapshot.Checks {
		state := "OK"
		if !check.Passed {
			state = "FAIL"
		}
		rows = append(rows, []string{check.Name, state, check.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows, nil, colorize))
}
