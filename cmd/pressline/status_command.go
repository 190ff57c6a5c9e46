package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pressline/internal/api"
	"pressline/internal/services"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, stage, and item status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			status, err := client.Status(commandCtx(cmd))
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if err != nil {
				if services.KindOf(err) != services.KindTransient {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.DaemonStatus{APIBind: client.BaseURL()})
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "Not running ("+client.BaseURL()+")", colorize))
				return nil
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			printDaemonStatus(out, *status, colorize)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printDaemonStatus(out io.Writer, status api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range daemonLines(status, colorize) {
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Stages", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range stageHealthLines(status.Workflow.StageHealth, colorize) {
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Items", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := buildStatusCountRows(status.Workflow.Stats)
	if len(rows) == 0 {
		fmt.Fprintln(out, statusIndent+"No items")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func daemonLines(status api.DaemonStatus, colorize bool) []string {
	lines := make([]string, 0, 6)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Stopped", colorize))
	}
	storage := status.StorageDriver
	if status.DatabasePath != "" {
		storage = fmt.Sprintf("%s (%s)", storage, status.DatabasePath)
	}
	lines = append(lines, renderStatusLine("Storage", statusInfo, storage, colorize))
	lines = append(lines, renderStatusLine("API", statusInfo, status.APIBind, colorize))

	if status.Workflow.Running {
		sweep := "no sweep yet"
		if status.Workflow.LastSweep != "" {
			sweep = "last sweep " + formatDisplayTime(status.Workflow.LastSweep)
		}
		lines = append(lines, renderStatusLine("Sweeper", statusOK, sweep, colorize))
	} else {
		lines = append(lines, renderStatusLine("Sweeper", statusWarn, "Stopped", colorize))
	}
	if msg := strings.TrimSpace(status.Workflow.LastError); msg != "" {
		lines = append(lines, renderStatusLine("Last Error", statusError, msg, colorize))
	}
	if item := status.Workflow.LastItem; item != nil {
		lines = append(lines, renderStatusLine("Last Item", itemStatusKind(item.Status, item.Terminal, item.AwaitingReview),
			fmt.Sprintf("%s (%s)", item.ContentID, formatStatusLabel(item.Status)), colorize))
	}
	return lines
}

func stageHealthLines(health []api.StageHealth, colorize bool) []string {
	if len(health) == 0 {
		return []string{renderStatusLine("Stages", statusWarn, "none configured", colorize)}
	}
	lines := make([]string, 0, len(health))
	for _, h := range health {
		if h.Ready {
			lines = append(lines, renderStatusLine(h.Name, statusOK, fallback(h.Detail, "Ready"), colorize))
			continue
		}
		lines = append(lines, renderStatusLine(h.Name, statusError, fallback(h.Detail, "Not ready"), colorize))
	}
	return lines
}
