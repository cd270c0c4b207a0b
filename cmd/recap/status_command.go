package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recap/internal/api"
	"recap/internal/config"
	"recap/internal/ipc"
	"recap/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, pipeline, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.dialClient()
			if err != nil {
				// The daemon being down is itself a status worth reporting.
				return renderOfflineStatus(cmd, ctx)
			}
			defer client.Close()

			resp, err := client.Status()
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			renderDaemonStatus(cmd, ctx, resp)
			return nil
		},
	}
}

func renderDaemonStatus(cmd *cobra.Command, ctx *commandContext, resp *ipc.StatusResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if resp.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", resp.PID), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Connected but not started", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, resp.SocketPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d workers, %d queued", resp.Workers, resp.Queued), colorize))
	fmt.Fprintln(out, watchStatusLine(ctx.configValue(), colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(resp.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Jobs", colorize) {
		fmt.Fprintln(out, line)
	}
	table := renderTable([]string{"State", "Count"}, buildJobCountRows(resp), []columnAlignment{alignLeft, alignRight})
	fmt.Fprintln(out, table)
	if resp.LastJob != nil {
		last := *resp.LastJob
		fmt.Fprintf(out, "Last job: %s %s %s (%s)\n",
			shortID(last.ID), formatStatusLabel(last.Status), formatDisplayTime(last.CompletedAt), formatSource(last.Source))
	}
}

// renderOfflineStatus reports what can be checked without the daemon:
// configuration, directory access, and external tool availability.
func renderOfflineStatus(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	dependencies := api.FromDependencies(preflight.CheckSystemDeps(cfg))

	if ctx.JSONMode() {
		return writeJSON(cmd, ipc.StatusResponse{
			SocketPath:   ctx.socketPath(),
			Dependencies: dependencies,
		})
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", statusError, fmt.Sprintf("Not running (socket %s)", ctx.socketPath()), colorize))
	configDetail := ctx.configPath
	if !ctx.configFound {
		configDetail = fmt.Sprintf("%s (not found, defaults in use)", ctx.configPath)
	}
	fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configDetail, colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Directories", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range []struct {
		label string
		path  string
	}{
		{"Work directory", cfg.Paths.WorkDir},
		{"Cache directory", cfg.Paths.CacheDir},
		{"Log directory", cfg.Paths.LogDir},
	} {
		result := preflight.CheckDirectoryAccess(check.label, check.path)
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.label, kind, result.Detail, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(dependencies, colorize) {
		fmt.Fprintln(out, line)
	}
	return nil
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+2)

	var requiredMissing, optionalMissing []string
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			optionalMissing = append(optionalMissing, dep.Name)
		} else {
			requiredMissing = append(requiredMissing, dep.Name)
		}
	}

	switch {
	case len(requiredMissing) > 0:
		lines = append(lines, renderStatusLine("Summary", statusError,
			fmt.Sprintf("%d required dependencies missing", len(requiredMissing)), colorize))
	case len(optionalMissing) > 0:
		lines = append(lines, renderStatusLine("Summary", statusWarn, "Optional dependencies missing", colorize))
	default:
		lines = append(lines, renderStatusLine("Summary", statusOK, "All dependencies available", colorize))
	}

	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}

	if len(requiredMissing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError,
			fmt.Sprintf("%s (see README.md for install steps)", strings.Join(requiredMissing, ", ")), colorize))
	}
	return lines
}

func watchStatusLine(cfg *config.Config, colorize bool) string {
	if cfg == nil || !cfg.Watch.Enabled {
		return renderStatusLine("Watch folder", statusInfo, "Disabled", colorize)
	}
	detail := fmt.Sprintf("%s (settle %ds)", cfg.Watch.Dir, cfg.Watch.SettleSeconds)
	return renderStatusLine("Watch folder", statusOK, detail, colorize)
}

func buildJobCountRows(resp *ipc.StatusResponse) [][]string {
	return [][]string{
		{"Active", fmt.Sprintf("%d", resp.ActiveJobs)},
		{"Queued", fmt.Sprintf("%d", resp.Queued)},
		{"Completed", fmt.Sprintf("%d", resp.CompletedJobs)},
		{"Failed", fmt.Sprintf("%d", resp.FailedJobs)},
	}
}
