package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recap/internal/ipc"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check readiness of the daemon's pipeline components",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Health()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				overall := renderStatusLine("Overall", statusOK, "healthy", colorize)
				if !resp.Healthy {
					overall = renderStatusLine("Overall", statusError, "degraded", colorize)
				}
				fmt.Fprintln(out, overall)
				for _, component := range resp.Components {
					fmt.Fprintln(out, componentHealthLine(component, colorize))
				}
				return nil
			})
		},
	}
}

func componentHealthLine(component ipc.ComponentHealth, colorize bool) string {
	kind := statusOK
	if !component.Ready {
		kind = statusError
		if component.Optional {
			kind = statusWarn
		}
	}
	return renderStatusLine(component.Name, kind, component.Detail, colorize)
}
