package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recap/internal/ipc"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List active and recently finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Jobs()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}

				out := cmd.OutOrStdout()
				if len(resp.Active) == 0 && len(resp.Completed) == 0 {
					fmt.Fprintln(out, "No jobs yet")
					return nil
				}

				if len(resp.Active) > 0 {
					fmt.Fprintln(out, "Active jobs:")
					table := renderTable(
						[]string{"ID", "Kind", "Stage", "Progress", "Source"},
						buildActiveJobRows(resp.Active),
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					)
					fmt.Fprintln(out, table)
				}

				if len(resp.Completed) > 0 {
					if len(resp.Active) > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintln(out, "Recent jobs:")
					table := renderTable(
						[]string{"ID", "Status", "Finished", "Source", "Detail"},
						buildCompletedJobRows(resp.Completed),
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
					)
					fmt.Fprintln(out, table)
				}
				return nil
			})
		},
	}
}
