package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"recap/internal/ipc"
	"recap/internal/pipeline"
	"recap/internal/summarize"
)

const waitPollInterval = 500 * time.Millisecond

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var length string
	var format string
	var focus []string
	var minWords int
	var maxWords int
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <path|url>",
		Short: "Submit a media file or URL for transcription and summarization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			if !pipeline.IsRemote(source) {
				absPath, err := filepath.Abs(source)
				if err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					return fmt.Errorf("inspect file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", absPath)
				}
				source = absPath
			}

			// Reject bad option values before the daemon sees the job.
			opts := summarize.Options{
				Length:   length,
				Format:   format,
				Focus:    focus,
				MinWords: minWords,
				MaxWords: maxWords,
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(source, ipc.SummaryOptions{
					Length:   length,
					Format:   format,
					Focus:    focus,
					MinWords: minWords,
					MaxWords: maxWords,
				})
				if err != nil {
					return err
				}
				job := resp.Job

				out := cmd.OutOrStdout()
				if !wait {
					if ctx.JSONMode() {
						return writeJSON(cmd, job)
					}
					fmt.Fprintf(out, "Job %s accepted (%s)\n", shortID(job.ID), job.Kind)
					fmt.Fprintf(out, "Track it with `recap job %s`\n", shortID(job.ID))
					return nil
				}

				if !ctx.JSONMode() {
					fmt.Fprintf(out, "Job %s accepted (%s), waiting...\n", shortID(job.ID), job.Kind)
				}
				finished, err := waitForJob(cmd, ctx, client, job.ID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, finished)
				}
				fmt.Fprintln(out)
				printJobDetails(cmd, finished, false)
				if finished.Status == "failed" {
					return fmt.Errorf("job %s failed", shortID(finished.ID))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&length, "length", "", "Summary length: short, medium, or long")
	cmd.Flags().StringVar(&format, "format", "", "Summary format: paragraph, bullets, numbered, or key_points")
	cmd.Flags().StringSliceVar(&focus, "focus", nil, "Focus hints: key_points, detailed")
	cmd.Flags().IntVar(&minWords, "min-words", 0, "Override the minimum summary word target")
	cmd.Flags().IntVar(&maxWords, "max-words", 0, "Override the maximum summary word target")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the job finishes and print the result")
	return cmd
}

// waitForJob polls until the job reaches a terminal status, echoing stage
// transitions as they happen.
func waitForJob(cmd *cobra.Command, ctx *commandContext, client *ipc.Client, id string) (ipc.Job, error) {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	lastStage := ""
	for {
		select {
		case <-cmd.Context().Done():
			return ipc.Job{}, cmd.Context().Err()
		case <-ticker.C:
		}

		resp, err := client.Job(id)
		if err != nil {
			return ipc.Job{}, fmt.Errorf("poll job: %w", err)
		}
		job := resp.Job

		if !ctx.JSONMode() && job.Progress.Stage != lastStage && !terminalJobStatus(job.Status) {
			lastStage = job.Progress.Stage
			fmt.Fprintf(out, "  %s (%s)\n", job.Progress.Stage, formatPercent(job.Progress.Percent))
		}
		if terminalJobStatus(job.Status) {
			return job, nil
		}
	}
}
