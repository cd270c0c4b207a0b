package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recap/internal/ipc"
	"recap/internal/textutil"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	var showTranscript bool

	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := lookupJob(client, args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, job)
				}
				printJobDetails(cmd, job, showTranscript)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showTranscript, "transcript", false, "Print the full transcript instead of a word count")
	return cmd
}

// lookupJob fetches a job by exact id, falling back to a unique prefix match
// so the abbreviated ids printed by `recap jobs` work directly.
func lookupJob(client *ipc.Client, id string) (ipc.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ipc.Job{}, errors.New("job id is required")
	}

	if resp, err := client.Job(id); err == nil {
		return resp.Job, nil
	}

	jobsResp, err := client.Jobs()
	if err != nil {
		return ipc.Job{}, err
	}
	candidates := make([]ipc.Job, 0, len(jobsResp.Active)+len(jobsResp.Completed))
	candidates = append(candidates, jobsResp.Active...)
	candidates = append(candidates, jobsResp.Completed...)

	var matches []ipc.Job
	for _, job := range candidates {
		if strings.HasPrefix(job.ID, id) {
			matches = append(matches, job)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return ipc.Job{}, fmt.Errorf("job %s not found", id)
	default:
		return ipc.Job{}, fmt.Errorf("job id %s is ambiguous (%d matches)", id, len(matches))
	}
}

func printJobDetails(cmd *cobra.Command, job ipc.Job, showTranscript bool) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Job:       %s\n", job.ID)
	fmt.Fprintf(out, "Kind:      %s\n", job.Kind)
	fmt.Fprintf(out, "Source:    %s\n", job.Source)
	fmt.Fprintf(out, "Status:    %s\n", formatStatusLabel(job.Status))
	fmt.Fprintf(out, "Stage:     %s\n", job.Progress.Stage)
	fmt.Fprintf(out, "Progress:  %s\n", formatPercent(job.Progress.Percent))
	if message := strings.TrimSpace(job.Progress.Message); message != "" {
		fmt.Fprintf(out, "Message:   %s\n", message)
	}
	if job.CreatedAt != "" {
		fmt.Fprintf(out, "Created:   %s\n", formatDisplayTime(job.CreatedAt))
	}
	if job.CompletedAt != "" {
		completed := formatDisplayTime(job.CompletedAt)
		if elapsed := jobDuration(job); elapsed != "" {
			completed = fmt.Sprintf("%s (took %s)", completed, elapsed)
		}
		fmt.Fprintf(out, "Completed: %s\n", completed)
	}

	if job.Error != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Failed during %s: %s\n", job.Error.Stage, job.Error.Message)
		return
	}

	if job.Result == nil {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintln(out, job.Result.Summary)
	fmt.Fprintln(out)
	if showTranscript {
		fmt.Fprintln(out, "Transcript:")
		fmt.Fprintln(out, job.Result.Transcript)
	} else {
		words := textutil.WordCount(job.Result.Transcript)
		fmt.Fprintf(out, "Transcript: %d words (rerun with --transcript to print it)\n", words)
	}
}
