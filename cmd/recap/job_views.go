package main

import (
	"fmt"
	"strings"
	"time"

	"recap/internal/api"
	"recap/internal/ipc"
)

const sourceColumnWidth = 48

// shortID abbreviates a job id for table display. Commands accept the
// abbreviated form back as a prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	t, ok := api.ParseTime(value)
	if !ok {
		return value
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatPercent(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return fmt.Sprintf("%.0f%%", percent)
}

// formatSource keeps URLs whole and trims long paths from the left so the
// file name stays visible.
func formatSource(source string) string {
	source = strings.TrimSpace(source)
	runes := []rune(source)
	if len(runes) <= sourceColumnWidth {
		return source
	}
	return "…" + string(runes[len(runes)-sourceColumnWidth+1:])
}

func jobDuration(job ipc.Job) string {
	created, ok := api.ParseTime(job.CreatedAt)
	if !ok {
		return ""
	}
	completed, ok := api.ParseTime(job.CompletedAt)
	if !ok {
		return ""
	}
	elapsed := completed.Sub(created)
	if elapsed < 0 {
		return ""
	}
	return elapsed.Round(time.Second).String()
}

func buildActiveJobRows(jobs []ipc.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortID(job.ID),
			job.Kind,
			job.Progress.Stage,
			formatPercent(job.Progress.Percent),
			formatSource(job.Source),
		})
	}
	return rows
}

func buildCompletedJobRows(jobs []ipc.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		detail := ""
		switch {
		case job.Error != nil:
			detail = job.Error.Message
		case job.Result != nil:
			detail = summaryPreview(job.Result.Summary)
		}
		rows = append(rows, []string{
			shortID(job.ID),
			formatStatusLabel(job.Status),
			formatDisplayTime(job.CompletedAt),
			formatSource(job.Source),
			detail,
		})
	}
	return rows
}

func summaryPreview(summary string) string {
	summary = strings.Join(strings.Fields(summary), " ")
	runes := []rune(summary)
	if len(runes) <= 60 {
		return summary
	}
	return string(runes[:59]) + "…"
}

func terminalJobStatus(status string) bool {
	return status == "completed" || status == "failed"
}
