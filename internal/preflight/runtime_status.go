package preflight

import (
	"context"
	"strings"

	"recap/internal/config"
)

// CheckSummaryLLMFromConfig evaluates summarization backend status from config
// and connectivity. The local extractive fallback keeps summarization working
// without an LLM, so a disabled backend passes.
func CheckSummaryLLMFromConfig(cfg *config.Config) Result {
	const name = "Summary LLM"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Summarization.LLM.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled (local summarizer only)"}
	}
	if strings.TrimSpace(cfg.Summarization.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	check := CheckLLM(context.Background(), name, cfg.SummaryLLM())
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckWatchFromConfig evaluates drop-folder ingestion status from config.
func CheckWatchFromConfig(cfg *config.Config) Result {
	const name = "Watch folder"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Watch.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Watch.Dir) == "" {
		return Result{Name: name, Detail: "Missing directory"}
	}
	check := CheckDirectoryAccess(name, cfg.Watch.Dir)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}
