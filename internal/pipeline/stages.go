package pipeline

import (
	"context"
	"fmt"
	"strings"

	"recap/internal/jobs"
	"recap/internal/services"
)

// Stage identifiers recorded on failures and mapped to error kinds.
const (
	StageFetch      = "download"
	StageNormalize  = "extract_audio"
	StageValidate   = "validate_audio"
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
)

// Progress milestones. Acquisition and normalization own 0-20, transcription
// 20-75, summarization 75-100; completion sets 100.
const (
	progressFetchStart  = 2.0
	progressFetched     = 10.0
	progressAudioReady  = 20.0
	progressTranscribed = 75.0
	progressDraft       = 90.0
)

const (
	transcribeBandStart = progressAudioReady
	transcribeBandWidth = progressTranscribed - progressAudioReady
)

// errorKindForStage maps a failed stage to the job-facing error taxonomy.
// Unrecognized stages, including the synthetic panic stage, become unknown.
func errorKindForStage(stage string) jobs.ErrorKind {
	switch stage {
	case StageFetch:
		return jobs.ErrorKindDownload
	case StageNormalize, StageValidate:
		return jobs.ErrorKindAudioProcessing
	case StageTranscribe:
		return jobs.ErrorKindTranscription
	case StageSummarize:
		return jobs.ErrorKindSummarization
	default:
		return jobs.ErrorKindUnknown
	}
}

func failureMessage(err error) string {
	if err == nil {
		return "stage failed without error detail"
	}
	return strings.TrimSpace(err.Error())
}

// TranscribeProgress returns a chain attempt hook that advances the
// transcription band as engines finish. The job id travels in the context the
// orchestrator hands to the chain; calls without one are ignored, so the hook
// is safe to wire even when the chain also runs outside pipeline jobs.
func TranscribeProgress(registry *jobs.Registry) func(ctx context.Context, engine string, completed, total int) {
	return func(ctx context.Context, engine string, completed, total int) {
		id, ok := services.JobIDFromContext(ctx)
		if !ok || total <= 0 || completed <= 0 {
			return
		}
		percent := transcribeBandStart + transcribeBandWidth*float64(completed)/float64(total)
		message := fmt.Sprintf("Engine %s finished (%d/%d)", engine, completed, total)
		_ = registry.SetProgress(id, jobs.StatusTranscribing, "Transcribing", message, percent)
	}
}
