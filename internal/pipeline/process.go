package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/services"
	"recap/internal/summarize"
)

// jobOutput carries what a successful pipeline run produced.
type jobOutput struct {
	result jobs.Result
	engine string
}

// runJob resolves one submission to a terminal state. Stage errors and panics
// are recorded against the job; only a shutdown cancellation leaves the job
// untouched.
func (o *Orchestrator) runJob(ctx context.Context, sub submission) {
	job, ok := o.registry.Get(sub.jobID)
	if !ok {
		o.logger.Warn("job vanished before processing", logging.String("job_id", sub.jobID))
		return
	}

	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, o.logger)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", logging.Any("panic", r))
			o.finishFailed(ctx, logger, job, jobs.Error{
				Kind:    jobs.ErrorKindUnknown,
				Stage:   "pipeline",
				Message: fmt.Sprintf("internal error: %v", r),
			})
		}
	}()

	logger.Info("job started",
		logging.String("kind", string(job.Kind)),
		logging.String("source", job.InputRef))

	out, stage, err := o.process(ctx, logger, job, sub.opts)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			logger.Debug("job interrupted by shutdown", logging.String("stage", stage))
			return
		}
		o.finishFailed(ctx, logger, job, jobs.Error{
			Kind:    errorKindForStage(stage),
			Stage:   stage,
			Message: failureMessage(err),
		})
		return
	}

	if err := o.registry.Complete(job.ID, out.result); err != nil {
		logger.Error("record completion", logging.Error(err))
		return
	}
	logger.Info("job completed",
		logging.String("engine", out.engine),
		logging.Duration("elapsed", time.Since(started)))
	o.notifyCompleted(ctx, job, out)
}

// process walks the stages in order and reports which stage failed.
func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, job jobs.Job, opts summarize.Options) (jobOutput, string, error) {
	var out jobOutput

	localPath := job.InputRef
	if job.Kind == jobs.KindURL {
		if o.fetcher == nil {
			return out, StageFetch, services.Wrap(services.ErrConfiguration, component, "fetch", "no downloader configured", nil)
		}
		o.setProgress(job.ID, jobs.StatusExtracting, "Downloading", "Fetching remote media", progressFetchStart)
		fetched, err := o.fetcher.Fetch(ctx, job.InputRef)
		if err != nil {
			return out, StageFetch, err
		}
		localPath = fetched
		o.setProgress(job.ID, jobs.StatusExtracting, "Downloading", "Download complete", progressFetched)
	} else {
		o.setProgress(job.ID, jobs.StatusExtracting, "Extracting audio", "Preparing local media", progressFetchStart)
	}

	audioPath, err := o.transcoder.Normalize(ctx, localPath)
	if err != nil {
		return out, StageNormalize, err
	}
	// The canonical audio is pipeline-owned and must not outlive the job; the
	// fetched source file stays behind for the cache.
	defer o.removeCanonicalAudio(logger, audioPath)

	report := o.validator.Check(ctx, audioPath)
	if !report.OK {
		return out, StageValidate, services.Wrap(services.ErrValidation, component, "validate", report.Reason, nil)
	}
	o.setProgress(job.ID, jobs.StatusTranscribing, "Transcribing", "Audio ready", progressAudioReady)

	chainResult, err := o.transcriber.Run(ctx, audioPath)
	if err != nil {
		return out, StageTranscribe, err
	}
	o.setProgress(job.ID, jobs.StatusSummarizing, "Summarizing",
		fmt.Sprintf("Transcribed via %s", chainResult.Engine), progressTranscribed)

	summary, err := o.summarizer.Summarize(ctx, chainResult.Text, opts)
	if err != nil {
		return out, StageSummarize, err
	}
	o.setProgress(job.ID, jobs.StatusSummarizing, "Summarizing", "Draft ready", progressDraft)

	out.result = jobs.Result{Transcript: chainResult.Text, Summary: summary}
	out.engine = chainResult.Engine
	return out, "", nil
}

func (o *Orchestrator) setProgress(id string, status jobs.Status, stage, message string, percent float64) {
	if err := o.registry.SetProgress(id, status, stage, message, percent); err != nil {
		o.logger.Warn("progress update failed",
			logging.String("job_id", id),
			logging.Error(err))
	}
}

func (o *Orchestrator) finishFailed(ctx context.Context, logger *slog.Logger, job jobs.Job, jobErr jobs.Error) {
	if err := o.registry.Fail(job.ID, jobErr); err != nil {
		logger.Error("record failure", logging.Error(err))
	}
	logger.Error("job failed",
		logging.String("stage", jobErr.Stage),
		logging.String("error_kind", string(jobErr.Kind)),
		logging.String("error_message", jobErr.Message))
	o.notifyFailed(ctx, job, jobErr)
}

func (o *Orchestrator) notifyCompleted(ctx context.Context, job jobs.Job, out jobOutput) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyJobCompleted(ctx, displaySource(job), out.engine, out.result.Summary); err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Debug("daemon shutting down, could not send completion notification")
		} else {
			o.logger.Debug("completion notification failed", logging.Error(err))
		}
	}
}

func (o *Orchestrator) notifyFailed(ctx context.Context, job jobs.Job, jobErr jobs.Error) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyJobFailed(ctx, displaySource(job), jobErr.Stage, jobErr.Message); err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			o.logger.Debug("failure notification failed", logging.Error(err))
		}
	}
}

// removeCanonicalAudio deletes the pipeline-owned intermediate on every exit
// path.
func (o *Orchestrator) removeCanonicalAudio(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove canonical audio",
			logging.String("path", path),
			logging.Error(err))
	}
}

// displaySource is the human-facing job reference used in notifications.
func displaySource(job jobs.Job) string {
	if job.Kind == jobs.KindFile {
		return filepath.Base(job.InputRef)
	}
	return job.InputRef
}
