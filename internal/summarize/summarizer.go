package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recap/internal/logging"
	"recap/internal/services"
	"recap/internal/services/llm"
	"recap/internal/textutil"
)

const (
	component = "summarize"

	// DefaultMinInputWords rejects transcripts too short to summarize.
	DefaultMinInputWords = 50
	// DefaultChunkWords is the local-path chunk budget.
	DefaultChunkWords = 4000

	probeTimeout       = 10 * time.Second
	summaryTemperature = 0.3
)

// Length tiers.
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// Output formats.
const (
	FormatParagraph = "paragraph"
	FormatBullets   = "bullets"
	FormatNumbered  = "numbered"
	FormatKeyPoints = "key_points"
)

// Focus hints.
const (
	FocusKeyPoints = "key_points"
	FocusDetailed  = "detailed"
)

// Options describes one summarization request. The zero value means a
// medium-length paragraph with no focus hints.
type Options struct {
	Length   string
	Format   string
	Focus    []string
	MinWords int
	MaxWords int
}

func (o Options) normalized() Options {
	o.Length = strings.ToLower(strings.TrimSpace(o.Length))
	if o.Length == "" {
		o.Length = LengthMedium
	}
	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if o.Format == "" {
		o.Format = FormatParagraph
	}
	focus := make([]string, 0, len(o.Focus))
	for _, hint := range o.Focus {
		if hint = strings.ToLower(strings.TrimSpace(hint)); hint != "" {
			focus = append(focus, hint)
		}
	}
	o.Focus = focus
	return o
}

// Validate reports whether the options name known length, format, and focus
// values. Callers use it to reject bad requests before a job is enqueued.
func (o Options) Validate() error {
	return o.normalized().validate()
}

func (o Options) validate() error {
	switch o.Length {
	case LengthShort, LengthMedium, LengthLong:
	default:
		return services.Wrap(services.ErrValidation, component, "options",
			fmt.Sprintf("unknown length %q", o.Length), nil)
	}
	switch o.Format {
	case FormatParagraph, FormatBullets, FormatNumbered, FormatKeyPoints:
	default:
		return services.Wrap(services.ErrValidation, component, "options",
			fmt.Sprintf("unknown format %q", o.Format), nil)
	}
	for _, hint := range o.Focus {
		if hint != FocusKeyPoints && hint != FocusDetailed {
			return services.Wrap(services.ErrValidation, component, "options",
				fmt.Sprintf("unknown focus %q", hint), nil)
		}
	}
	return nil
}

// wordTargets returns the advisory word range for the request. Explicit
// bounds override the length tier.
func (o Options) wordTargets() (int, int) {
	minWords, maxWords := 150, 250
	switch o.Length {
	case LengthShort:
		minWords, maxWords = 50, 100
	case LengthLong:
		minWords, maxWords = 300, 500
	}
	if o.MinWords > 0 {
		minWords = o.MinWords
	}
	if o.MaxWords > 0 {
		maxWords = o.MaxWords
	}
	if maxWords < minWords {
		maxWords = minWords
	}
	return minWords, maxWords
}

// LLMBackend is the remote summarization surface; *llm.Client satisfies it.
type LLMBackend interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	HealthCheck(ctx context.Context) error
}

// Config captures the summarizer's tunables.
type Config struct {
	MinInputWords int
	ChunkWords    int
}

// Summarizer generates summaries with an optional remote backend and an
// always-available local fallback.
type Summarizer struct {
	minInputWords int
	chunkWords    int
	llm           LLMBackend
	logger        *slog.Logger
}

// Option customizes the summarizer.
type Option func(*Summarizer)

// WithLLM enables the remote backend.
func WithLLM(backend LLMBackend) Option {
	return func(s *Summarizer) {
		s.llm = backend
	}
}

// New constructs a summarizer from the supplied configuration.
func New(cfg Config, opts ...Option) *Summarizer {
	s := &Summarizer{
		minInputWords: cfg.MinInputWords,
		chunkWords:    cfg.ChunkWords,
		logger:        logging.NewNop(),
	}
	if s.minInputWords <= 0 {
		s.minInputWords = DefaultMinInputWords
	}
	if s.chunkWords <= 0 {
		s.chunkWords = DefaultChunkWords
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger attaches a structured logger.
func (s *Summarizer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s.logger = logging.NewComponentLogger(logger, component)
}

// LLMEnabled reports whether a remote backend is configured.
func (s *Summarizer) LLMEnabled() bool {
	return s != nil && s.llm != nil
}

// ProbeLLM checks remote backend reachability for health surfaces.
func (s *Summarizer) ProbeLLM(ctx context.Context) error {
	if s == nil || s.llm == nil {
		return services.Wrap(services.ErrUnavailable, component, "probe", "llm backend not configured", nil)
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.llm.HealthCheck(probeCtx)
}

// Summarize produces a formatted summary of the transcript. The remote
// backend is preferred; its failure falls through to the local pass silently.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts Options) (string, error) {
	const op = "summarize"
	text = strings.TrimSpace(text)
	if words := textutil.WordCount(text); words < s.minInputWords {
		return "", services.Wrap(services.ErrValidation, component, op,
			fmt.Sprintf("transcript has %d words, minimum is %d", words, s.minInputWords), nil)
	}
	opts = opts.normalized()
	if err := opts.validate(); err != nil {
		return "", err
	}

	var llmErr error
	if s.llm != nil {
		summary, err := s.summarizeWithLLM(ctx, text, opts)
		if err == nil {
			s.logger.Info("summary generated", logging.String("backend", "llm"))
			return applyFormat(summary, opts.Format), nil
		}
		llmErr = err
		s.logger.Warn("llm summarization failed, using local fallback", logging.Error(err))
	}

	summary, localErr := s.summarizeLocally(text, opts)
	if localErr != nil {
		if llmErr != nil {
			return "", services.Wrap(services.ErrUnavailable, component, op,
				fmt.Sprintf("llm backend: %v; local backend: %v", llmErr, localErr), nil)
		}
		return "", localErr
	}
	s.logger.Info("summary generated", logging.String("backend", "local"))
	return applyFormat(summary, opts.Format), nil
}

// summarizeWithLLM gates one completion behind a health probe. The remote
// model handles arbitrary transcript length itself, so no chunking here.
func (s *Summarizer) summarizeWithLLM(ctx context.Context, text string, opts Options) (string, error) {
	if err := s.ProbeLLM(ctx); err != nil {
		return "", fmt.Errorf("health probe: %w", err)
	}
	_, maxWords := opts.wordTargets()
	summary, err := s.llm.Complete(ctx, llm.Request{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   buildUserPrompt(text, opts),
		Temperature:  summaryTemperature,
		// Words-to-tokens headroom so the advisory bound never truncates
		// mid-sentence.
		MaxTokens: maxWords * 3,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", errors.New("backend returned an empty summary")
	}
	return summary, nil
}
