// Package transcribe runs an ordered chain of speech-to-text engines and
// picks the most complete result.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"recap/internal/logging"
	"recap/internal/services"
)

// Engine is a single speech-to-text backend.
type Engine interface {
	// Name identifies the engine in attempts, logs, and errors.
	Name() string
	// Transcribe converts the audio file to text.
	Transcribe(ctx context.Context, audioPath string) (string, error)
	// Available is a cheap configuration/dependency gate checked before each
	// attempt.
	Available(ctx context.Context) bool
}

// Normalizer re-encodes audio into the canonical layout; the chain uses it as
// a best-effort compatibility fixup before trying engines.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) (string, error)
}

// Attempt records one engine's outcome within a single chain run.
type Attempt struct {
	Engine string
	Text   string
	Err    error
}

// Result carries the winning transcription plus every attempt for diagnostics.
type Result struct {
	Text     string
	Engine   string
	Attempts []Attempt
}

// Chain tries engines in a fixed priority order. Engines are supplied at
// construction and never change afterwards.
type Chain struct {
	engines     []Engine
	normalizer  Normalizer
	attemptHook func(ctx context.Context, engine string, completed, total int)
	logger      *slog.Logger
}

// NewChain builds a chain over the supplied engines, in priority order.
func NewChain(engines []Engine, opts ...ChainOption) *Chain {
	chain := &Chain{
		engines: append([]Engine(nil), engines...),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// ChainOption customizes chain construction.
type ChainOption func(*Chain)

// WithNormalizer enables the pre-chain compatibility fixup.
func WithNormalizer(n Normalizer) ChainOption {
	return func(c *Chain) {
		c.normalizer = n
	}
}

// WithAttemptHook registers a callback invoked after each engine attempt,
// successful or not. Callers use it to advance job progress between engines;
// per-job state travels in the context.
func WithAttemptHook(hook func(ctx context.Context, engine string, completed, total int)) ChainOption {
	return func(c *Chain) {
		c.attemptHook = hook
	}
}

// SetLogger attaches a structured logger.
func (c *Chain) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(logger, "transcribe")
}

// Engines returns the configured engine names in priority order.
func (c *Chain) Engines() []string {
	names := make([]string, 0, len(c.engines))
	for _, engine := range c.engines {
		names = append(names, engine.Name())
	}
	return names
}

// Healthy reports whether at least one engine is currently available.
func (c *Chain) Healthy(ctx context.Context) bool {
	for _, engine := range c.engines {
		if engine.Available(ctx) {
			return true
		}
	}
	return false
}

// Run transcribes the audio file. Every engine failure is recorded in the
// returned attempts and never aborts the chain; among successful attempts the
// longest trimmed text wins regardless of engine priority. When no engine
// produces text the error concatenates each engine's failure reason.
func (c *Chain) Run(ctx context.Context, audioPath string) (Result, error) {
	var result Result
	if len(c.engines) == 0 {
		return result, services.Wrap(services.ErrConfiguration, "transcribe", "run", "no engines configured", nil)
	}

	audioPath, cleanup := c.fixupAudio(ctx, audioPath)
	defer cleanup()

	result.Attempts = make([]Attempt, 0, len(c.engines))
	for i, engine := range c.engines {
		attempt := c.tryEngine(ctx, engine, audioPath)
		result.Attempts = append(result.Attempts, attempt)
		if c.attemptHook != nil {
			c.attemptHook(ctx, attempt.Engine, i+1, len(c.engines))
		}
		if attempt.Err != nil {
			c.logger.Warn("engine attempt failed",
				logging.String("engine", attempt.Engine),
				logging.Error(attempt.Err))
			continue
		}
		c.logger.Info("engine attempt succeeded",
			logging.String("engine", attempt.Engine),
			logging.Int("chars", utf8.RuneCountInString(attempt.Text)))
	}

	winner := selectWinner(result.Attempts)
	if winner < 0 {
		return result, fmt.Errorf("all transcription engines failed: %s", joinFailureReasons(result.Attempts))
	}
	result.Text = result.Attempts[winner].Text
	result.Engine = result.Attempts[winner].Engine
	c.logger.Info("transcription selected",
		logging.String("engine", result.Engine),
		logging.Int("chars", utf8.RuneCountInString(result.Text)))
	return result, nil
}

// fixupAudio best-effort re-encodes the input so every engine sees the
// canonical layout. Any failure keeps the original path; the returned cleanup
// removes the re-encoded file once the chain is done with it.
func (c *Chain) fixupAudio(ctx context.Context, audioPath string) (string, func()) {
	noop := func() {}
	if c.normalizer == nil {
		return audioPath, noop
	}
	fixed, err := c.normalizer.Normalize(ctx, audioPath)
	if err != nil {
		c.logger.Debug("compatibility fixup skipped",
			logging.String("audio", audioPath),
			logging.Error(err))
		return audioPath, noop
	}
	c.logger.Debug("compatibility fixup applied", logging.String("audio", fixed))
	return fixed, func() {
		if removeErr := os.Remove(fixed); removeErr != nil && !os.IsNotExist(removeErr) {
			c.logger.Warn("remove fixup audio", logging.Error(removeErr))
		}
	}
}

func (c *Chain) tryEngine(ctx context.Context, engine Engine, audioPath string) (attempt Attempt) {
	attempt.Engine = engine.Name()
	defer func() {
		if r := recover(); r != nil {
			attempt.Text = ""
			attempt.Err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	if !engine.Available(ctx) {
		attempt.Err = services.Wrap(services.ErrUnavailable, attempt.Engine, "transcribe", "engine not available", nil)
		return attempt
	}
	text, err := engine.Transcribe(ctx, audioPath)
	if err != nil {
		attempt.Err = err
		return attempt
	}
	text = strings.TrimSpace(text)
	if text == "" {
		attempt.Err = services.Wrap(services.ErrExternalTool, attempt.Engine, "transcribe", "empty transcription", nil)
		return attempt
	}
	attempt.Text = text
	return attempt
}

// selectWinner returns the index of the attempt with the longest text, or -1
// when no attempt produced text. Length is counted in characters so the
// heuristic is stable across scripts.
func selectWinner(attempts []Attempt) int {
	winner := -1
	best := 0
	for i, attempt := range attempts {
		if attempt.Err != nil || attempt.Text == "" {
			continue
		}
		if length := utf8.RuneCountInString(attempt.Text); length > best {
			best = length
			winner = i
		}
	}
	return winner
}

func joinFailureReasons(attempts []Attempt) string {
	reasons := make([]string, 0, len(attempts))
	for _, attempt := range attempts {
		if attempt.Err == nil {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s: %v", attempt.Engine, attempt.Err))
	}
	if len(reasons) == 0 {
		return "no engines attempted"
	}
	return strings.Join(reasons, "; ")
}
