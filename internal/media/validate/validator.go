package validate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"recap/internal/logging"
	"recap/internal/media/ffprobe"
)

// Limits bound what the pipeline accepts as usable audio.
type Limits struct {
	MinBytes       int64
	MaxBytes       int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	MaxChannels    int
	MinSampleRate  int
	SilenceFloorDB float64
	QuietFloorDB   float64
	GainRescueDB   float64
	// Extensions whitelists source suffixes. Empty means any.
	Extensions []string
}

// DefaultLimits returns the thresholds the pipeline ships with.
func DefaultLimits() Limits {
	return Limits{
		MinBytes:       1024,
		MaxBytes:       2 << 30,
		MinDuration:    500 * time.Millisecond,
		MaxDuration:    2 * time.Hour,
		MaxChannels:    2,
		MinSampleRate:  8000,
		SilenceFloorDB: -90,
		QuietFloorDB:   -35,
		GainRescueDB:   12,
	}
}

// Report is the outcome of a validation pass. Check never fails; a broken or
// unreadable file simply produces an invalid report.
type Report struct {
	OK           bool
	Reason       string
	SizeBytes    int64
	Duration     time.Duration
	Channels     int
	SampleRate   int
	MeanVolumeDB float64
	VolumeProbed bool
	GainApplied  bool
}

// Validator inspects canonical audio files before they reach the engines.
type Validator struct {
	limits  Limits
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
	probe   func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	runner  func(ctx context.Context, name string, args ...string) (string, error)
}

// New creates a Validator with the provided limits and tool binaries.
func New(limits Limits, ffmpegBinary, ffprobeBinary string) *Validator {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Validator{
		limits:  limits,
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		logger:  logging.NewNop(),
		probe:   ffprobe.Inspect,
	}
}

// SetLogger attaches a component logger.
func (v *Validator) SetLogger(logger *slog.Logger) {
	v.logger = logging.NewComponentLogger(logger, "validator")
}

// WithProbe sets a custom container inspector (for testing).
func (v *Validator) WithProbe(probe func(ctx context.Context, binary, path string) (ffprobe.Result, error)) {
	v.probe = probe
}

// WithCommandRunner sets a custom command runner (for testing).
func (v *Validator) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	v.runner = runner
}

// IsValid reports whether the file is usable pipeline input.
func (v *Validator) IsValid(ctx context.Context, path string) bool {
	return v.Check(ctx, path).OK
}

// Check inspects the file against every limit. It never returns an error:
// internal failures come back as an invalid report with the failure as the
// reason. When loudness sits between the silence floor and the quiet floor,
// Check best-effort boosts gain in place; a failed boost is logged and
// swallowed, never a rejection by itself.
func (v *Validator) Check(ctx context.Context, path string) Report {
	report := Report{}

	path = strings.TrimSpace(path)
	if path == "" {
		return invalid(report, "empty path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return invalid(report, "file not found")
	}
	report.SizeBytes = info.Size()
	if info.Size() == 0 {
		return invalid(report, "file is empty")
	}
	if v.limits.MinBytes > 0 && info.Size() < v.limits.MinBytes {
		return invalid(report, fmt.Sprintf("file too small (%d bytes, minimum %d)", info.Size(), v.limits.MinBytes))
	}
	if v.limits.MaxBytes > 0 && info.Size() > v.limits.MaxBytes {
		return invalid(report, fmt.Sprintf("file too large (%d bytes, maximum %d)", info.Size(), v.limits.MaxBytes))
	}
	if len(v.limits.Extensions) > 0 && !extensionAllowed(path, v.limits.Extensions) {
		return invalid(report, fmt.Sprintf("extension %q not allowed", filepath.Ext(path)))
	}

	probed, err := v.probe(ctx, v.ffprobe, path)
	if err != nil {
		return invalid(report, fmt.Sprintf("container unreadable: %v", err))
	}
	stream, ok := probed.FirstAudio()
	if !ok {
		return invalid(report, "no audio stream")
	}

	report.Duration = time.Duration(probed.DurationSeconds() * float64(time.Second))
	report.Channels = stream.Channels
	report.SampleRate = stream.SampleRateHz()

	if v.limits.MinDuration > 0 && report.Duration < v.limits.MinDuration {
		return invalid(report, fmt.Sprintf("duration %.2fs below minimum %.2fs",
			report.Duration.Seconds(), v.limits.MinDuration.Seconds()))
	}
	if v.limits.MaxDuration > 0 && report.Duration > v.limits.MaxDuration {
		return invalid(report, fmt.Sprintf("duration %.0fs above maximum %.0fs",
			report.Duration.Seconds(), v.limits.MaxDuration.Seconds()))
	}
	if v.limits.MaxChannels > 0 && report.Channels > v.limits.MaxChannels {
		return invalid(report, fmt.Sprintf("%d channels exceeds maximum %d", report.Channels, v.limits.MaxChannels))
	}
	if v.limits.MinSampleRate > 0 && report.SampleRate < v.limits.MinSampleRate {
		return invalid(report, fmt.Sprintf("sample rate %d Hz below minimum %d Hz", report.SampleRate, v.limits.MinSampleRate))
	}

	mean, err := v.meanVolumeDB(ctx, path)
	if err != nil {
		return invalid(report, fmt.Sprintf("loudness probe failed: %v", err))
	}
	report.MeanVolumeDB = mean
	report.VolumeProbed = true

	if mean <= v.limits.SilenceFloorDB {
		return invalid(report, fmt.Sprintf("audio is silent (mean %.1f dBFS)", mean))
	}
	if mean < v.limits.QuietFloorDB && v.limits.GainRescueDB > 0 {
		if err := v.boostGain(ctx, path); err != nil {
			v.logger.Warn("gain rescue failed",
				logging.String("path", path),
				logging.Float64("mean_volume_db", mean),
				logging.Error(err),
			)
		} else {
			report.GainApplied = true
			v.logger.Info("boosted quiet audio",
				logging.String("path", path),
				logging.Float64("mean_volume_db", mean),
				logging.Float64("gain_db", v.limits.GainRescueDB),
			)
		}
	}

	report.OK = true
	return report
}

func invalid(report Report, reason string) Report {
	report.OK = false
	report.Reason = reason
	return report
}

func extensionAllowed(path string, allowed []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, candidate := range allowed {
		if ext == strings.ToLower(strings.TrimPrefix(strings.TrimSpace(candidate), ".")) {
			return true
		}
	}
	return false
}

var meanVolumePattern = regexp.MustCompile(`mean_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)

// meanVolumeDB measures mean loudness via ffmpeg's volumedetect filter.
func (v *Validator) meanVolumeDB(ctx context.Context, path string) (float64, error) {
	output, err := v.run(ctx, v.ffmpeg,
		"-hide_banner",
		"-i", path,
		"-af", "volumedetect",
		"-vn",
		"-f", "null",
		"-",
	)
	if err != nil {
		return 0, err
	}
	match := meanVolumePattern.FindStringSubmatch(output)
	if match == nil {
		return 0, fmt.Errorf("volumedetect output missing mean_volume")
	}
	return strconv.ParseFloat(match[1], 64)
}

// boostGain re-encodes with a volume boost into a sibling temp file, then
// replaces the original in place.
func (v *Validator) boostGain(ctx context.Context, path string) error {
	boosted := path + ".gain"
	_, err := v.run(ctx, v.ffmpeg,
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-af", fmt.Sprintf("volume=%.1fdB", v.limits.GainRescueDB),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		boosted,
	)
	if err != nil {
		os.Remove(boosted)
		return err
	}
	return os.Rename(boosted, path)
}

func (v *Validator) run(ctx context.Context, name string, args ...string) (string, error) {
	if v.runner != nil {
		return v.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}
