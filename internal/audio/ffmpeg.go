package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	durationRe     = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
)

// FFmpegSplitter implements Splitter using ffmpeg CLI.
type FFmpegSplitter struct {
	ffmpegPath string
}

// NewFFmpegSplitter creates a new FFmpegSplitter.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegSplitter(ffmpegPath string) *FFmpegSplitter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegSplitter{ffmpegPath: ffmpegPath}
}

// Verify interface implementation at compile time.
var _ Splitter = (*FFmpegSplitter)(nil)

// silenceInterval represents a detected silence interval in the audio.
type silenceInterval struct {
	start float64
	end   float64
}

// segment is a [start, start+duration) slice of the input in seconds.
type segment struct {
	start    float64
	duration float64
}

// Split implements Splitter.Split using ffmpeg silencedetect and segment extraction.
func (s *FFmpegSplitter) Split(ctx context.Context, inputWav, outputDir string, opts SplitOpts) ([]string, error) {
	opts = opts.withDefaults()

	if _, err := os.Stat(inputWav); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputWav)
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	duration, err := s.duration(ctx, inputWav)
	if err != nil {
		return nil, fmt.Errorf("get audio duration: %w", err)
	}

	var points []float64
	if duration > float64(opts.ChunkTargetSec) {
		silences, err := s.detectSilences(ctx, inputWav, opts)
		if err != nil {
			return nil, fmt.Errorf("detect silences: %w", err)
		}
		points = calculateSplitPoints(silences, duration, opts.ChunkTargetSec)
	}

	chunks := make([]string, 0, len(points)+1)
	for i, seg := range segments(points, duration) {
		out := filepath.Join(outputDir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := s.run(ctx, ChunkArgs(inputWav, out, seg.start, seg.duration)); err != nil {
			for _, c := range chunks {
				_ = os.Remove(c)
			}
			return nil, fmt.Errorf("extract chunk %d: %w", i, err)
		}
		chunks = append(chunks, out)
	}
	return chunks, nil
}

// ChunkArgs returns the ffmpeg arguments that cut [start, start+duration)
// from src and write it to dst as 16 kHz mono 16-bit PCM.
func ChunkArgs(src, dst string, start, duration float64) []string {
	return []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", src,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dst,
	}
}

// duration returns the length of an audio file in seconds, read from the
// ffmpeg banner so no ffprobe binary is needed.
func (s *FFmpegSplitter) duration(ctx context.Context, path string) (float64, error) {
	stderr, err := s.analyse(ctx, "-i", path, "-hide_banner", "-f", "null", "-")
	if err != nil {
		return 0, err
	}
	return parseDuration(stderr)
}

// detectSilences uses ffmpeg silencedetect to find silence intervals.
func (s *FFmpegSplitter) detectSilences(ctx context.Context, path string, opts SplitOpts) ([]silenceInterval, error) {
	filter := fmt.Sprintf("silencedetect=noise=%gdB:d=%.3f",
		opts.SilenceThreshDB,
		float64(opts.MinSilenceMs)/1000.0,
	)
	stderr, err := s.analyse(ctx, "-i", path, "-af", filter, "-f", "null", "-hide_banner", "-")
	if err != nil {
		return nil, err
	}
	return parseSilenceOutput(stderr), nil
}

// analyse runs ffmpeg for its stderr report. A non-zero exit is tolerated
// as long as the context is live; parsing decides whether output is usable.
func (s *FFmpegSplitter) analyse(ctx context.Context, args ...string) (string, error) {
	// #nosec G204 - ffmpegPath is set by the application; args are never shell-interpreted
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil && ctx.Err() != nil {
		return "", fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
	}
	return stderr.String(), nil
}

func (s *FFmpegSplitter) run(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application; args are never shell-interpreted
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// parseDuration reads "Duration: HH:MM:SS.frac" from ffmpeg output.
func parseDuration(output string) (float64, error) {
	m := durationRe.FindStringSubmatch(output)
	if len(m) < 5 {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %s", output)
	}

	hours, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	seconds, _ := strconv.ParseFloat(m[3], 64)
	frac, _ := strconv.ParseFloat("0."+m[4], 64)

	return hours*3600 + minutes*60 + seconds + frac, nil
}

// parseSilenceOutput parses ffmpeg silencedetect output.
func parseSilenceOutput(output string) []silenceInterval {
	var intervals []silenceInterval
	var currentStart float64
	hasStart := false

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); len(m) > 1 {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				currentStart = max(v, 0)
				hasStart = true
			}
		}
		if m := silenceEndRe.FindStringSubmatch(line); len(m) > 1 && hasStart {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				intervals = append(intervals, silenceInterval{start: currentStart, end: v})
				hasStart = false
			}
		}
	}
	return intervals
}

// calculateSplitPoints picks cut points near every multiple of targetSec,
// preferring the middle of a nearby silence. Every chunk, the last one
// included, is longer than one second.
func calculateSplitPoints(silences []silenceInterval, totalDuration float64, targetSec int) []float64 {
	target := float64(targetSec)
	var points []float64
	last := 0.0

	for last+target < totalDuration-1 {
		ideal := last + target
		next := ideal
		if best := findBestSilence(silences, ideal, target/3); best != nil {
			if mid := (best.start + best.end) / 2; mid > last+1 && mid < totalDuration-1 {
				next = mid
			}
		}
		points = append(points, next)
		last = next
	}
	return points
}

// findBestSilence finds the silence interval closest to ideal within tolerance.
func findBestSilence(silences []silenceInterval, ideal, tolerance float64) *silenceInterval {
	var best *silenceInterval
	bestDistance := tolerance

	for i := range silences {
		mid := (silences[i].start + silences[i].end) / 2
		if mid < ideal-tolerance {
			continue
		}
		if mid > ideal+tolerance {
			break
		}
		if d := abs(mid - ideal); d < bestDistance {
			bestDistance = d
			best = &silences[i]
		}
	}
	return best
}

// segments turns cut points into consecutive segments covering the input.
func segments(points []float64, totalDuration float64) []segment {
	segs := make([]segment, 0, len(points)+1)
	start := 0.0
	for _, p := range points {
		segs = append(segs, segment{start: start, duration: p - start})
		start = p
	}
	return append(segs, segment{start: start, duration: totalDuration - start})
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
