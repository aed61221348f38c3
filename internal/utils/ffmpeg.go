// Package utils holds the ffmpeg/ffprobe subprocess helper, adapted from
// the teacher's video FFmpegHelper down to the audio-only operations this
// pipeline needs: normalize, probe duration, and cut clips.
package utils

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegHelper wraps ffmpeg/ffprobe subprocess invocations.
type FFmpegHelper struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

// NewFFmpegHelper verifies ffmpeg/ffprobe are on PATH and ensures tempDir
// exists, exactly as the teacher's constructor does.
func NewFFmpegHelper(tempDir string) (*FFmpegHelper, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &FFmpegHelper{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		tempDir:     tempDir,
	}, nil
}

// NormalizeToWAV converts an arbitrary input container to mono, 16 kHz,
// 16-bit signed little-endian PCM WAV — the Audio Extractor's whole job
// (spec §2, "Normalized WAV format").
func (h *FFmpegHelper) NormalizeToWAV(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, h.ffmpegPath,
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("audio normalization failed: %w: %s", err, truncate(output, 2048))
	}

	return nil
}

// CutClip extracts `[start, start+duration)` from inputPath into
// outputPath, preserving the source's PCM format. Used by the Chunker (to
// slice overlapping windows) and the Speaker Splitter (to slice final
// segments).
func (h *FFmpegHelper) CutClip(ctx context.Context, inputPath string, start, duration float64, outputPath string) error {
	cmd := exec.CommandContext(ctx, h.ffmpegPath,
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("clip extraction [%.3f,+%.3f) failed: %w: %s", start, duration, err, truncate(output, 2048))
	}

	return nil
}

// GetAudioDuration probes a WAV/audio file's duration in seconds via
// ffprobe, the same idiom as the teacher's GetVideoDuration.
func (h *FFmpegHelper) GetAudioDuration(ctx context.Context, audioPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, h.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to get audio duration: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse audio duration %q: %w", durationStr, err)
	}

	return duration, nil
}

// ValidateAudio checks that a file is a readable media stream before the
// pipeline commits resources to it.
func (h *FFmpegHelper) ValidateAudio(ctx context.Context, audioPath string) error {
	cmd := exec.CommandContext(ctx, h.ffprobePath,
		"-v", "error",
		audioPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("invalid audio file: %w: %s", err, truncate(output, 2048))
	}
	return nil
}

// Cleanup removes temporary files, tolerating already-missing paths.
func (h *FFmpegHelper) Cleanup(paths ...string) error {
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", path, err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(truncated)"
}
