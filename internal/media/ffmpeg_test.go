package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

// writeFakeBinary writes an executable shell script standing in for ffmpeg/ffprobe.
func writeFakeBinary(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

// recordingFFmpeg returns a fake ffmpeg that writes each argument on its own line.
func recordingFFmpeg(t *testing.T) (binary, argsFile string) {
	t.Helper()
	argsFile = filepath.Join(t.TempDir(), "args.txt")
	t.Setenv("FAKE_FFMPEG_ARGS", argsFile)
	binary = writeFakeBinary(t, `printf '%s\n' "$@" > "$FAKE_FFMPEG_ARGS"`)
	return binary, argsFile
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// createTestVideo creates a small video with a sine audio track using ffmpeg.
func createTestVideo(t *testing.T, path string, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=%dx%d:d=1", width, height),
		"-f", "lavfi",
		"-i", "sine=frequency=440:duration=1",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegProcessor(t *testing.T) {
	t.Run("default paths", func(t *testing.T) {
		p := NewFFmpegProcessor("")
		if p.ffmpegPath != "ffmpeg" {
			t.Errorf("expected default path 'ffmpeg', got %q", p.ffmpegPath)
		}
		if p.ffprobePath != "ffprobe" {
			t.Errorf("expected default path 'ffprobe', got %q", p.ffprobePath)
		}
	})

	t.Run("custom paths", func(t *testing.T) {
		p := NewFFmpegProcessor("/usr/local/bin/ffmpeg", WithFFprobePath("/usr/local/bin/ffprobe"))
		if p.ffmpegPath != "/usr/local/bin/ffmpeg" {
			t.Errorf("expected custom path, got %q", p.ffmpegPath)
		}
		if p.ffprobePath != "/usr/local/bin/ffprobe" {
			t.Errorf("expected custom ffprobe path, got %q", p.ffprobePath)
		}
	})
}

func TestResizeArgs(t *testing.T) {
	got := ResizeArgs("/data/s1/uploaded_video.mp4", "/data/s1/resized_uploaded_video.mp4", 720)
	want := []string{
		"-y",
		"-i", "/data/s1/uploaded_video.mp4",
		"-vf", "scale=-2:720",
		"/data/s1/resized_uploaded_video.mp4",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("ResizeArgs() = %v, want %v", got, want)
	}
}

func TestExtractAudioArgs(t *testing.T) {
	got := ExtractAudioArgs("in.mp4", "output_audio.wav")
	want := []string{
		"-y",
		"-i", "in.mp4",
		"-acodec", "pcm_s24le",
		"-ar", "48000",
		"-q:a", "0",
		"-map", "a",
		"output_audio.wav",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("ExtractAudioArgs() = %v, want %v", got, want)
	}
}

func TestResize_InvokesFFmpegWithExpectedArgs(t *testing.T) {
	binary, argsFile := recordingFFmpeg(t)
	p := NewFFmpegProcessor(binary)

	// Filenames with spaces and shell metacharacters must reach ffmpeg untouched.
	src := "/videos/my clip; rm -rf x.mp4"
	dst := "/videos/resized_my clip; rm -rf x.mp4"

	if err := p.Resize(context.Background(), src, dst, 720); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}

	got := readArgs(t, argsFile)
	want := ResizeArgs(src, dst, 720)
	if len(got) != len(want) {
		t.Fatalf("got %d args %v, want %d args %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractAudio_InvokesFFmpegWithExpectedArgs(t *testing.T) {
	binary, argsFile := recordingFFmpeg(t)
	p := NewFFmpegProcessor(binary)

	if err := p.ExtractAudio(context.Background(), "in.mp4", "out.wav"); err != nil {
		t.Fatalf("ExtractAudio() error = %v", err)
	}

	got := readArgs(t, argsFile)
	if strings.Join(got, " ") != strings.Join(ExtractAudioArgs("in.mp4", "out.wav"), " ") {
		t.Errorf("unexpected args: %v", got)
	}
}

func TestResize_InvalidHeight(t *testing.T) {
	p := NewFFmpegProcessor("")
	for _, h := range []int{0, -1, -720} {
		err := p.Resize(context.Background(), "in.mp4", "out.mp4", h)
		if !errors.Is(err, ErrInvalidHeight) {
			t.Errorf("Resize(height=%d) error = %v, want ErrInvalidHeight", h, err)
		}
	}
}

func TestRunFFmpeg_FailureReturnsFFmpegError(t *testing.T) {
	binary := writeFakeBinary(t, `echo "Invalid data found when processing input" >&2; exit 1`)
	p := NewFFmpegProcessor(binary)

	err := p.ExtractAudio(context.Background(), "broken.mp4", "out.wav")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var ffErr *FFmpegError
	if !errors.As(err, &ffErr) {
		t.Fatalf("expected FFmpegError, got %T", err)
	}
	if !strings.Contains(ffErr.Stderr, "Invalid data found") {
		t.Errorf("stderr not captured: %q", ffErr.Stderr)
	}
	if ffErr.Args[2] != "broken.mp4" {
		t.Errorf("args not captured: %v", ffErr.Args)
	}
}

func TestRunFFmpeg_ContextCancelled(t *testing.T) {
	binary := writeFakeBinary(t, `sleep 5`)
	p := NewFFmpegProcessor(binary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Resize(ctx, "in.mp4", "out.mp4", 720)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGetMediaDuration_FakeProbe(t *testing.T) {
	probe := writeFakeBinary(t, `echo "12.480000"`)
	p := NewFFmpegProcessor("", WithFFprobePath(probe))

	d, err := p.GetMediaDuration(context.Background(), "any.mp4")
	if err != nil {
		t.Fatalf("GetMediaDuration() error = %v", err)
	}
	if d != 12.48 {
		t.Errorf("duration = %v, want 12.48", d)
	}
}

func TestGetMediaDuration_ProbeFailure(t *testing.T) {
	probe := writeFakeBinary(t, `echo "no such file" >&2; exit 1`)
	p := NewFFmpegProcessor("", WithFFprobePath(probe))

	_, err := p.GetMediaDuration(context.Background(), "missing.mp4")
	if !errors.Is(err, ErrFFprobeExecution) {
		t.Errorf("expected ErrFFprobeExecution, got %v", err)
	}
}

func TestFFmpegError(t *testing.T) {
	err := &FFmpegError{
		Args:   []string{"-i", "input.mp4", "-vf", "scale=-2:720", "output.mp4"},
		Stderr: "Error opening input file",
		Err:    fmt.Errorf("exit status 1"),
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "exit status 1") {
		t.Error("Error() should contain underlying error")
	}
	if !strings.Contains(errStr, "Error opening input file") {
		t.Error("Error() should contain stderr")
	}

	unwrapped := err.Unwrap()
	if unwrapped == nil || unwrapped.Error() != "exit status 1" {
		t.Errorf("Unwrap() returned wrong error: %v", unwrapped)
	}
}

func TestResize_RealFFmpeg(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	p := NewFFmpegProcessor("")
	ctx := context.Background()

	src := filepath.Join(tmpDir, "uploaded_video.mp4")
	dst := filepath.Join(tmpDir, "resized_uploaded_video.mp4")
	createTestVideo(t, src, 320, 240)

	if err := p.Resize(ctx, src, dst, 120); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}

	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		dst,
	)
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("ffprobe failed: %v", err)
	}

	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%dx%d", &w, &h); err != nil {
		t.Fatalf("failed to parse dimensions: %s", output)
	}
	if w != 160 || h != 120 {
		t.Errorf("expected 160x120, got %dx%d", w, h)
	}
}

func TestExtractAudio_RealFFmpeg(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	p := NewFFmpegProcessor("")
	ctx := context.Background()

	src := filepath.Join(tmpDir, "uploaded_video.mp4")
	dst := filepath.Join(tmpDir, "output_audio.wav")
	createTestVideo(t, src, 64, 64)

	if err := p.ExtractAudio(ctx, src, dst); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}

	d, err := p.GetMediaDuration(ctx, dst)
	if err != nil {
		t.Fatalf("GetMediaDuration failed: %v", err)
	}
	if d < 0.9 || d > 1.1 {
		t.Errorf("expected ~1s of audio, got %.2f", d)
	}
}
