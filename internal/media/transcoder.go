// Package media normalizes evidence clips into a widely playable
// container before delivery.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Transcoder converts a video file into the normalized target container.
type Transcoder interface {
	// Normalize transcodes srcPath into dstPath (H.264/AAC mp4 with a
	// fast-start layout). The source file is left in place.
	Normalize(ctx context.Context, srcPath, dstPath string) error
}

// FFmpeg shells out to an ffmpeg binary for transcoding.
type FFmpeg struct {
	// Path to the ffmpeg binary; "ffmpeg" resolves via PATH when empty.
	Path string
}

// Normalize runs ffmpeg with a faststart H.264/AAC profile so the result
// plays progressively on messaging clients.
func (f *FFmpeg) Normalize(ctx context.Context, srcPath, dstPath string) error {
	binary := f.Path
	if binary == "" {
		binary = "ffmpeg"
	}

	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("source clip: %w", err)
	}

	args := []string{
		"-i", srcPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-y",
		dstPath,
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}

	info, err := os.Stat(dstPath)
	if err != nil || info.Size() == 0 {
		os.Remove(dstPath)
		return fmt.Errorf("ffmpeg produced no output")
	}

	return nil
}

// lastLine trims ffmpeg's chatty stderr down to its final line, which is
// where the actual failure reason lands.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
