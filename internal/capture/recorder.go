package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Recording settings. MJPG in an AVI container writes without an ffmpeg
// build of OpenCV; the relay normalizes the container afterwards.
const (
	RecordFPS      = 15
	RecordCodec    = "MJPG"
	RecordMimeType = "video/avi"
)

// CameraRecorder captures a fixed-duration evidence clip from a Camera.
// The camera is shared with the detection pipeline; ReadFrame is
// serialized by the camera itself so concurrent use is safe.
type CameraRecorder struct {
	camera Camera
	tmpDir string
}

// NewCameraRecorder creates a recorder reading from the given camera.
// Clips are staged under tmpDir; an empty tmpDir uses the OS default.
func NewCameraRecorder(camera Camera, tmpDir string) *CameraRecorder {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &CameraRecorder{camera: camera, tmpDir: tmpDir}
}

// Record captures frames for the given duration and returns the encoded
// clip bytes plus a container mime hint. Recording stops early when the
// context is cancelled; whatever was captured so far is returned.
func (r *CameraRecorder) Record(ctx context.Context, duration time.Duration) ([]byte, string, error) {
	if !r.camera.IsOpen() {
		if err := r.camera.Open(); err != nil {
			return nil, "", fmt.Errorf("open camera: %w", err)
		}
		defer r.camera.Close()
	}

	first, err := r.camera.ReadFrame()
	if err != nil {
		return nil, "", fmt.Errorf("read first frame: %w", err)
	}

	path := filepath.Join(r.tmpDir, "clip-"+uuid.New().String()+".avi")
	writer, err := gocv.VideoWriterFile(path, RecordCodec, float64(RecordFPS), first.Cols(), first.Rows(), true)
	if err != nil {
		first.Close()
		return nil, "", fmt.Errorf("create video writer: %w", err)
	}

	writeErr := writer.Write(*first)
	first.Close()
	if writeErr != nil {
		writer.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("write frame: %w", writeErr)
	}

	deadline := time.Now().Add(duration)
	ticker := time.NewTicker(time.Second / RecordFPS)
	defer ticker.Stop()

loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			frame, err := r.camera.ReadFrame()
			if err != nil {
				// A dropped frame doesn't spoil the clip.
				continue
			}
			err = writer.Write(*frame)
			frame.Close()
			if err != nil {
				break loop
			}
		}
	}

	if err := writer.Close(); err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("finalize clip: %w", err)
	}

	data, err := os.ReadFile(path)
	os.Remove(path)
	if err != nil {
		return nil, "", fmt.Errorf("read clip: %w", err)
	}

	return data, RecordMimeType, nil
}
