package capture

import (
	"context"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestCameraRecorder_RecordsClip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV video encoding")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	rec := NewCameraRecorder(cam, t.TempDir())

	data, mime, err := rec.Record(context.Background(), 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("recorded clip is empty")
	}
	if mime != RecordMimeType {
		t.Errorf("mime = %q, want %q", mime, RecordMimeType)
	}

	// The mock camera was opened by the recorder and must be released.
	if cam.IsOpen() {
		t.Error("recorder left the camera open")
	}
}

func TestCameraRecorder_CancelStopsEarly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV video encoding")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	rec := NewCameraRecorder(cam, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	data, _, err := rec.Record(ctx, 10*time.Second)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancelled recording took %v", elapsed)
	}
	if len(data) == 0 {
		t.Error("cancelled recording should still return captured frames")
	}
}

func TestCameraRecorder_CameraFailure(t *testing.T) {
	cam := NewMockCamera(nil, false)
	rec := NewCameraRecorder(cam, t.TempDir())

	// Camera opens but has no frames to serve.
	if _, _, err := rec.Record(context.Background(), time.Second); err == nil {
		t.Error("expected error when camera yields no frames")
	}
}
