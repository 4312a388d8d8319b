package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/anwesha/fivesense/internal/detector"
	"github.com/anwesha/fivesense/internal/gesture"
	"github.com/anwesha/fivesense/internal/trigger"
)

// countingSubmitter records accepted submissions.
type countingSubmitter struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSubmitter) Submit(ctx context.Context, sub *trigger.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func (s *countingSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestApp_EnableDisableResetsDebounce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := New(Config{CameraID: 0})

	if app.IsEnabled() {
		t.Error("detection should start disabled")
	}
	app.SetEnabled(true)
	if !app.IsEnabled() {
		t.Error("SetEnabled(true) not reflected")
	}
	app.SetEnabled(false)
	if app.IsEnabled() {
		t.Error("SetEnabled(false) not reflected")
	}
}

func TestApp_OpenHandFiresTrigger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	submitter := &countingSubmitter{}
	controller := trigger.New(trigger.Config{
		Submitter:      submitter,
		SuccessDisplay: 10 * time.Millisecond,
	})

	app := New(Config{
		CameraID:     0,
		Controller:   controller,
		Confirmation: 10 * time.Millisecond,
	})

	// Mock detector returning a single open palm
	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	app.SetDetector(mockDetector)
	app.SetEnabled(true)

	// Exercise the classification path the pipeline runs per frame
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	hands, err := app.Detector().Detect(&frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got := gesture.CountAllFingers(hands); got != 5 {
		t.Fatalf("CountAllFingers() = %d, want 5", got)
	}

	// Sustained observations cross the debounce window and fire
	fired := false
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if app.debouncer.Observe(gesture.CountAllFingers(hands)) {
			fired = true
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !fired {
		t.Fatal("sustained open hand never fired the debouncer")
	}

	if !controller.Trigger(trigger.SourceGesture) {
		t.Fatal("controller dropped the trigger from idle")
	}

	deadline = time.Now().Add(2 * time.Second)
	for submitter.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if submitter.count() != 1 {
		t.Errorf("submissions = %d, want 1", submitter.count())
	}
}

func TestApp_ClosedFistNeverFires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := New(Config{CameraID: 0})

	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	app.SetDetector(mockDetector)
	app.SetEnabled(true)

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	hands, err := app.Detector().Detect(&frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	for i := 0; i < 50; i++ {
		if app.debouncer.Observe(gesture.CountAllFingers(hands)) {
			t.Fatal("closed fist fired the debouncer")
		}
		time.Sleep(time.Millisecond)
	}
}
