package app

import (
	"log"
	"time"

	"github.com/anwesha/fivesense/internal/gesture"
	"github.com/anwesha/fivesense/internal/trigger"
)

// runPipeline is the main detection loop that processes frames from the
// camera. It manages the state transitions between idle and active modes
// based on motion detection.
//
// Pipeline logic:
// 1. Start in idle mode (idleFPS=5)
// 2. On motion detected, switch to active mode (activeFPS=15)
// 3. Run hand detection
// 4. Sum extended fingers across detected hands
// 5. Feed the count through the debouncer
// 6. Fire the emergency trigger on a confirmed open hand
// 7. After 2s no motion, switch back to idle mode
func (a *App) runPipeline(stopCh <-chan struct{}) {
	// Track whether we're in active mode
	activeMode := false

	// Track the last motion detection time
	lastMotionTime := time.Now()

	// Frame interval based on current FPS
	frameInterval := time.Second / time.Duration(IdleFPS)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			// Read a frame from the camera
			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			// Step 1: Motion detection
			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()

				// Switch to active mode if not already
				if !activeMode {
					activeMode = true
					a.camera.SetFPS(ActiveFPS)
					frameInterval = time.Second / time.Duration(ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to active mode")
				}
			} else if activeMode {
				// Check if we should switch back to idle mode
				if time.Since(lastMotionTime) > time.Duration(IdleTimeoutMs)*time.Millisecond {
					activeMode = false
					a.camera.SetFPS(IdleFPS)
					frameInterval = time.Second / time.Duration(IdleFPS)
					ticker.Reset(frameInterval)
					a.debouncer.Reset()
					log.Println("Switched to idle mode")
				}
			}

			// Skip further processing if not in active mode or no detector
			detector := a.Detector()
			if !activeMode || detector == nil {
				frame.Close()
				continue
			}

			// Step 2: Hand detection
			hands, err := detector.Detect(frame)
			frame.Close() // Done with the frame

			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				continue
			}

			// Step 3: Count extended fingers and debounce
			count := gesture.CountAllFingers(hands)
			if !a.debouncer.Observe(count) {
				continue
			}

			// Step 4: Confirmed open hand, fire the emergency trigger
			log.Printf("Open hand confirmed (%d fingers), triggering emergency", count)
			if a.controller != nil {
				if !a.controller.Trigger(trigger.SourceGesture) {
					log.Println("Trigger dropped, an attempt is already in flight")
				}
			}
		}
	}
}
