package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/anwesha/fivesense/internal/app"
	"github.com/anwesha/fivesense/internal/capability"
	"github.com/anwesha/fivesense/internal/capture"
	"github.com/anwesha/fivesense/internal/config"
	"github.com/anwesha/fivesense/internal/media"
	"github.com/anwesha/fivesense/internal/relay"
	"github.com/anwesha/fivesense/internal/server"
	"github.com/anwesha/fivesense/internal/store"
	"github.com/anwesha/fivesense/internal/tray"
	"github.com/anwesha/fivesense/internal/trigger"
)

func main() {
	fmt.Println("Fivesense - Emergency Alert Daemon")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir(), 0755); err != nil {
		log.Fatalf("Failed to create uploads directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	relaySvc := relay.New(relay.Config{
		Store:      st,
		UploadsDir: cfg.UploadsDir(),
		Transcoder: &media.FFmpeg{Path: cfg.FFmpegPath},
	})

	// Shared camera: the detection pipeline and the evidence recorder
	// read from the same device.
	camera := capture.NewCamera(cfg.CameraID)
	recorder := capture.NewCameraRecorder(camera, os.TempDir())

	controller := trigger.New(trigger.Config{
		Recorder:  recorder,
		Battery:   capability.NewSysfsBattery(""),
		Locator:   buildLocator(cfg),
		Settings:  st.Settings(),
		Submitter: &trigger.Client{BaseURL: localBaseURL(cfg.HTTPAddr)},
	})

	application := app.New(app.Config{
		CameraID:     cfg.CameraID,
		MotionThresh: cfg.MotionThreshold,
		Controller:   controller,
	})
	application.SetCamera(camera)
	application.SetEnabled(cfg.DetectionEnabled)

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		UploadsDir: cfg.UploadsDir(),
		Store:      st,
		Relay:      relaySvc,
		Controller: controller,
		Camera:     camera,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(cfg.HTTPAddr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := application.Start(); err != nil {
		log.Printf("Detection pipeline unavailable: %v", err)
	}

	// Mirror trigger status into the tray menu.
	trayUI := tray.New()
	go func() {
		updates, cancel := controller.Subscribe()
		defer cancel()
		for status := range updates {
			text := string(status.State)
			if status.Error != "" {
				text += ": " + status.Error
			}
			trayUI.SetStatus(text)
		}
	}()

	trayUI.OnTrigger(func() {
		if !controller.Trigger(trigger.SourceManual) {
			log.Println("Manual trigger dropped, an attempt is already in flight")
		}
	})
	trayUI.OnToggle(func(enabled bool) {
		application.SetEnabled(enabled)
	})
	trayUI.OnQuit(func() {
		application.Stop()
	})

	// Blocks until Quit is chosen from the menu.
	trayUI.Run()
}

// localBaseURL turns the listen address into a loopback URL the trigger
// controller can submit to.
func localBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}

// buildLocator picks the location source: an external helper command
// when configured, otherwise the fixed position. Nil means the trigger
// controller falls back to sentinel coordinates.
func buildLocator(cfg *config.Config) capability.Locator {
	if cfg.LocationCommand != "" {
		return &capability.ExecLocator{Command: cfg.LocationCommand}
	}
	if cfg.FixedLatitude != "" && cfg.FixedLongitude != "" {
		return &capability.FixedLocator{Lat: cfg.FixedLatitude, Lon: cfg.FixedLongitude}
	}
	return nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.fivesense/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".fivesense", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
