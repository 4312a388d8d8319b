// Package trigger owns the emergency trigger lifecycle: one attempt at a
// time through recording, sending and a short result display, with
// status changes observable by the tray and the web UI.
package trigger

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/anwesha/fivesense/internal/capability"
	"github.com/anwesha/fivesense/internal/store"
)

// Source identifies what fired a trigger.
type Source string

const (
	SourceManual  Source = "manual"
	SourceGesture Source = "gesture"
)

// State names one phase of the trigger lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateSending   State = "sending"
	StateSuccess   State = "success"
	StateError     State = "error"
)

// Status is the externally visible controller state.
type Status struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

// Timing defaults for one attempt.
const (
	DefaultClipDuration   = 5 * time.Second
	DefaultLocateTimeout  = 5 * time.Second
	DefaultSuccessDisplay = 4 * time.Second
	DefaultErrorDisplay   = 6 * time.Second
)

// ClipRecorder captures an evidence clip. capture.CameraRecorder is the
// production implementation.
type ClipRecorder interface {
	Record(ctx context.Context, duration time.Duration) ([]byte, string, error)
}

// Submission is one assembled evidence bundle headed for the relay.
type Submission struct {
	Latitude      string
	Longitude     string
	BatteryLevel  string
	BatteryStatus string
	Video         []byte
	VideoExt      string

	AccessToken   string
	PhoneNumberID string
	Recipients    string
}

// Submitter delivers a submission to the alert relay. A nil error means
// the relay accepted and fanned out the alert.
type Submitter interface {
	Submit(ctx context.Context, sub *Submission) error
}

// Config holds the controller's collaborators. Recorder, Battery and
// Locator may be nil; each degrades to its declared sentinel.
type Config struct {
	Recorder  ClipRecorder
	Battery   capability.Battery
	Locator   capability.Locator
	Settings  *store.SettingsRepository
	Submitter Submitter

	ClipDuration   time.Duration
	LocateTimeout  time.Duration
	SuccessDisplay time.Duration
	ErrorDisplay   time.Duration
}

// Controller runs emergency attempts. Triggers arriving while an attempt
// is recording or sending are dropped; a trigger during the result
// display starts a fresh attempt.
type Controller struct {
	recorder  ClipRecorder
	battery   capability.Battery
	locator   capability.Locator
	settings  *store.SettingsRepository
	submitter Submitter

	clipDuration   time.Duration
	locateTimeout  time.Duration
	successDisplay time.Duration
	errorDisplay   time.Duration

	mu     sync.Mutex
	status Status
	gen    int // bumped per attempt so stale display timers can't clobber
	subs   map[chan Status]struct{}
}

// New creates a Controller. Zero durations take the defaults.
func New(cfg Config) *Controller {
	c := &Controller{
		recorder:       cfg.Recorder,
		battery:        cfg.Battery,
		locator:        cfg.Locator,
		settings:       cfg.Settings,
		submitter:      cfg.Submitter,
		clipDuration:   cfg.ClipDuration,
		locateTimeout:  cfg.LocateTimeout,
		successDisplay: cfg.SuccessDisplay,
		errorDisplay:   cfg.ErrorDisplay,
		status:         Status{State: StateIdle},
		subs:           make(map[chan Status]struct{}),
	}
	if c.clipDuration <= 0 {
		c.clipDuration = DefaultClipDuration
	}
	if c.locateTimeout <= 0 {
		c.locateTimeout = DefaultLocateTimeout
	}
	if c.successDisplay <= 0 {
		c.successDisplay = DefaultSuccessDisplay
	}
	if c.errorDisplay <= 0 {
		c.errorDisplay = DefaultErrorDisplay
	}
	return c
}

// Status returns the current controller status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe registers a status listener. The returned cancel func must
// be called when the listener goes away. Slow listeners miss updates
// rather than blocking the controller.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 8)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, ch)
		c.mu.Unlock()
	}
	return ch, cancel
}

// Trigger starts an emergency attempt. Returns false when the attempt
// was dropped because another one is still recording or sending.
func (c *Controller) Trigger(source Source) bool {
	c.mu.Lock()
	if c.status.State == StateRecording || c.status.State == StateSending {
		c.mu.Unlock()
		return false
	}
	c.gen++
	gen := c.gen
	c.setStatusLocked(Status{State: StateRecording})
	c.mu.Unlock()

	log.Printf("Emergency trigger fired (source=%s)", source)
	go c.run(gen)
	return true
}

// run executes one attempt end to end. Every capability failure degrades
// to a sentinel; only the relay's verdict decides success or error.
func (c *Controller) run(gen int) {
	ctx := context.Background()

	var video []byte
	var videoExt string
	if c.recorder != nil {
		data, mimeType, err := c.recorder.Record(ctx, c.clipDuration)
		if err != nil {
			log.Printf("Evidence recording failed, sending alert without video: %v", err)
		} else {
			video = data
			videoExt = extForMimeType(mimeType)
		}
	}

	c.setStatus(Status{State: StateSending})

	lat, lon := c.locate(ctx)
	level, charging := c.readBattery(ctx)

	sub := &Submission{
		Latitude:      lat,
		Longitude:     lon,
		BatteryLevel:  level,
		BatteryStatus: charging,
		Video:         video,
		VideoExt:      videoExt,
		AccessToken:   c.setting(store.SettingAccessToken),
		PhoneNumberID: c.setting(store.SettingPhoneNumberID),
		Recipients:    c.setting(store.SettingRecipients),
	}

	if c.submitter == nil {
		c.finish(gen, Status{State: StateError, Error: "no alert relay configured"}, c.errorDisplay)
		return
	}

	err := c.submitter.Submit(ctx, sub)
	if err != nil {
		log.Printf("Alert submission failed: %v", err)
		c.finish(gen, Status{State: StateError, Error: err.Error()}, c.errorDisplay)
		return
	}
	c.finish(gen, Status{State: StateSuccess}, c.successDisplay)
}

// locate asks for a precise fix first, then retries once with relaxed
// accuracy. Both timing out yields the sentinel coordinates; the relay
// rejects alerts without coordinates, so a placeholder beats nothing.
func (c *Controller) locate(ctx context.Context) (string, string) {
	if c.locator == nil {
		return capability.SentinelCoordinate, capability.SentinelCoordinate
	}

	for _, highAccuracy := range []bool{true, false} {
		lctx, cancel := context.WithTimeout(ctx, c.locateTimeout)
		lat, lon, err := c.locator.Locate(lctx, highAccuracy)
		cancel()

		if err == nil && lat != "" && lon != "" {
			return lat, lon
		}
		if err == nil {
			err = errors.New("empty fix")
		}
		log.Printf("Location fix failed (highAccuracy=%v): %v", highAccuracy, err)
	}
	return capability.SentinelCoordinate, capability.SentinelCoordinate
}

func (c *Controller) readBattery(ctx context.Context) (string, string) {
	if c.battery == nil {
		return strconv.Itoa(capability.SentinelBatteryLevel), string(capability.ChargingUnknown)
	}
	level, charging, err := c.battery.Read(ctx)
	if err != nil {
		log.Printf("Battery read failed: %v", err)
		return strconv.Itoa(capability.SentinelBatteryLevel), string(capability.ChargingUnknown)
	}
	return strconv.Itoa(level), string(charging)
}

// setting reads one settings key, tolerating absence. Empty values are
// forwarded as-is; the relay decides what to do without credentials.
func (c *Controller) setting(key string) string {
	if c.settings == nil {
		return ""
	}
	value, err := c.settings.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to read setting %s: %v", key, err)
		}
		return ""
	}
	return value
}

// finish publishes the attempt result and schedules the return to idle.
// The timer only fires through if no newer attempt has started.
func (c *Controller) finish(gen int, status Status, display time.Duration) {
	c.setStatus(status)

	time.AfterFunc(display, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			return
		}
		c.setStatusLocked(Status{State: StateIdle})
	})
}

func (c *Controller) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStatusLocked(status)
}

func (c *Controller) setStatusLocked(status Status) {
	c.status = status
	for ch := range c.subs {
		select {
		case ch <- status:
		default:
		}
	}
}

func extForMimeType(mimeType string) string {
	switch mimeType {
	case "video/avi":
		return ".avi"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	default:
		return ".webm"
	}
}
