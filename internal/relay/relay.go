// Package relay receives evidence bundles, persists the incident record
// and fans the alert out to the configured recipients.
package relay

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anwesha/fivesense/internal/media"
	"github.com/anwesha/fivesense/internal/store"
	"github.com/anwesha/fivesense/internal/whatsapp"
)

// ErrorLocationMissing is the validation error returned when a bundle
// arrives without coordinates.
const ErrorLocationMissing = "Location data missing"

// Bundle is one submitted evidence bundle.
type Bundle struct {
	Latitude      string
	Longitude     string
	BatteryLevel  string // "100" sentinel when absent
	BatteryStatus string // "Unknown" sentinel when absent
	Video         []byte // empty means no video evidence
	VideoExt      string // extension hint from the upload, e.g. ".webm"

	AccessToken   string
	PhoneNumberID string
	Recipients    string // comma-separated
}

// Result is the outcome of one relay attempt.
type Result struct {
	Success bool
	Error   string
}

// MessengerFactory builds a messenger for the credentials carried by a
// bundle. Tests substitute a fake.
type MessengerFactory func(accessToken, phoneNumberID string) whatsapp.Messenger

// Config holds the relay's collaborators.
type Config struct {
	Store      *store.Store
	UploadsDir string
	Transcoder media.Transcoder
	Messenger  MessengerFactory
}

// Service processes evidence bundles.
type Service struct {
	store      *store.Store
	uploadsDir string
	transcoder media.Transcoder
	messenger  MessengerFactory
}

// New creates a relay Service. A nil Messenger factory defaults to real
// WhatsApp Cloud API clients.
func New(cfg Config) *Service {
	messenger := cfg.Messenger
	if messenger == nil {
		messenger = func(accessToken, phoneNumberID string) whatsapp.Messenger {
			return whatsapp.NewClient(whatsapp.Config{
				AccessToken:   accessToken,
				PhoneNumberID: phoneNumberID,
			})
		}
	}
	return &Service{
		store:      cfg.Store,
		uploadsDir: cfg.UploadsDir,
		transcoder: cfg.Transcoder,
		messenger:  messenger,
	}
}

// evidenceFile describes the on-disk clip after normalization.
type evidenceFile struct {
	path       string // file to upload
	origPath   string // pre-transcode original ("" if none kept separately)
	mimeType   string
	uploadName string
	msgType    string // whatsapp media message type
	videoURL   string
}

// Process runs one relay attempt: validate, normalize media, persist the
// history record, then fan out. The history write is never rolled back;
// the overall result is a failure iff any send or upload failed.
func (s *Service) Process(ctx context.Context, b *Bundle) Result {
	if b.Latitude == "" || b.Longitude == "" {
		return Result{Success: false, Error: ErrorLocationMissing}
	}

	if b.BatteryLevel == "" {
		b.BatteryLevel = "100"
	}
	if b.BatteryStatus == "" {
		b.BatteryStatus = "Unknown"
	}

	evidence := s.prepareEvidence(ctx, b)
	defer s.cleanup(evidence)

	record := &store.Alert{
		Timestamp:     time.Now().Format(store.TimestampLayout),
		Latitude:      b.Latitude,
		Longitude:     b.Longitude,
		BatteryLevel:  b.BatteryLevel,
		BatteryStatus: b.BatteryStatus,
	}
	if evidence != nil {
		record.VideoURL = &evidence.videoURL
	}
	if _, err := s.store.Alerts().Insert(record); err != nil {
		// The incident record is the one thing this service must not
		// lose; failing to write it fails the whole attempt.
		return Result{Success: false, Error: fmt.Sprintf("persist alert: %v", err)}
	}

	text := BuildAlertText(b.Latitude, b.Longitude, b.BatteryLevel, b.BatteryStatus)
	recipients := ParseRecipients(b.Recipients)
	msgr := s.messenger(b.AccessToken, b.PhoneNumberID)

	var errs []string

	for _, recipient := range recipients {
		if err := msgr.SendText(ctx, recipient, text); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", recipient, err))
		}
	}

	if evidence != nil {
		errs = append(errs, s.sendEvidence(ctx, msgr, recipients, evidence)...)
	}

	if len(errs) > 0 {
		return Result{Success: false, Error: strings.Join(errs, " | ")}
	}
	return Result{Success: true}
}

// prepareEvidence stages the clip on disk and normalizes its container.
// Returns nil when the bundle carries no video. Transcoding failure keeps
// the original bytes rather than discarding the evidence.
func (s *Service) prepareEvidence(ctx context.Context, b *Bundle) *evidenceFile {
	if len(b.Video) == 0 {
		return nil
	}

	ext := strings.ToLower(b.VideoExt)
	if ext == "" {
		ext = ".webm"
	}

	key := uuid.New().String()
	origPath := filepath.Join(s.uploadsDir, key+ext)
	if err := os.WriteFile(origPath, b.Video, 0644); err != nil {
		log.Printf("Failed to stage video evidence: %v", err)
		return nil
	}

	mp4Path := filepath.Join(s.uploadsDir, key+".mp4")
	if s.transcoder != nil {
		if err := s.transcoder.Normalize(ctx, origPath, mp4Path); err == nil {
			return &evidenceFile{
				path:       mp4Path,
				origPath:   origPath,
				mimeType:   "video/mp4",
				uploadName: "Emergency_Video.mp4",
				msgType:    whatsapp.MediaTypeVideo,
				videoURL:   "/uploads/" + key + ".mp4",
			}
		} else {
			log.Printf("Transcode failed, falling back to original container: %v", err)
		}
	}

	// Providers restrict inline playback to specific encodings, so the
	// unconverted clip goes out as a document instead.
	return &evidenceFile{
		path:       origPath,
		mimeType:   mimeTypeForExt(ext),
		uploadName: "Emergency_Video" + ext,
		msgType:    whatsapp.MediaTypeDocument,
		videoURL:   "/uploads/" + key + ext,
	}
}

// sendEvidence uploads the clip once and sends the resulting media id to
// every recipient. An upload failure is one aggregate error and skips the
// per-recipient sends; text alerts already sent are not retracted.
func (s *Service) sendEvidence(ctx context.Context, msgr whatsapp.Messenger, recipients []string, ev *evidenceFile) []string {
	file, err := os.Open(ev.path)
	if err != nil {
		return []string{fmt.Sprintf("Video Upload failed: %v", err)}
	}
	defer file.Close()

	mediaID, err := msgr.UploadMedia(ctx, ev.uploadName, ev.mimeType, file)
	if err != nil {
		return []string{fmt.Sprintf("Video Upload failed: %v", err)}
	}

	var errs []string
	for _, recipient := range recipients {
		if err := msgr.SendMediaByID(ctx, recipient, mediaID, ev.msgType, ev.uploadName); err != nil {
			errs = append(errs, fmt.Sprintf("%s: Video send failed (%v)", recipient, err))
		}
	}
	return errs
}

// cleanup removes the staged clip files. Best effort: failures are
// logged, never surfaced.
func (s *Service) cleanup(ev *evidenceFile) {
	if ev == nil {
		return
	}
	for _, path := range []string{ev.path, ev.origPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Cleanup error: %v", err)
		}
	}
}

// ParseRecipients splits a comma-separated recipient list, trimming
// whitespace and dropping empties.
func ParseRecipients(list string) []string {
	var recipients []string
	for _, r := range strings.Split(list, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			recipients = append(recipients, r)
		}
	}
	return recipients
}

func mimeTypeForExt(ext string) string {
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".avi":
		return "video/avi"
	case ".mov":
		return "video/quicktime"
	default:
		return "video/webm"
	}
}
