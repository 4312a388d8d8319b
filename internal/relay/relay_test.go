package relay

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anwesha/fivesense/internal/store"
	"github.com/anwesha/fivesense/internal/whatsapp"
)

// fakeMessenger records calls and serves scripted failures.
type fakeMessenger struct {
	texts      []string // recipients, in call order
	uploads    int
	mediaSends []string // recipients, in call order
	mediaTypes []string

	textErr   map[string]error
	uploadErr error
	mediaErr  map[string]error

	uploadedName string
	uploadedMime string
	uploadedSize int
}

func (f *fakeMessenger) SendText(ctx context.Context, to, body string) error {
	f.texts = append(f.texts, to)
	return f.textErr[to]
}

func (f *fakeMessenger) UploadMedia(ctx context.Context, filename, mimeType string, data io.Reader) (string, error) {
	f.uploads++
	f.uploadedName = filename
	f.uploadedMime = mimeType
	b, _ := io.ReadAll(data)
	f.uploadedSize = len(b)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "media-1", nil
}

func (f *fakeMessenger) SendMediaByID(ctx context.Context, to, mediaID, mediaType, filename string) error {
	f.mediaSends = append(f.mediaSends, to)
	f.mediaTypes = append(f.mediaTypes, mediaType)
	return f.mediaErr[to]
}

// fakeTranscoder copies the source to the destination, or fails.
type fakeTranscoder struct {
	fail bool
}

func (f *fakeTranscoder) Normalize(ctx context.Context, src, dst string) error {
	if f.fail {
		return errors.New("unsupported codec")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func newTestService(t *testing.T, msgr *fakeMessenger, trans *fakeTranscoder) (*Service, *store.Store, string) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	uploads := t.TempDir()
	svc := New(Config{
		Store:      s,
		UploadsDir: uploads,
		Transcoder: trans,
		Messenger: func(accessToken, phoneNumberID string) whatsapp.Messenger {
			return msgr
		},
	})
	return svc, s, uploads
}

func alertCount(t *testing.T, s *store.Store) int {
	t.Helper()
	list, err := s.Alerts().ListAll()
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	return len(list)
}

func TestProcess_MissingCoordinates(t *testing.T) {
	for _, b := range []*Bundle{
		{Latitude: "", Longitude: "-74.0060"},
		{Latitude: "40.7128", Longitude: ""},
		{},
	} {
		msgr := &fakeMessenger{}
		svc, s, _ := newTestService(t, msgr, &fakeTranscoder{})

		result := svc.Process(context.Background(), b)

		if result.Success {
			t.Error("Process() succeeded without coordinates")
		}
		if result.Error != ErrorLocationMissing {
			t.Errorf("error = %q, want %q", result.Error, ErrorLocationMissing)
		}
		if alertCount(t, s) != 0 {
			t.Error("validation failure must not write history")
		}
		if len(msgr.texts) != 0 || msgr.uploads != 0 {
			t.Error("validation failure must not call the messenger")
		}
	}
}

func TestProcess_NoVideo(t *testing.T) {
	msgr := &fakeMessenger{}
	svc, s, _ := newTestService(t, msgr, &fakeTranscoder{})

	result := svc.Process(context.Background(), &Bundle{
		Latitude:   "40.7128",
		Longitude:  "-74.0060",
		Recipients: "15551234567",
	})

	if !result.Success {
		t.Fatalf("Process() failed: %s", result.Error)
	}

	list, _ := s.Alerts().ListAll()
	if len(list) != 1 {
		t.Fatalf("history has %d records, want 1", len(list))
	}
	if list[0].VideoURL != nil {
		t.Errorf("VideoURL = %v, want nil", *list[0].VideoURL)
	}
	// Absent battery telemetry degrades to sentinels
	if list[0].BatteryLevel != "100" || list[0].BatteryStatus != "Unknown" {
		t.Errorf("battery = %s/%s, want sentinels", list[0].BatteryLevel, list[0].BatteryStatus)
	}
	if msgr.uploads != 0 {
		t.Error("no-video bundle must not upload media")
	}
	if len(msgr.texts) != 1 {
		t.Errorf("sent %d texts, want 1", len(msgr.texts))
	}
}

func TestProcess_WithVideo(t *testing.T) {
	msgr := &fakeMessenger{}
	svc, s, uploads := newTestService(t, msgr, &fakeTranscoder{})

	video := make([]byte, 50*1024)
	result := svc.Process(context.Background(), &Bundle{
		Latitude:      "40.7128",
		Longitude:     "-74.0060",
		BatteryLevel:  "100",
		BatteryStatus: "Charging",
		Video:         video,
		VideoExt:      ".webm",
		Recipients:    "15551234567",
	})

	if !result.Success {
		t.Fatalf("Process() failed: %s", result.Error)
	}

	list, _ := s.Alerts().ListAll()
	if len(list) != 1 {
		t.Fatalf("history has %d records, want 1", len(list))
	}
	if list[0].VideoURL == nil || !strings.HasSuffix(*list[0].VideoURL, ".mp4") {
		t.Errorf("VideoURL = %v, want normalized mp4 reference", list[0].VideoURL)
	}
	if list[0].Latitude != "40.7128" || list[0].Longitude != "-74.0060" {
		t.Errorf("coordinates = %s,%s", list[0].Latitude, list[0].Longitude)
	}

	if len(msgr.texts) != 1 {
		t.Errorf("sent %d texts, want 1", len(msgr.texts))
	}
	if msgr.uploads != 1 {
		t.Errorf("uploads = %d, want 1", msgr.uploads)
	}
	if msgr.uploadedSize != len(video) {
		t.Errorf("uploaded %d bytes, want %d", msgr.uploadedSize, len(video))
	}
	if len(msgr.mediaSends) != 1 || msgr.mediaTypes[0] != whatsapp.MediaTypeVideo {
		t.Errorf("media sends = %v types = %v", msgr.mediaSends, msgr.mediaTypes)
	}

	// Staged artifacts removed after fan-out
	entries, _ := os.ReadDir(uploads)
	if len(entries) != 0 {
		t.Errorf("uploads dir still has %d files after cleanup", len(entries))
	}
}

func TestProcess_TranscodeFailureFallsBackToDocument(t *testing.T) {
	msgr := &fakeMessenger{}
	svc, s, _ := newTestService(t, msgr, &fakeTranscoder{fail: true})

	result := svc.Process(context.Background(), &Bundle{
		Latitude:   "1.0",
		Longitude:  "2.0",
		Video:      []byte("webm bytes"),
		VideoExt:   ".webm",
		Recipients: "15551234567",
	})

	if !result.Success {
		t.Fatalf("Process() failed: %s", result.Error)
	}

	list, _ := s.Alerts().ListAll()
	if list[0].VideoURL == nil || !strings.HasSuffix(*list[0].VideoURL, ".webm") {
		t.Errorf("VideoURL = %v, want original container kept", list[0].VideoURL)
	}
	if msgr.uploadedMime != "video/webm" {
		t.Errorf("uploaded mime = %q, want video/webm", msgr.uploadedMime)
	}
	if len(msgr.mediaTypes) != 1 || msgr.mediaTypes[0] != whatsapp.MediaTypeDocument {
		t.Errorf("media types = %v, want document fallback", msgr.mediaTypes)
	}
}

func TestProcess_SequentialFanOutContinuesPastFailures(t *testing.T) {
	msgr := &fakeMessenger{
		textErr: map[string]error{"200": errors.New("rate limited")},
	}
	svc, s, _ := newTestService(t, msgr, &fakeTranscoder{})

	result := svc.Process(context.Background(), &Bundle{
		Latitude:   "1.0",
		Longitude:  "2.0",
		Recipients: "100, 200, 300",
	})

	if result.Success {
		t.Error("Process() should fail when any send failed")
	}
	if len(msgr.texts) != 3 {
		t.Errorf("sent %d texts, want all 3 despite failure", len(msgr.texts))
	}
	if msgr.texts[0] != "100" || msgr.texts[1] != "200" || msgr.texts[2] != "300" {
		t.Errorf("send order = %v", msgr.texts)
	}
	if !strings.Contains(result.Error, "200: rate limited") {
		t.Errorf("error = %q, want per-recipient detail", result.Error)
	}

	// The history record is written regardless of delivery outcome
	if alertCount(t, s) != 1 {
		t.Error("history record missing after partial failure")
	}
}

func TestProcess_UploadFailureSkipsMediaSends(t *testing.T) {
	msgr := &fakeMessenger{uploadErr: errors.New("media too large")}
	svc, s, _ := newTestService(t, msgr, &fakeTranscoder{})

	result := svc.Process(context.Background(), &Bundle{
		Latitude:   "1.0",
		Longitude:  "2.0",
		Video:      []byte("bytes"),
		Recipients: "100,200",
	})

	if result.Success {
		t.Error("Process() should fail on upload failure")
	}
	if !strings.Contains(result.Error, "Video Upload failed") {
		t.Errorf("error = %q", result.Error)
	}
	if len(msgr.mediaSends) != 0 {
		t.Error("media sends should be skipped after upload failure")
	}
	// Text alerts already went out and the record stays
	if len(msgr.texts) != 2 {
		t.Errorf("sent %d texts, want 2", len(msgr.texts))
	}
	if alertCount(t, s) != 1 {
		t.Error("history record missing after upload failure")
	}
}

func TestProcess_EmptyRecipientList(t *testing.T) {
	msgr := &fakeMessenger{}
	svc, s, _ := newTestService(t, msgr, &fakeTranscoder{})

	result := svc.Process(context.Background(), &Bundle{
		Latitude:  "1.0",
		Longitude: "2.0",
	})

	// Absent configuration is tolerated: nothing to send, still recorded.
	if !result.Success {
		t.Errorf("Process() failed: %s", result.Error)
	}
	if len(msgr.texts) != 0 {
		t.Errorf("sent %d texts, want 0", len(msgr.texts))
	}
	if alertCount(t, s) != 1 {
		t.Error("history record missing")
	}
}

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"100", []string{"100"}},
		{"100, 200 ,300", []string{"100", "200", "300"}},
		{", ,100,,", []string{"100"}},
	}

	for _, tt := range tests {
		got := ParseRecipients(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseRecipients(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseRecipients(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestBuildAlertText(t *testing.T) {
	text := BuildAlertText("40.7128", "-74.0060", "88", "Charging")

	if !strings.Contains(text, "https://www.google.com/maps?q=40.7128,-74.0060") {
		t.Errorf("alert text missing map link: %q", text)
	}
	if !strings.Contains(text, "Battery: 88%") {
		t.Errorf("alert text missing battery summary: %q", text)
	}
	if !strings.Contains(text, "Charging: Charging") {
		t.Errorf("alert text missing charging state: %q", text)
	}
}
