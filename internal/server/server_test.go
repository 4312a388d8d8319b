package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anwesha/fivesense/internal/trigger"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_Uploads(t *testing.T) {
	uploadsDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(uploadsDir, "abc.mp4"), []byte("clip"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(Config{UploadsDir: uploadsDir})

	t.Run("serves existing clip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/abc.mp4", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if rec.Body.String() != "clip" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("missing clip is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/gone.mp4", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("directory listing refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

type acceptAllSubmitter struct{}

func (acceptAllSubmitter) Submit(ctx context.Context, sub *trigger.Submission) error {
	return nil
}

func TestServer_ManualTrigger(t *testing.T) {
	controller := trigger.New(trigger.Config{
		Submitter:      acceptAllSubmitter{},
		SuccessDisplay: 10 * time.Millisecond,
	})
	s := New(Config{Controller: controller})

	req := httptest.NewRequest(http.MethodPost, "/api/trigger", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp["accepted"] {
		t.Error("trigger from idle should be accepted")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/trigger", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}
}

func TestServer_StatusWebsocket(t *testing.T) {
	controller := trigger.New(trigger.Config{
		Submitter:      acceptAllSubmitter{},
		SuccessDisplay: 50 * time.Millisecond,
	})
	s := New(Config{Controller: controller})

	srv := httptest.NewServer(s)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/status"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error: %v", err)
	}
	defer conn.Close()

	// First message is the current status
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var status trigger.Status
	if err := conn.ReadJSON(&status); err != nil {
		t.Fatalf("read initial status: %v", err)
	}
	if status.State != trigger.StateIdle {
		t.Errorf("initial state = %q, want idle", status.State)
	}

	// Give the handler a beat to finish registering the connection
	time.Sleep(50 * time.Millisecond)
	controller.Trigger(trigger.SourceManual)

	// The lifecycle arrives as it happens
	seen := map[trigger.State]bool{}
	for !seen[trigger.StateSuccess] {
		if err := conn.ReadJSON(&status); err != nil {
			t.Fatalf("read status update: %v (seen %v)", err, seen)
		}
		seen[status.State] = true
	}
	if !seen[trigger.StateRecording] || !seen[trigger.StateSending] {
		t.Errorf("lifecycle states seen = %v", seen)
	}
}
