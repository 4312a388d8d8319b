package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"time"
)

// Client submits evidence bundles to the alert relay over its multipart
// HTTP endpoint.
type Client struct {
	// BaseURL of the relay server, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// HTTPClient defaults to one with a 60 s timeout; uploads carry a
	// few megabytes of video.
	HTTPClient *http.Client
}

type relayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Submit posts the bundle to /api/send-alert and interprets the relay's
// verdict. A non-nil error carries the relay's failure text.
func (c *Client) Submit(ctx context.Context, sub *Submission) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"latitude":                 sub.Latitude,
		"longitude":                sub.Longitude,
		"battery_level":            sub.BatteryLevel,
		"battery_status":           sub.BatteryStatus,
		"whatsapp_access_token":    sub.AccessToken,
		"whatsapp_phone_number_id": sub.PhoneNumberID,
		"whatsapp_recipients":      sub.Recipients,
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return fmt.Errorf("encode field %s: %w", name, err)
		}
	}

	if len(sub.Video) > 0 {
		ext := sub.VideoExt
		if ext == "" {
			ext = ".webm"
		}
		part, err := mw.CreateFormFile("video", "clip"+ext)
		if err != nil {
			return fmt.Errorf("encode video part: %w", err)
		}
		if _, err := part.Write(sub.Video); err != nil {
			return fmt.Errorf("encode video part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/send-alert", &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("Alert submission transport error: %v", err)
		return errors.New("connection failed")
	}
	defer resp.Body.Close()

	var verdict relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return fmt.Errorf("relay returned %s with unreadable body", resp.Status)
	}

	if !verdict.Success {
		if verdict.Error == "" {
			verdict.Error = "alert relay rejected the submission"
		}
		return fmt.Errorf("%s", verdict.Error)
	}
	return nil
}
