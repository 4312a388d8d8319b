// Package whatsapp implements the subset of the WhatsApp Cloud API the
// alert relay needs: text sends, media uploads and media sends by id.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultBaseURL is the Graph API endpoint prefix.
const DefaultBaseURL = "https://graph.facebook.com/v18.0"

// Media message types accepted by SendMediaByID.
const (
	MediaTypeVideo    = "video"
	MediaTypeDocument = "document"
)

// Messenger is the external messaging capability consumed by the relay.
type Messenger interface {
	// SendText sends a text message to one recipient.
	SendText(ctx context.Context, to, body string) error

	// UploadMedia uploads a media payload and returns a reusable media id.
	UploadMedia(ctx context.Context, filename, mimeType string, data io.Reader) (string, error)

	// SendMediaByID sends a previously uploaded media object to one
	// recipient. mediaType is "video" or "document"; filename is only
	// used for documents.
	SendMediaByID(ctx context.Context, to, mediaID, mediaType, filename string) error
}

// Config holds the credentials and endpoint for a Client.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string       // defaults to DefaultBaseURL
	HTTPClient    *http.Client // defaults to a 30s-timeout client
}

// Client talks to the WhatsApp Cloud API over HTTP.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	http          *http.Client
}

// NewClient creates a Client from the given config.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       baseURL,
		http:          httpClient,
	}
}

// SendText sends a text message to one recipient.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	return c.postMessage(ctx, payload)
}

// SendMediaByID sends a previously uploaded media object to one recipient.
func (c *Client) SendMediaByID(ctx context.Context, to, mediaID, mediaType, filename string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              mediaType,
	}

	switch mediaType {
	case MediaTypeVideo:
		payload[MediaTypeVideo] = map[string]string{"id": mediaID}
	case MediaTypeDocument:
		payload[MediaTypeDocument] = map[string]string{"id": mediaID, "filename": filename}
	default:
		return fmt.Errorf("unsupported media type %q", mediaType)
	}

	return c.postMessage(ctx, payload)
}

// UploadMedia uploads a media payload and returns the media id.
func (c *Client) UploadMedia(ctx context.Context, filename, mimeType string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", fmt.Errorf("write field: %w", err)
	}
	if err := writer.WriteField("type", mimeType); err != nil {
		return "", fmt.Errorf("write field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	url := fmt.Sprintf("%s/%s/media", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload media: %s", apiErrorMessage(respBody))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || result.ID == "" {
		return "", fmt.Errorf("upload media: no media id in response")
	}

	return result.ID, nil
}

// postMessage posts a message payload to the messages endpoint.
func (c *Client) postMessage(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s", apiErrorMessage(respBody))
	}

	return nil
}

// apiErrorMessage extracts the error message from a Graph API error body,
// falling back to a generic marker when the body has no usable detail.
func apiErrorMessage(body []byte) string {
	var result struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err == nil && result.Error.Message != "" {
		return result.Error.Message
	}
	return "Unknown Meta API error"
}
