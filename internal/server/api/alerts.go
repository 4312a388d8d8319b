// Package api provides HTTP API handlers for the Fivesense emergency
// alert daemon.
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"

	"github.com/anwesha/fivesense/internal/relay"
)

// maxUploadBytes bounds the multipart body; evidence clips are a few
// megabytes at most.
const maxUploadBytes = 64 << 20

// AlertHandler accepts evidence bundles and hands them to the relay.
type AlertHandler struct {
	relay *relay.Service
}

// NewAlertHandler creates a new AlertHandler backed by the given relay.
func NewAlertHandler(svc *relay.Service) *AlertHandler {
	return &AlertHandler{relay: svc}
}

type alertResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP handles POST /api/send-alert with a multipart form body.
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, alertResponse{Success: false, Error: "Invalid multipart form"})
		return
	}

	bundle := &relay.Bundle{
		Latitude:      r.FormValue("latitude"),
		Longitude:     r.FormValue("longitude"),
		BatteryLevel:  r.FormValue("battery_level"),
		BatteryStatus: r.FormValue("battery_status"),
		AccessToken:   r.FormValue("whatsapp_access_token"),
		PhoneNumberID: r.FormValue("whatsapp_phone_number_id"),
		Recipients:    r.FormValue("whatsapp_recipients"),
	}

	if file, header, err := r.FormFile("video"); err == nil {
		data, readErr := io.ReadAll(file)
		file.Close()
		if readErr != nil {
			log.Printf("Failed to read video part: %v", readErr)
		} else {
			bundle.Video = data
			bundle.VideoExt = filepath.Ext(header.Filename)
		}
	}

	result := h.relay.Process(r.Context(), bundle)
	if result.Success {
		writeJSON(w, http.StatusOK, alertResponse{Success: true})
		return
	}

	status := http.StatusInternalServerError
	if result.Error == relay.ErrorLocationMissing {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, alertResponse{Success: false, Error: result.Error})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
