package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/anwesha/fivesense/internal/store"
)

// HistoryHandler serves the persisted alert history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// historyEntry is the UI-facing shape of one alert record.
type historyEntry struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"`
	Latitude       string  `json:"latitude"`
	Longitude      string  `json:"longitude"`
	Battery        string  `json:"battery"`
	DeliveryStatus string  `json:"deliveryStatus"`
	Label          string  `json:"label"`
	Location       string  `json:"location"`
	VideoURL       *string `json:"video_url"`
}

// ServeHTTP handles GET /api/history, most recent alert first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	alerts, err := h.store.Alerts().ListAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	entries := make([]historyEntry, 0, len(alerts))
	for _, a := range alerts {
		entries = append(entries, historyEntry{
			ID:       strconv.FormatInt(a.ID, 10),
			Date:     a.Timestamp,
			Latitude: a.Latitude,
			Longitude: a.Longitude,
			Battery:  a.BatteryLevel + "%",
			// Per-recipient outcomes are not tracked, so every stored
			// alert reports as delivered.
			DeliveryStatus: "delivered",
			Label:          "Emergency Alert",
			Location:       fmt.Sprintf("%s, %s", a.Latitude, a.Longitude),
			VideoURL:       a.VideoURL,
		})
	}

	writeJSON(w, http.StatusOK, entries)
}
