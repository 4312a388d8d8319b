package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/anwesha/fivesense/internal/store"
)

// SettingsHandler reads and writes the recipient configuration used by
// the trigger controller.
type SettingsHandler struct {
	store *store.Store
}

// NewSettingsHandler creates a new SettingsHandler with the given store.
func NewSettingsHandler(s *store.Store) *SettingsHandler {
	return &SettingsHandler{store: s}
}

type settingsPayload struct {
	AccessToken   string `json:"accessToken"`
	PhoneNumberID string `json:"phoneNumberId"`
	Recipients    string `json:"recipients"`
}

// ServeHTTP routes GET and PUT requests on /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// get returns the stored configuration; unset keys come back empty.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	payload := settingsPayload{}

	var err error
	if payload.AccessToken, err = h.setting(store.SettingAccessToken); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}
	if payload.PhoneNumberID, err = h.setting(store.SettingPhoneNumberID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}
	if payload.Recipients, err = h.setting(store.SettingRecipients); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

func (h *SettingsHandler) setting(key string) (string, error) {
	value, err := h.store.Settings().Get(key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return value, err
}

// put replaces the stored configuration with the request payload.
func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	settings := h.store.Settings()
	pairs := map[string]string{
		store.SettingAccessToken:   payload.AccessToken,
		store.SettingPhoneNumberID: payload.PhoneNumberID,
		store.SettingRecipients:    payload.Recipients,
	}
	for key, value := range pairs {
		if err := settings.Set(key, value); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	writeJSON(w, http.StatusOK, payload)
}
