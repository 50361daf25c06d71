package main

import (
	"log/slog"
	"net/http"

	"github.com/oskarst/freedomCms/pkg/store"
)

// SettingsAPI holds the dependencies for the site settings handlers.
type SettingsAPI struct {
	st     *store.Store
	logger *slog.Logger
}

// NewSettingsAPI creates a new instance of the SettingsAPI.
func NewSettingsAPI(st *store.Store, logger *slog.Logger) *SettingsAPI {
	return &SettingsAPI{
		st:     st,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for the /api/settings endpoint.
func (s *SettingsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/settings", s.handleSettings)
}

func (s *SettingsAPI) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "settings:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'settings:read' scope")
			return
		}
		settings, err := s.st.ListSettings(r.Context())
		if err != nil {
			s.logger.Error("Failed to list settings", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Database query failed")
			return
		}
		respondWithJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		if !hasScope(r, "settings:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'settings:write' scope")
			return
		}
		var updates []store.Setting
		if err := decodeJSONBody(w, r, &updates); err != nil {
			return
		}
		for _, u := range updates {
			if u.Key == "" {
				respondWithError(w, http.StatusBadRequest, "Setting key is required")
				return
			}
		}
		// One transaction for the whole batch; a failure leaves the stored
		// settings untouched.
		if err := s.st.SetSettings(r.Context(), updates); err != nil {
			s.logger.Error("Failed to save settings", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		settings, err := s.st.ListSettings(r.Context())
		if err != nil {
			s.logger.Error("Failed to reload settings", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Database query failed")
			return
		}
		respondWithJSON(w, http.StatusOK, settings)

	default:
		w.Header().Set("Allow", "GET, PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
