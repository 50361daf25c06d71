package main

import (
	"log/slog"
	"net/http"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

// ServerAPI holds the dependencies for the main application API handlers.
type ServerAPI struct {
	config     *Config
	configPath string
	actionChan chan string
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(config *Config, configPath string, actionChan chan string, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		config:     config,
		configPath: configPath,
		actionChan: actionChan,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server/config", a.handleConfig)
	mux.HandleFunc("/api/server/version", a.handleVersion)
	mux.HandleFunc("/api/server/shutdown", a.handleShutdown)
	mux.HandleFunc("/api/server/restart", a.handleRestart)
}

// handleConfig gets or updates the main server configuration.
func (a *ServerAPI) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "server:config") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:config' scope")
			return
		}
		respondWithJSON(w, http.StatusOK, a.config)
	case http.MethodPut:
		if !hasScope(r, "server:config") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:config' scope")
			return
		}
		var newConfig Config
		if err := decodeJSONBody(w, r, &newConfig); err != nil {
			return
		}
		if newConfig.Server == nil {
			respondWithError(w, http.StatusBadRequest, "Missing server_config section")
			return
		}

		*a.config = newConfig
		if err := SaveConfig(a.configPath, a.config); err != nil {
			a.logger.Error("Failed to save config", "path", a.configPath, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to save configuration to disk")
			return
		}

		a.logger.Info("Application configuration updated and saved via API. Some changes may require a restart.")
		respondWithJSON(w, http.StatusOK, a.config)
	default:
		w.Header().Set("Allow", "GET, PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
	respondWithJSON(w, http.StatusOK, info)
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "server:control") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:control' scope")
		return
	}

	a.logger.Warn("Shutdown initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is shutting down..."})

	go func() {
		a.actionChan <- actionShutdown
	}()
}

// handleRestart initiates a graceful restart of the server.
func (a *ServerAPI) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "server:control") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:control' scope")
		return
	}

	a.logger.Warn("Restart initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is restarting..."})

	go func() {
		a.actionChan <- actionRestart
	}()
}
