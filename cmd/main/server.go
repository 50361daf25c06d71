package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/oskarst/freedomCms/pkg/compose"
	"github.com/oskarst/freedomCms/pkg/store"
)

// Server wires the store, the composition engine, and the API handler
// groups onto a single mux. The dashboard is served from the configured
// static file and published artifacts are exposed read-only under /pub/.
type Server struct {
	config      *Config
	db          *sql.DB
	st          *store.Store
	logger      *slog.Logger
	authAPI     *AuthAPI
	templateAPI *TemplateAPI
	pageAPI     *PageAPI
	settingsAPI *SettingsAPI
	serverAPI   *ServerAPI
	mux         *http.ServeMux
}

func NewServer(config *Config, configPath string, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {

	st, err := store.New(db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	publisher := compose.NewPublisher(logger, config.Server.PubDir)
	analyzer := compose.NewAnalyzer(logger)

	// api initialization
	authAPI := NewAuthAPI(db, logger)
	templateAPI := NewTemplateAPI(st, logger)
	pageAPI := NewPageAPI(st, publisher, analyzer, logger)
	settingsAPI := NewSettingsAPI(st, logger)
	serverAPI := NewServerAPI(config, configPath, actionChan, logger)

	// create object, register routes to the mux, and return it
	server := &Server{
		config:      config,
		db:          db,
		st:          st,
		logger:      logger,
		authAPI:     authAPI,
		templateAPI: templateAPI,
		pageAPI:     pageAPI,
		settingsAPI: settingsAPI,
		serverAPI:   serverAPI,
		mux:         http.NewServeMux(),
	}

	apiMux := http.NewServeMux()

	server.authAPI.RegisterRoutes(apiMux)
	server.templateAPI.RegisterRoutes(apiMux)
	server.pageAPI.RegisterRoutes(apiMux)
	server.settingsAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Make sure api functions must pass through authentication first
	authedAPI := server.authAPI.Authenticate(apiMux)

	server.mux.HandleFunc("/api/health", server.handleHealth)
	server.mux.Handle("/api/", authedAPI)
	server.mux.Handle("/pub/", http.StripPrefix("/pub/", http.FileServer(http.Dir(config.Server.PubDir))))
	server.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, config.Server.DashboardPath)
	})

	return server, nil
}

// handleHealth is the only unauthenticated API endpoint; it pings the
// database so load balancers see storage failures too.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("Health check database ping failed", "error", err)
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

// Close releases the prepared statements held by the store.
func (s *Server) Close() {
	s.st.Close()
}
