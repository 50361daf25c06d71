package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/oskarst/freedomCms/pkg/compose"
	"github.com/oskarst/freedomCms/pkg/store"
)

// TemplateAPI holds the dependencies for the template API handlers.
// Templates live in the database, not on disk; the editor talks to these
// endpoints for block definitions and placeholder discovery.
type TemplateAPI struct {
	st     *store.Store
	logger *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(st *store.Store, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		st:     st,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates endpoints.
func (t *TemplateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates/params", t.handleParams)
	mux.HandleFunc("/api/templates", t.handleCollection)
	mux.HandleFunc("/api/templates/", t.handleItem)
}

// CreateTemplateRequest is the expected JSON body for creating a template.
// SortOrder is a pointer so position 0 stays expressible: omitting the field
// appends at the end of the order.
type CreateTemplateRequest struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Category  string `json:"category"`
	Content   string `json:"content"`
	IsDefault bool   `json:"is_default"`
	SortOrder *int   `json:"sort_order"`
}

// handleCollection lists all templates or creates a new one.
func (t *TemplateAPI) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "templates:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
			return
		}
		templates, err := t.st.ListTemplates(r.Context())
		if err != nil {
			t.logger.Error("Failed to list templates", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Database query failed")
			return
		}
		respondWithJSON(w, http.StatusOK, templates)

	case http.MethodPost:
		if !hasScope(r, "templates:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
			return
		}
		var req CreateTemplateRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			return
		}
		if req.Title == "" {
			respondWithError(w, http.StatusBadRequest, "Template title is required")
			return
		}
		tmpl := store.Template{
			Title:     req.Title,
			Slug:      req.Slug,
			Category:  req.Category,
			Content:   req.Content,
			IsDefault: req.IsDefault,
			SortOrder: -1,
		}
		if req.SortOrder != nil {
			tmpl.SortOrder = *req.SortOrder
		}
		if err := t.st.CreateTemplate(r.Context(), &tmpl); err != nil {
			if errors.Is(err, store.ErrDuplicateSlug) {
				respondWithError(w, http.StatusConflict, fmt.Sprintf("Slug already in use: %v", err))
				return
			}
			t.logger.Error("Failed to create template", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create template")
			return
		}
		t.logger.Info("Template created", "id", tmpl.ID, "slug", tmpl.Slug)
		respondWithJSON(w, http.StatusCreated, tmpl)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleParams extracts the placeholders from a posted block text so the
// editor can build its parameter form.
func (t *TemplateAPI) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}

	params := compose.ExtractParams(string(body))
	if params == nil {
		params = []compose.Param{}
	}
	respondWithJSON(w, http.StatusOK, params)
}

// handleItem manages one template: GET, PUT, DELETE, and POST .../duplicate.
func (t *TemplateAPI) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	idStr, action, _ := strings.Cut(strings.TrimSuffix(rest, "/"), "/")

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid template ID format in URL")
		return
	}

	if action == "duplicate" {
		t.handleDuplicate(w, r, id)
		return
	}
	if action != "" {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "templates:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
			return
		}
		tmpl, err := t.st.GetTemplate(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(w, http.StatusNotFound, "Template not found")
				return
			}
			t.logger.Error("Failed to get template", "id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Database query failed")
			return
		}
		respondWithJSON(w, http.StatusOK, tmpl)

	case http.MethodPut:
		if !hasScope(r, "templates:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
			return
		}
		var tmpl store.Template
		if err := decodeJSONBody(w, r, &tmpl); err != nil {
			return
		}
		tmpl.ID = id
		if tmpl.Slug == "" {
			tmpl.Slug = compose.Slugify(tmpl.Title)
		}
		if err := t.st.UpdateTemplate(r.Context(), &tmpl); err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				respondWithError(w, http.StatusNotFound, "Template not found")
			case errors.Is(err, store.ErrDuplicateSlug):
				respondWithError(w, http.StatusConflict, fmt.Sprintf("Slug already in use: %v", err))
			default:
				t.logger.Error("Failed to update template", "id", id, "error", err)
				respondWithError(w, http.StatusInternalServerError, "Failed to update template")
			}
			return
		}
		respondWithJSON(w, http.StatusOK, tmpl)

	case http.MethodDelete:
		if !hasScope(r, "templates:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
			return
		}
		if err := t.st.DeleteTemplate(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				respondWithError(w, http.StatusNotFound, "Template not found")
			case errors.Is(err, store.ErrTemplateInUse):
				respondWithError(w, http.StatusConflict, fmt.Sprintf("Template still referenced by page blocks: %v", err))
			default:
				t.logger.Error("Failed to delete template", "id", id, "error", err)
				respondWithError(w, http.StatusInternalServerError, "Failed to delete template")
			}
			return
		}
		t.logger.Info("Template deleted", "id", id)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleDuplicate copies a template under a new title and fresh slug.
func (t *TemplateAPI) handleDuplicate(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	// An empty body is fine; the store falls back to "<title> Copy".
	_ = decodeOptionalJSONBody(r, &req)

	dup, err := t.st.DuplicateTemplate(r.Context(), id, req.Title)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		t.logger.Error("Failed to duplicate template", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to duplicate template")
		return
	}
	respondWithJSON(w, http.StatusCreated, dup)
}
