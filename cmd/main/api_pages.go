package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/oskarst/freedomCms/pkg/compose"
	"github.com/oskarst/freedomCms/pkg/store"
)

// PageAPI holds the dependencies for the page API handlers. It covers the
// whole page lifecycle: CRUD, block editing, preview, publish, and the
// export/import endpoints.
type PageAPI struct {
	st     *store.Store
	pub    *compose.Publisher
	indent *compose.Analyzer
	logger *slog.Logger
}

// NewPageAPI creates a new instance of the PageAPI.
func NewPageAPI(st *store.Store, pub *compose.Publisher, indent *compose.Analyzer, logger *slog.Logger) *PageAPI {
	return &PageAPI{
		st:     st,
		pub:    pub,
		indent: indent,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/pages endpoints.
func (p *PageAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/pages/export", p.handleExportAll)
	mux.HandleFunc("/api/pages/import", p.handleImport)
	mux.HandleFunc("/api/pages", p.handleCollection)
	mux.HandleFunc("/api/pages/", p.handleItem)
}

// CreatePageRequest is the expected JSON body for creating a page. The slug
// is optional; an empty one is derived from the title.
type CreatePageRequest struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

func (p *PageAPI) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "pages:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
			return
		}
		pages, err := p.st.ListPages(r.Context())
		if err != nil {
			p.logger.Error("Failed to list pages", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Database query failed")
			return
		}
		respondWithJSON(w, http.StatusOK, pages)

	case http.MethodPost:
		if !hasScope(r, "pages:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
			return
		}
		var req CreatePageRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			return
		}
		if req.Title == "" {
			respondWithError(w, http.StatusBadRequest, "Page title is required")
			return
		}
		page, err := p.st.CreatePage(r.Context(), req.Title, req.Slug)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateSlug) {
				respondWithError(w, http.StatusConflict, fmt.Sprintf("Slug already in use: %v", err))
				return
			}
			p.logger.Error("Failed to create page", "title", req.Title, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create page")
			return
		}
		p.logger.Info("Page created", "id", page.ID, "slug", page.Slug)
		respondWithJSON(w, http.StatusCreated, page)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleItem dispatches /api/pages/{id} and its sub-resources.
func (p *PageAPI) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/pages/")
	idStr, action, _ := strings.Cut(strings.TrimSuffix(rest, "/"), "/")

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid page ID format in URL")
		return
	}

	switch {
	case action == "":
		p.handlePage(w, r, id)
	case action == "blocks":
		p.handleBlocks(w, r, id)
	case strings.HasPrefix(action, "blocks/"):
		p.handleBlockByID(w, r, id, strings.TrimPrefix(action, "blocks/"))
	case action == "reorder":
		p.handleReorder(w, r, id)
	case action == "indent":
		p.handleIndent(w, r, id)
	case action == "preview":
		p.handlePreview(w, r, id)
	case action == "publish":
		p.handlePublish(w, r, id)
	case action == "unpublish":
		p.handleUnpublish(w, r, id)
	case action == "export":
		p.handleExportOne(w, r, id)
	default:
		respondWithError(w, http.StatusNotFound, "Not Found")
	}
}

func (p *PageAPI) handlePage(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "pages:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
			return
		}
		page, err := p.st.GetPage(r.Context(), id)
		if err != nil {
			p.respondStoreError(w, err, "Failed to get page", "id", id)
			return
		}
		respondWithJSON(w, http.StatusOK, page)

	case http.MethodPut:
		if !hasScope(r, "pages:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
			return
		}
		var page store.Page
		if err := decodeJSONBody(w, r, &page); err != nil {
			return
		}
		page.ID = id
		if page.Slug == "" {
			page.Slug = compose.Slugify(page.Title)
		}
		if err := p.st.UpdatePage(r.Context(), &page); err != nil {
			p.respondStoreError(w, err, "Failed to update page", "id", id)
			return
		}
		respondWithJSON(w, http.StatusOK, page)

	case http.MethodDelete:
		if !hasScope(r, "pages:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
			return
		}
		if err := p.st.DeletePage(r.Context(), id); err != nil {
			p.respondStoreError(w, err, "Failed to delete page", "id", id)
			return
		}
		p.logger.Info("Page deleted", "id", id)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// AddBlockRequest is the expected JSON body for appending a block to a page.
type AddBlockRequest struct {
	TemplateID int64 `json:"template_id"`
}

// handleBlocks serves the page editor's block list: GET returns the joined
// blocks, POST appends one, PUT saves the whole form state in one shot.
func (p *PageAPI) handleBlocks(w http.ResponseWriter, r *http.Request, pageID int64) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "pages:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
			return
		}
		blocks, err := p.st.PageBlocks(r.Context(), pageID)
		if err != nil {
			p.respondStoreError(w, err, "Failed to load page blocks", "page_id", pageID)
			return
		}
		cfg, err := p.st.SiteConfig(r.Context())
		if err != nil {
			p.respondStoreError(w, err, "Failed to load site settings", "page_id", pageID)
			return
		}
		blocks = store.VisibleBlocks(cfg, blocks)
		if blocks == nil {
			blocks = []store.Block{}
		}
		respondWithJSON(w, http.StatusOK, blocks)

	case http.MethodPost:
		if !hasScope(r, "pages:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
			return
		}
		var req AddBlockRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			return
		}
		blockID, err := p.st.AddBlock(r.Context(), pageID, req.TemplateID)
		if err != nil {
			p.respondStoreError(w, err, "Failed to add block", "page_id", pageID, "template_id", req.TemplateID)
			return
		}
		respondWithJSON(w, http.StatusCreated, map[string]int64{"block_id": blockID})

	case http.MethodPut:
		if !hasScope(r, "pages:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
			return
		}
		var updates []store.BlockUpdate
		if err := decodeJSONBody(w, r, &updates); err != nil {
			return
		}
		if err := p.st.SaveBlocks(r.Context(), pageID, updates); err != nil {
			p.respondStoreError(w, err, "Failed to save blocks", "page_id", pageID)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, POST, PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (p *PageAPI) handleBlockByID(w http.ResponseWriter, r *http.Request, pageID int64, blockStr string) {
	blockID, err := strconv.ParseInt(blockStr, 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid block ID format in URL")
		return
	}
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
		return
	}
	if err := p.st.DeleteBlock(r.Context(), pageID, blockID); err != nil {
		p.respondStoreError(w, err, "Failed to delete block", "page_id", pageID, "block_id", blockID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderRequest carries the full block ID sequence in the desired order.
type ReorderRequest struct {
	BlockIDs []int64 `json:"block_ids"`
}

func (p *PageAPI) handleReorder(w http.ResponseWriter, r *http.Request, pageID int64) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
		return
	}
	var req ReorderRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	if err := p.st.ReorderBlocks(r.Context(), pageID, req.BlockIDs); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusBadRequest, "Reorder list does not match the page's blocks")
			return
		}
		p.logger.Error("Failed to reorder blocks", "page_id", pageID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to reorder blocks")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IndentEntry pairs one block with its computed editor nesting.
type IndentEntry struct {
	BlockID int64  `json:"block_id"`
	Caption string `json:"caption"`
	Depth   int    `json:"depth"`
	Offset  int    `json:"offset"`
}

// handleIndent computes display indentation for the page's block list from
// the <cms:NAME> markers in the template titles.
func (p *PageAPI) handleIndent(w http.ResponseWriter, r *http.Request, pageID int64) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
		return
	}

	blocks, err := p.st.PageBlocks(r.Context(), pageID)
	if err != nil {
		p.respondStoreError(w, err, "Failed to load page blocks", "page_id", pageID)
		return
	}
	cfg, err := p.st.SiteConfig(r.Context())
	if err != nil {
		p.respondStoreError(w, err, "Failed to load site settings", "page_id", pageID)
		return
	}
	blocks = store.VisibleBlocks(cfg, blocks)

	captions := make([]string, len(blocks))
	for i, b := range blocks {
		captions[i] = b.TemplateTitle
	}
	depths := p.indent.Depths(captions)
	offsets := compose.Offsets(depths)

	entries := make([]IndentEntry, len(blocks))
	for i, b := range blocks {
		entries[i] = IndentEntry{
			BlockID: b.ID,
			Caption: captions[i],
			Depth:   depths[i],
			Offset:  offsets[i],
		}
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// renderPage composes the page's blocks into a single HTML document, with
// the current site settings available as placeholder fallbacks.
func (p *PageAPI) renderPage(r *http.Request, pageID int64) (*store.Page, string, error) {
	page, err := p.st.GetPage(r.Context(), pageID)
	if err != nil {
		return nil, "", err
	}
	blocks, err := p.st.PageBlocks(r.Context(), pageID)
	if err != nil {
		return nil, "", err
	}
	cfg, err := p.st.SiteConfig(r.Context())
	if err != nil {
		return nil, "", err
	}
	html, err := compose.ComposeDocument(cfg, store.ComposeBlocks(blocks))
	if err != nil {
		return nil, "", err
	}
	return page, html, nil
}

// handlePreview renders the current page state without touching the
// published flag or the output directory.
func (p *PageAPI) handlePreview(w http.ResponseWriter, r *http.Request, pageID int64) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
		return
	}

	_, html, err := p.renderPage(r, pageID)
	if err != nil {
		if errors.Is(err, compose.ErrMissingTemplate) {
			respondWithError(w, http.StatusConflict, fmt.Sprintf("Page references a missing template: %v", err))
			return
		}
		p.respondStoreError(w, err, "Failed to render page preview", "page_id", pageID)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// handlePublish marks the page published and writes the rendered HTML to the
// output directory. The flag is committed before the file write, so a failed
// write leaves a published page without an artifact; the response reports
// the write error and the admin can retry.
func (p *PageAPI) handlePublish(w http.ResponseWriter, r *http.Request, pageID int64) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
		return
	}

	page, html, err := p.renderPage(r, pageID)
	if err != nil {
		if errors.Is(err, compose.ErrMissingTemplate) {
			respondWithError(w, http.StatusConflict, fmt.Sprintf("Page references a missing template: %v", err))
			return
		}
		p.respondStoreError(w, err, "Failed to render page", "page_id", pageID)
		return
	}

	if err = p.st.SetPublished(r.Context(), pageID, true); err != nil {
		p.respondStoreError(w, err, "Failed to mark page published", "page_id", pageID)
		return
	}

	path, err := p.pub.Publish(page.Slug, html)
	if err != nil {
		p.logger.Error("Publish write failed", "page_id", pageID, "slug", page.Slug, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Page marked published but artifact write failed: %v", err))
		return
	}

	p.logger.Info("Page published", "id", pageID, "slug", page.Slug, "path", path)
	respondWithJSON(w, http.StatusOK, map[string]any{
		"id":   pageID,
		"slug": page.Slug,
		"path": path,
	})
}

// handleUnpublish clears the published flag and removes the artifact if one
// exists.
func (p *PageAPI) handleUnpublish(w http.ResponseWriter, r *http.Request, pageID int64) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
		return
	}

	page, err := p.st.GetPage(r.Context(), pageID)
	if err != nil {
		p.respondStoreError(w, err, "Failed to get page", "id", pageID)
		return
	}
	if err = p.st.SetPublished(r.Context(), pageID, false); err != nil {
		p.respondStoreError(w, err, "Failed to mark page unpublished", "id", pageID)
		return
	}
	if err = os.Remove(p.pub.Path(page.Slug)); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("Failed to remove published artifact", "slug", page.Slug, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *PageAPI) handleExportOne(w http.ResponseWriter, r *http.Request, pageID int64) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
		return
	}
	rec, err := p.st.ExportPage(r.Context(), pageID)
	if err != nil {
		p.respondStoreError(w, err, "Failed to export page", "id", pageID)
		return
	}
	respondWithJSON(w, http.StatusOK, []store.ExportedPage{*rec})
}

func (p *PageAPI) handleExportAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
		return
	}
	records, err := p.st.ExportPages(r.Context())
	if err != nil {
		p.logger.Error("Failed to export pages", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to export pages")
		return
	}
	if records == nil {
		records = []store.ExportedPage{}
	}
	respondWithJSON(w, http.StatusOK, records)
}

// handleImport ingests an export document. Records are applied one at a
// time; a malformed record is reported in its outcome and never aborts the
// batch. Pass ?overwrite=1 to replace existing pages with matching slugs.
func (p *PageAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "pages:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
		return
	}

	var records []store.ExportedPage
	if err := decodeJSONBody(w, r, &records); err != nil {
		return
	}
	overwrite := r.URL.Query().Get("overwrite") == "1"

	outcomes, err := p.st.ImportPages(r.Context(), records, overwrite)
	if err != nil {
		p.logger.Error("Import failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Import failed")
		return
	}
	p.logger.Info("Import finished", "records", len(records), "overwrite", overwrite)
	respondWithJSON(w, http.StatusOK, outcomes)
}

// respondStoreError maps store errors onto HTTP statuses, logging anything
// unexpected.
func (p *PageAPI) respondStoreError(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrDuplicateSlug):
		respondWithError(w, http.StatusConflict, fmt.Sprintf("Slug already in use: %v", err))
	default:
		p.logger.Error(msg, append(args, "error", err)...)
		respondWithError(w, http.StatusInternalServerError, "Database operation failed")
	}
}
