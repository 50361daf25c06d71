package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ExportedPage is the JSON interchange shape for one page. A page exported
// here and imported into another store with matching template slugs renders
// byte-identically.
type ExportedPage struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Published bool            `json:"published"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Templates []ExportedBlock `json:"templates"`
}

// ExportedBlock is one block assignment within an ExportedPage. Template
// identity travels as both id and slug; import resolves by slug first so
// exports move cleanly between databases.
type ExportedBlock struct {
	ID            int64             `json:"id"`
	TemplateID    int64             `json:"template_id"`
	TemplateTitle string            `json:"template_title"`
	TemplateSlug  string            `json:"template_slug"`
	CustomContent string            `json:"custom_content"`
	UseDefault    bool              `json:"use_default"`
	SortOrder     int               `json:"sort_order"`
	Parameters    map[string]string `json:"parameters,omitempty"`
}

// ImportOutcome reports what happened to a single record during import.
// Imports are never all-or-nothing; each record carries its own result.
type ImportOutcome struct {
	Slug   string `json:"slug"`
	Status string `json:"status"` // "imported" or "skipped"
	Reason string `json:"reason,omitempty"`
}

// ExportPage serializes one page with its blocks.
func (s *Store) ExportPage(ctx context.Context, pageID int64) (*ExportedPage, error) {
	page, err := s.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	blocks, err := s.PageBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}

	exported := &ExportedPage{
		ID:        page.ID,
		Title:     page.Title,
		Slug:      page.Slug,
		Published: page.Published,
		CreatedAt: page.CreatedAt,
		UpdatedAt: page.UpdatedAt,
		Templates: make([]ExportedBlock, 0, len(blocks)),
	}
	for _, b := range blocks {
		exported.Templates = append(exported.Templates, ExportedBlock{
			ID:            b.ID,
			TemplateID:    b.TemplateID,
			TemplateTitle: b.TemplateTitle,
			TemplateSlug:  b.TemplateSlug,
			CustomContent: b.CustomContent,
			UseDefault:    b.UseDefault,
			SortOrder:     b.SortOrder,
			Parameters:    b.Values,
		})
	}
	return exported, nil
}

// ExportPages serializes every page in the store.
func (s *Store) ExportPages(ctx context.Context) ([]ExportedPage, error) {
	pages, err := s.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	exported := make([]ExportedPage, 0, len(pages))
	for _, p := range pages {
		ep, err := s.ExportPage(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		exported = append(exported, *ep)
	}
	return exported, nil
}

// ImportPages loads exported records into the store. Records missing
// required fields or referencing a template slug the store does not have
// are skipped individually; each record commits in its own transaction and
// the returned outcomes mirror the input order. With overwrite set, an
// existing page with the same slug has its blocks replaced wholesale;
// without it the record is skipped.
func (s *Store) ImportPages(ctx context.Context, records []ExportedPage, overwrite bool) ([]ImportOutcome, error) {
	outcomes := make([]ImportOutcome, 0, len(records))
	for _, rec := range records {
		outcome := s.importPage(ctx, rec, overwrite)
		if outcome.Status == "skipped" {
			s.logger.Warn("import record skipped", "slug", rec.Slug, "reason", outcome.Reason)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *Store) importPage(ctx context.Context, rec ExportedPage, overwrite bool) ImportOutcome {
	if rec.Slug == "" || rec.Title == "" {
		return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: "missing title or slug"}
	}

	// Resolve every template reference up front so a bad record never
	// half-imports.
	templateIDs := make([]int64, len(rec.Templates))
	for i, b := range rec.Templates {
		if b.TemplateSlug == "" {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: "block missing template_slug"}
		}
		tmpl, err := s.GetTemplateBySlug(ctx, b.TemplateSlug)
		if errors.Is(err, ErrNotFound) {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: fmt.Sprintf("unknown template slug %q", b.TemplateSlug)}
		}
		if err != nil {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
		}
		templateIDs[i] = tmpl.ID
	}

	existing, err := s.GetPageBySlug(ctx, rec.Slug)
	switch {
	case err == nil && !overwrite:
		return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: "page exists and overwrite not set"}
	case err != nil && !errors.Is(err, ErrNotFound):
		return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var pageID int64
	if existing != nil {
		pageID = existing.ID
		if _, err = tx.ExecContext(ctx, `UPDATE pages SET title = ?, published = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			rec.Title, rec.Published, pageID); err != nil {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM block_params WHERE block_id IN (SELECT id FROM page_blocks WHERE page_id = ?)`, pageID); err != nil {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM page_blocks WHERE page_id = ?`, pageID); err != nil {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
		}
	} else {
		if err = tx.QueryRowContext(ctx, `INSERT INTO pages (title, slug, published) VALUES (?, ?, ?) RETURNING id`,
			rec.Title, rec.Slug, rec.Published).Scan(&pageID); err != nil {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
		}
	}

	for i, b := range rec.Templates {
		var blockID int64
		if err = tx.QueryRowContext(ctx,
			`INSERT INTO page_blocks (page_id, template_id, custom_content, use_default, sort_order) VALUES (?, ?, ?, ?, ?) RETURNING id`,
			pageID, templateIDs[i], b.CustomContent, b.UseDefault, b.SortOrder).Scan(&blockID); err != nil {
			return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
		}
		for name, value := range b.Parameters {
			if _, err = tx.ExecContext(ctx, `INSERT INTO block_params (block_id, name, value) VALUES (?, ?, ?)`, blockID, name, value); err != nil {
				return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return ImportOutcome{Slug: rec.Slug, Status: "skipped", Reason: err.Error()}
	}
	return ImportOutcome{Slug: rec.Slug, Status: "imported"}
}
