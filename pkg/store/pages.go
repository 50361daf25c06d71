package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oskarst/freedomCms/pkg/compose"
)

// Page is an ordered composition of template blocks identified by a unique
// slug. Published reflects admin intent, not artifact existence.
type Page struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Published bool   `json:"published"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Block is one template assignment on a page, joined with its template and
// carrying the editor-supplied parameter values.
type Block struct {
	ID            int64             `json:"id"`
	PageID        int64             `json:"page_id"`
	TemplateID    int64             `json:"template_id"`
	CustomContent string            `json:"custom_content"`
	UseDefault    bool              `json:"use_default"`
	SortOrder     int               `json:"sort_order"`
	TemplateTitle string            `json:"template_title"`
	TemplateSlug  string            `json:"template_slug"`
	Category      string            `json:"category"`
	Content       string            `json:"content"`
	Values        map[string]string `json:"values,omitempty"`
}

// Compose returns the engine-level view of the block, ready for rendering.
func (b *Block) Compose() compose.PageBlock {
	return compose.PageBlock{
		ID:            b.ID,
		SortOrder:     b.SortOrder,
		UseDefault:    b.UseDefault,
		CustomContent: b.CustomContent,
		Template: &compose.Template{
			ID:       b.TemplateID,
			Title:    b.TemplateTitle,
			Slug:     b.TemplateSlug,
			Category: b.Category,
			Content:  b.Content,
		},
		Values: b.Values,
	}
}

// BlockUpdate is one block's worth of editor form state for SaveBlocks.
type BlockUpdate struct {
	BlockID       int64             `json:"block_id"`
	CustomContent string            `json:"custom_content"`
	UseDefault    bool              `json:"use_default"`
	SortOrder     int               `json:"sort_order"`
	Values        map[string]string `json:"values"`
}

func scanPage(row interface{ Scan(...any) error }) (*Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPage fetches a page by id.
func (s *Store) GetPage(ctx context.Context, id int64) (*Page, error) {
	return scanPage(s.stmtGetPage.QueryRowContext(ctx, id))
}

// GetPageBySlug fetches a page by slug.
func (s *Store) GetPageBySlug(ctx context.Context, slug string) (*Page, error) {
	return scanPage(s.stmtGetPageBySlug.QueryRowContext(ctx, slug))
}

// ListPages returns all pages ordered by id.
func (s *Store) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := s.stmtListPages.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// PageSlugs returns the set of page slugs currently in use.
func (s *Store) PageSlugs(ctx context.Context) (map[string]struct{}, error) {
	return s.slugSet(ctx, s.stmtPageSlugs)
}

// CreatePage inserts a page and seeds it with one block per default
// template, in the templates' sort order, all inside one transaction. An
// empty slug is derived from the title; a colliding explicit slug returns
// ErrDuplicateSlug.
func (s *Store) CreatePage(ctx context.Context, title, slug string) (*Page, error) {
	taken, err := s.PageSlugs(ctx)
	if err != nil {
		return nil, err
	}
	if slug == "" {
		slug = compose.UniqueSlug(title, taken)
	} else if _, exists := taken[slug]; exists {
		return nil, fmt.Errorf("page slug %q: %w", slug, ErrDuplicateSlug)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var pageID int64
	if err = tx.QueryRowContext(ctx, `INSERT INTO pages (title, slug) VALUES (?, ?) RETURNING id`, title, slug).Scan(&pageID); err != nil {
		return nil, fmt.Errorf("could not insert page: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, sort_order FROM templates WHERE is_default = 1 ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	type def struct {
		id    int64
		order int
	}
	var defaults []def
	for rows.Next() {
		var d def
		if err = rows.Scan(&d.id, &d.order); err != nil {
			_ = rows.Close()
			return nil, err
		}
		defaults = append(defaults, d)
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, d := range defaults {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO page_blocks (page_id, template_id, use_default, sort_order) VALUES (?, ?, 1, ?)`,
			pageID, d.id, d.order); err != nil {
			return nil, fmt.Errorf("could not seed page blocks: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetPage(ctx, pageID)
}

// UpdatePage renames a page and/or changes its slug.
func (s *Store) UpdatePage(ctx context.Context, p *Page) error {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM pages WHERE slug = ?`, p.Slug).Scan(&ownerID)
	if err == nil && ownerID != p.ID {
		return fmt.Errorf("page slug %q: %w", p.Slug, ErrDuplicateSlug)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET title = ?, slug = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Title, p.Slug, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPublished flips a page's published flag. Publishing commits this
// before the artifact is written, so the flag records intent even when the
// file write later fails.
func (s *Store) SetPublished(ctx context.Context, id int64, published bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET published = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, published, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePage removes a page with its blocks and their parameter values in
// one transaction.
func (s *Store) DeletePage(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM block_params WHERE block_id IN (SELECT id FROM page_blocks WHERE page_id = ?)`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM page_blocks WHERE page_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// PageBlocks returns a page's blocks joined with their templates, in
// render order, each with its parameter values attached.
func (s *Store) PageBlocks(ctx context.Context, pageID int64) ([]Block, error) {
	rows, err := s.stmtPageBlocks.QueryContext(ctx, pageID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var blocks []Block
	for rows.Next() {
		var b Block
		if err = rows.Scan(&b.ID, &b.PageID, &b.TemplateID, &b.CustomContent, &b.UseDefault, &b.SortOrder,
			&b.TemplateTitle, &b.TemplateSlug, &b.Category, &b.Content); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range blocks {
		values, err := s.blockValues(ctx, blocks[i].ID)
		if err != nil {
			return nil, err
		}
		blocks[i].Values = values
	}
	return blocks, nil
}

func (s *Store) blockValues(ctx context.Context, blockID int64) (map[string]string, error) {
	rows, err := s.stmtBlockParams.QueryContext(ctx, blockID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err = rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		values[name] = value
	}
	if len(values) == 0 {
		return nil, rows.Err()
	}
	return values, rows.Err()
}

// AddBlock appends a template to a page at the end of the sort order.
func (s *Store) AddBlock(ctx context.Context, pageID, templateID int64) (int64, error) {
	if _, err := s.GetPage(ctx, pageID); err != nil {
		return 0, err
	}
	if _, err := s.GetTemplate(ctx, templateID); err != nil {
		return 0, err
	}

	var blockID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO page_blocks (page_id, template_id, use_default, sort_order)
		 VALUES (?, ?, 1, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM page_blocks WHERE page_id = ?))
		 RETURNING id`,
		pageID, templateID, pageID).Scan(&blockID)
	if err != nil {
		return 0, fmt.Errorf("could not add block: %w", err)
	}
	return blockID, nil
}

// DeleteBlock removes one block and its parameter values.
func (s *Store) DeleteBlock(ctx context.Context, pageID, blockID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM block_params WHERE block_id = ?`, blockID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM page_blocks WHERE id = ? AND page_id = ?`, blockID, pageID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// SaveBlocks applies a batch of editor updates (content, use_default flag,
// sort order and parameter values) to a page's blocks in one transaction,
// so a concurrent reader never observes a half-saved page.
func (s *Store) SaveBlocks(ctx context.Context, pageID int64, updates []BlockUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, u := range updates {
		res, err := tx.ExecContext(ctx,
			`UPDATE page_blocks SET custom_content = ?, use_default = ?, sort_order = ? WHERE id = ? AND page_id = ?`,
			u.CustomContent, u.UseDefault, u.SortOrder, u.BlockID, pageID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("block %d on page %d: %w", u.BlockID, pageID, ErrNotFound)
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM block_params WHERE block_id = ?`, u.BlockID); err != nil {
			return err
		}
		for name, value := range u.Values {
			if _, err = tx.ExecContext(ctx, `INSERT INTO block_params (block_id, name, value) VALUES (?, ?, ?)`, u.BlockID, name, value); err != nil {
				return err
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE pages SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, pageID); err != nil {
		return err
	}

	return tx.Commit()
}

// ReorderBlocks rewrites a page's block sort order to match the given id
// sequence, as one transaction. Ids not belonging to the page fail the
// whole batch.
func (s *Store) ReorderBlocks(ctx context.Context, pageID int64, orderedIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for i, blockID := range orderedIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE page_blocks SET sort_order = ? WHERE id = ? AND page_id = ?`,
			i+1, blockID, pageID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("block %d on page %d: %w", blockID, pageID, ErrNotFound)
		}
	}

	return tx.Commit()
}

// ComposeBlocks converts a page's stored blocks into the engine's input
// shape.
func ComposeBlocks(blocks []Block) []compose.PageBlock {
	out := make([]compose.PageBlock, len(blocks))
	for i := range blocks {
		out[i] = blocks[i].Compose()
	}
	return out
}

// VisibleBlocks filters a page's blocks down to what the editor shows under
// the given site configuration: with HideSystemBlocks set, system-category
// blocks are dropped. Rendering always uses the full list.
func VisibleBlocks(cfg compose.SiteConfig, blocks []Block) []Block {
	if !cfg.HideSystemBlocks {
		return blocks
	}
	visible := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Category == "system" {
			continue
		}
		visible = append(visible, b)
	}
	return visible
}
