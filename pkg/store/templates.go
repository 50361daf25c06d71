package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oskarst/freedomCms/pkg/compose"
)

// Template is a reusable block definition. IsDefault templates are copied
// into every newly created page; SortOrder is their default position there.
type Template struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Category  string `json:"category"`
	Content   string `json:"content"`
	IsDefault bool   `json:"is_default"`
	SortOrder int    `json:"sort_order"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Compose returns the engine-level view of the template.
func (t *Template) Compose() *compose.Template {
	return &compose.Template{
		ID:       t.ID,
		Title:    t.Title,
		Slug:     t.Slug,
		Category: t.Category,
		Content:  t.Content,
	}
}

func scanTemplate(row interface{ Scan(...any) error }) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Title, &t.Slug, &t.Category, &t.Content, &t.IsDefault, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTemplate fetches a template by id, returning ErrNotFound when it does
// not exist.
func (s *Store) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	return scanTemplate(s.stmtGetTemplate.QueryRowContext(ctx, id))
}

// GetTemplateBySlug fetches a template by slug.
func (s *Store) GetTemplateBySlug(ctx context.Context, slug string) (*Template, error) {
	return scanTemplate(s.stmtGetTemplateBySlug.QueryRowContext(ctx, slug))
}

// ListTemplates returns all templates ordered by sort order, then id.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.stmtListTemplates.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var templates []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// TemplateSlugs returns the set of slugs currently in use, for feeding the
// slug generator.
func (s *Store) TemplateSlugs(ctx context.Context) (map[string]struct{}, error) {
	return s.slugSet(ctx, s.stmtTemplateSlugs)
}

func (s *Store) slugSet(ctx context.Context, stmt *sql.Stmt) (map[string]struct{}, error) {
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	set := make(map[string]struct{})
	for rows.Next() {
		var slug string
		if err = rows.Scan(&slug); err != nil {
			return nil, err
		}
		set[slug] = struct{}{}
	}
	return set, rows.Err()
}

// CreateTemplate inserts a new template. An empty slug is derived from the
// title and made unique; an explicit slug that collides returns
// ErrDuplicateSlug. A negative SortOrder requests placement after the
// current maximum; any non-negative value, zero included, is stored as
// given. The template's id, slug and sort order are filled in on success.
func (s *Store) CreateTemplate(ctx context.Context, t *Template) error {
	taken, err := s.TemplateSlugs(ctx)
	if err != nil {
		return err
	}
	if t.Slug == "" {
		t.Slug = compose.UniqueSlug(t.Title, taken)
	} else if _, exists := taken[t.Slug]; exists {
		return fmt.Errorf("template slug %q: %w", t.Slug, ErrDuplicateSlug)
	}
	if t.Category == "" {
		t.Category = "content"
	}
	if t.SortOrder < 0 {
		if err = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM templates`).Scan(&t.SortOrder); err != nil {
			return err
		}
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO templates (title, slug, category, content, is_default, sort_order) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		t.Title, t.Slug, t.Category, t.Content, t.IsDefault, t.SortOrder).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("could not insert template: %w", err)
	}
	return nil
}

// UpdateTemplate rewrites a template's editable fields. Renaming onto a
// slug another template owns returns ErrDuplicateSlug.
func (s *Store) UpdateTemplate(ctx context.Context, t *Template) error {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM templates WHERE slug = ?`, t.Slug).Scan(&ownerID)
	if err == nil && ownerID != t.ID {
		return fmt.Errorf("template slug %q: %w", t.Slug, ErrDuplicateSlug)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE templates SET title = ?, slug = ?, category = ?, content = ?, is_default = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.Title, t.Slug, t.Category, t.Content, t.IsDefault, t.SortOrder, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template. Deletion is refused with
// ErrTemplateInUse while any page block references it; the same policy
// holds everywhere, imports included.
func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	var refs int
	if err := s.stmtCountBlockRefs.QueryRowContext(ctx, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("template %d has %d references: %w", id, refs, ErrTemplateInUse)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DuplicateTemplate copies an existing template under a new title with a
// fresh unique slug, placed at the end of the sort order.
func (s *Store) DuplicateTemplate(ctx context.Context, id int64, newTitle string) (*Template, error) {
	src, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if newTitle == "" {
		newTitle = src.Title + " Copy"
	}

	dup := &Template{
		Title:     newTitle,
		Category:  src.Category,
		Content:   src.Content,
		IsDefault: src.IsDefault,
		SortOrder: -1,
	}
	if err = s.CreateTemplate(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}
