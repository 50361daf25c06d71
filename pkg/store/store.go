package store

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// SetupSchema creates the content tables and seeds the default settings.
// It should be called once on startup, before a Store is created. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaTemplates = `
CREATE TABLE IF NOT EXISTS templates (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT    NOT NULL,
    slug       TEXT    NOT NULL UNIQUE,
    category   TEXT    NOT NULL DEFAULT 'content',
    content    TEXT    NOT NULL DEFAULT '',
    is_default INTEGER NOT NULL DEFAULT 1,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
		schemaPages = `
CREATE TABLE IF NOT EXISTS pages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT    NOT NULL,
    slug       TEXT    NOT NULL UNIQUE,
    published  INTEGER NOT NULL DEFAULT 0,
    created_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
		schemaBlocks = `
CREATE TABLE IF NOT EXISTS page_blocks (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id        INTEGER NOT NULL REFERENCES pages(id),
    template_id    INTEGER NOT NULL REFERENCES templates(id),
    custom_content TEXT,
    use_default    INTEGER NOT NULL DEFAULT 1,
    sort_order     INTEGER NOT NULL DEFAULT 0
);
`
		schemaBlockParams = `
CREATE TABLE IF NOT EXISTS block_params (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    block_id INTEGER NOT NULL REFERENCES page_blocks(id),
    name     TEXT    NOT NULL,
    value    TEXT    NOT NULL DEFAULT '',
    UNIQUE (block_id, name)
);
`
		schemaSettings = `
CREATE TABLE IF NOT EXISTS settings (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    key         TEXT    NOT NULL UNIQUE,
    value       TEXT    NOT NULL DEFAULT '',
    description TEXT    NOT NULL DEFAULT '',
    updated_at  TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	)

	defaultSettings := [][3]string{
		{"site_name", "FreedomCMS", "Site name displayed in the admin"},
		{"site_description", "A block-based CMS", "Site description"},
		{"base_url", "http://localhost:7297", "Base URL the published site is served from"},
		{"hide_system_blocks", "1", "Hide system template blocks by default in the page editor"},
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaTemplates, schemaPages, schemaBlocks, schemaBlockParams, schemaSettings} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	for _, s := range defaultSettings {
		if _, err = tx.Exec(`INSERT OR IGNORE INTO settings (key, value, description) VALUES (?, ?, ?)`, s[0], s[1], s[2]); err != nil {
			return fmt.Errorf("could not seed default settings: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store provides access to the CMS content database. It holds prepared
// statements for the hot read paths; multi-statement writes run in their
// own transactions. All methods are safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	stmtGetTemplate       *sql.Stmt
	stmtGetTemplateBySlug *sql.Stmt
	stmtListTemplates     *sql.Stmt
	stmtTemplateSlugs     *sql.Stmt
	stmtCountBlockRefs    *sql.Stmt
	stmtGetPage           *sql.Stmt
	stmtGetPageBySlug     *sql.Stmt
	stmtListPages         *sql.Stmt
	stmtPageSlugs         *sql.Stmt
	stmtPageBlocks        *sql.Stmt
	stmtBlockParams       *sql.Stmt
	stmtListSettings      *sql.Stmt
}

// New creates a Store on top of an initialized database. Call Close when
// done to release the prepared statements.
func New(db *sql.DB, logger *slog.Logger) (*Store, error) {
	s := &Store{db: db, logger: logger}

	prepared := []struct {
		stmt **sql.Stmt
		sql  string
	}{
		{&s.stmtGetTemplate, `SELECT id, title, slug, category, content, is_default, sort_order, created_at, updated_at FROM templates WHERE id = ?`},
		{&s.stmtGetTemplateBySlug, `SELECT id, title, slug, category, content, is_default, sort_order, created_at, updated_at FROM templates WHERE slug = ?`},
		{&s.stmtListTemplates, `SELECT id, title, slug, category, content, is_default, sort_order, created_at, updated_at FROM templates ORDER BY sort_order, id`},
		{&s.stmtTemplateSlugs, `SELECT slug FROM templates`},
		{&s.stmtCountBlockRefs, `SELECT COUNT(*) FROM page_blocks WHERE template_id = ?`},
		{&s.stmtGetPage, `SELECT id, title, slug, published, created_at, updated_at FROM pages WHERE id = ?`},
		{&s.stmtGetPageBySlug, `SELECT id, title, slug, published, created_at, updated_at FROM pages WHERE slug = ?`},
		{&s.stmtListPages, `SELECT id, title, slug, published, created_at, updated_at FROM pages ORDER BY id`},
		{&s.stmtPageSlugs, `SELECT slug FROM pages`},
		{&s.stmtPageBlocks, `
SELECT pb.id, pb.page_id, pb.template_id, COALESCE(pb.custom_content, ''), pb.use_default, pb.sort_order,
       t.title, t.slug, t.category, t.content
FROM page_blocks pb
JOIN templates t ON t.id = pb.template_id
WHERE pb.page_id = ?
ORDER BY pb.sort_order, pb.id`},
		{&s.stmtBlockParams, `SELECT name, value FROM block_params WHERE block_id = ?`},
		{&s.stmtListSettings, `SELECT key, value, description, updated_at FROM settings ORDER BY key`},
	}

	for _, p := range prepared {
		stmt, err := db.Prepare(p.sql)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*p.stmt = stmt
	}

	return s, nil
}

// Close releases all prepared statements held by the Store. It does not
// close the underlying database.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetTemplate, s.stmtGetTemplateBySlug, s.stmtListTemplates,
		s.stmtTemplateSlugs, s.stmtCountBlockRefs,
		s.stmtGetPage, s.stmtGetPageBySlug, s.stmtListPages, s.stmtPageSlugs,
		s.stmtPageBlocks, s.stmtBlockParams, s.stmtListSettings,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}
