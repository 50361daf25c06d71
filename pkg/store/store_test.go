package store

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestStore creates a fresh on-disk SQLite database in a temp dir and
// a Store on top of it. Cleanup is handled via t.Cleanup.
func setupTestStore(tb testing.TB) (context.Context, *Store) {
	tb.Helper()

	dbFile := filepath.Join(tb.TempDir(), "cms.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err = SetupSchema(db); err != nil {
		tb.Fatalf("failed to set up schema: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(db, logger)
	if err != nil {
		tb.Fatalf("New() error = %v", err)
	}
	tb.Cleanup(s.Close)

	return context.Background(), s
}

// mustCreateTemplate is a shorthand for seeding a template in tests.
func mustCreateTemplate(tb testing.TB, ctx context.Context, s *Store, t Template) *Template {
	tb.Helper()
	if err := s.CreateTemplate(ctx, &t); err != nil {
		tb.Fatalf("CreateTemplate(%q) failed: %v", t.Title, err)
	}
	return &t
}

func TestSetupSchemaIdempotent(t *testing.T) {
	ctx, s := setupTestStore(t)
	if err := SetupSchema(s.db); err != nil {
		t.Fatalf("second SetupSchema failed: %v", err)
	}
	settings, err := s.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings failed: %v", err)
	}
	if len(settings) == 0 {
		t.Error("default settings should be seeded")
	}
}

func TestTemplateCRUD(t *testing.T) {
	ctx, s := setupTestStore(t)

	tmpl := mustCreateTemplate(t, ctx, s, Template{Title: "Hero Section", Content: "<h1>{{title}}</h1>", Category: "content"})
	if tmpl.ID == 0 {
		t.Fatal("CreateTemplate should fill in the id")
	}
	if tmpl.Slug != "hero-section" {
		t.Errorf("derived slug = %q, want %q", tmpl.Slug, "hero-section")
	}

	got, err := s.GetTemplate(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.Content != tmpl.Content || got.Category != "content" {
		t.Errorf("GetTemplate = %+v", got)
	}

	got.Title = "Hero"
	got.Content = "<h1>{{headline}}</h1>"
	if err = s.UpdateTemplate(ctx, got); err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}
	got, err = s.GetTemplateBySlug(ctx, "hero-section")
	if err != nil {
		t.Fatalf("GetTemplateBySlug failed: %v", err)
	}
	if got.Title != "Hero" {
		t.Errorf("update not persisted: %+v", got)
	}

	if err = s.DeleteTemplate(ctx, tmpl.ID); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if _, err = s.GetTemplate(ctx, tmpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateTemplateDuplicateSlug(t *testing.T) {
	ctx, s := setupTestStore(t)

	mustCreateTemplate(t, ctx, s, Template{Title: "Footer", Slug: "footer"})

	err := s.CreateTemplate(ctx, &Template{Title: "Other", Slug: "footer"})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}

	// A derived slug walks past the collision instead of failing.
	second := mustCreateTemplate(t, ctx, s, Template{Title: "Footer"})
	if second.Slug != "footer-2" {
		t.Errorf("derived slug = %q, want %q", second.Slug, "footer-2")
	}
}

func TestCreateTemplateSortOrder(t *testing.T) {
	ctx, s := setupTestStore(t)

	first := mustCreateTemplate(t, ctx, s, Template{Title: "Hero", SortOrder: 5})
	if first.SortOrder != 5 {
		t.Errorf("explicit sort order = %d, want 5", first.SortOrder)
	}

	// Position 0 is a real position, not a request for auto-placement.
	zero := mustCreateTemplate(t, ctx, s, Template{Title: "Banner", SortOrder: 0})
	if zero.SortOrder != 0 {
		t.Errorf("sort order 0 should be stored as given, got %d", zero.SortOrder)
	}

	// A negative sort order appends after the current maximum.
	appended := mustCreateTemplate(t, ctx, s, Template{Title: "Footer", SortOrder: -1})
	if appended.SortOrder != 6 {
		t.Errorf("appended sort order = %d, want 6", appended.SortOrder)
	}
}

func TestDeleteTemplateInUse(t *testing.T) {
	ctx, s := setupTestStore(t)

	tmpl := mustCreateTemplate(t, ctx, s, Template{Title: "Body", IsDefault: true})
	if _, err := s.CreatePage(ctx, "Home", ""); err != nil {
		t.Fatalf("CreatePage failed: %v", err)
	}

	err := s.DeleteTemplate(ctx, tmpl.ID)
	if !errors.Is(err, ErrTemplateInUse) {
		t.Fatalf("expected ErrTemplateInUse, got %v", err)
	}

	// Still present and still deletable once the reference goes away.
	page, err := s.GetPageBySlug(ctx, "home")
	if err != nil {
		t.Fatalf("GetPageBySlug failed: %v", err)
	}
	if err = s.DeletePage(ctx, page.ID); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	if err = s.DeleteTemplate(ctx, tmpl.ID); err != nil {
		t.Fatalf("DeleteTemplate after unreference failed: %v", err)
	}
}

func TestDuplicateTemplate(t *testing.T) {
	ctx, s := setupTestStore(t)

	src := mustCreateTemplate(t, ctx, s, Template{Title: "Hero", Content: "<h1>{{t}}</h1>", Category: "content"})
	dup, err := s.DuplicateTemplate(ctx, src.ID, "")
	if err != nil {
		t.Fatalf("DuplicateTemplate failed: %v", err)
	}
	if dup.ID == src.ID || dup.Slug == src.Slug {
		t.Errorf("duplicate must get its own identity: %+v", dup)
	}
	if dup.Title != "Hero Copy" || dup.Content != src.Content {
		t.Errorf("duplicate content mismatch: %+v", dup)
	}
}

func TestSettings(t *testing.T) {
	ctx, s := setupTestStore(t)

	if err := s.SetSetting(ctx, "site_name", "My Site", ""); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := s.SetSetting(ctx, "custom_key", "42", "a custom knob"); err != nil {
		t.Fatalf("SetSetting insert failed: %v", err)
	}

	m, err := s.SettingsMap(ctx)
	if err != nil {
		t.Fatalf("SettingsMap failed: %v", err)
	}
	if m["site_name"] != "My Site" || m["custom_key"] != "42" {
		t.Errorf("unexpected settings map: %v", m)
	}

	// Updating with an empty description keeps the seeded one.
	settings, err := s.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings failed: %v", err)
	}
	for _, st := range settings {
		if st.Key == "site_name" && st.Description == "" {
			t.Error("description should survive a value-only update")
		}
	}

	cfg, err := s.SiteConfig(ctx)
	if err != nil {
		t.Fatalf("SiteConfig failed: %v", err)
	}
	if cfg.SiteName != "My Site" {
		t.Errorf("SiteConfig.SiteName = %q", cfg.SiteName)
	}
	if !cfg.HideSystemBlocks {
		t.Error("hide_system_blocks default should be on")
	}
}

func TestSetSettingsAtomic(t *testing.T) {
	ctx, s := setupTestStore(t)

	err := s.SetSettings(ctx, []Setting{
		{Key: "site_name", Value: "Batch Site"},
		{Key: "custom_key", Value: "42", Description: "a custom knob"},
	})
	if err != nil {
		t.Fatalf("SetSettings failed: %v", err)
	}
	m, err := s.SettingsMap(ctx)
	if err != nil {
		t.Fatalf("SettingsMap failed: %v", err)
	}
	if m["site_name"] != "Batch Site" || m["custom_key"] != "42" {
		t.Errorf("batch not applied: %v", m)
	}

	// A bad entry mid-batch rolls back everything before it.
	err = s.SetSettings(ctx, []Setting{
		{Key: "site_name", Value: "Half Applied"},
		{Key: "", Value: "oops"},
	})
	if err == nil {
		t.Fatal("expected an error for an empty key")
	}
	m, err = s.SettingsMap(ctx)
	if err != nil {
		t.Fatalf("SettingsMap failed: %v", err)
	}
	if m["site_name"] != "Batch Site" {
		t.Errorf("failed batch must leave settings untouched, site_name = %q", m["site_name"])
	}
}
