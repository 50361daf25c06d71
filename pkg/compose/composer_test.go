package compose

import (
	"errors"
	"strings"
	"testing"
)

func marker(id int64, text string) PageBlock {
	return PageBlock{
		ID:         id,
		UseDefault: true,
		Template:   &Template{ID: id, Content: text},
	}
}

func TestComposePageOrdering(t *testing.T) {
	// Lowest sort_order renders first; ties broken by block id ascending.
	blocks := []PageBlock{
		func() PageBlock { b := marker(3, "[three]"); b.SortOrder = 10; return b }(),
		func() PageBlock { b := marker(1, "[one]"); b.SortOrder = 10; return b }(),
		func() PageBlock { b := marker(2, "[two]"); b.SortOrder = 5; return b }(),
	}

	got, err := ComposePage(blocks)
	if err != nil {
		t.Fatalf("ComposePage failed: %v", err)
	}
	if got != "[two][one][three]" {
		t.Errorf("ComposePage = %q, want %q", got, "[two][one][three]")
	}
}

func TestComposePageDoesNotReorderInput(t *testing.T) {
	blocks := []PageBlock{
		func() PageBlock { b := marker(2, "b"); b.SortOrder = 2; return b }(),
		func() PageBlock { b := marker(1, "a"); b.SortOrder = 1; return b }(),
	}
	if _, err := ComposePage(blocks); err != nil {
		t.Fatalf("ComposePage failed: %v", err)
	}
	if blocks[0].ID != 2 {
		t.Error("ComposePage must sort a copy, not the caller's slice")
	}
}

func TestComposePageIdempotent(t *testing.T) {
	hero := &Template{ID: 1, Content: "<section>{{headline}}</section>"}
	footer := &Template{ID: 2, Content: "<footer>{{year}}</footer>"}
	blocks := []PageBlock{
		{ID: 1, SortOrder: 1, UseDefault: true, Template: hero, Values: map[string]string{"headline": "Welcome"}},
		{ID: 2, SortOrder: 2, UseDefault: false, CustomContent: "<footer>custom {{year}}</footer>", Template: footer, Values: map[string]string{"year": "2026"}},
	}

	first, err := ComposePage(blocks)
	if err != nil {
		t.Fatalf("first ComposePage failed: %v", err)
	}
	second, err := ComposePage(blocks)
	if err != nil {
		t.Fatalf("second ComposePage failed: %v", err)
	}
	if first != second {
		t.Errorf("composition is not idempotent:\n%q\n%q", first, second)
	}
	if first != "<section>Welcome</section><footer>custom 2026</footer>" {
		t.Errorf("unexpected composition: %q", first)
	}
}

func TestComposePageNoSeparator(t *testing.T) {
	got, err := ComposePage([]PageBlock{
		func() PageBlock { b := marker(1, "a"); b.SortOrder = 1; return b }(),
		func() PageBlock { b := marker(2, "b"); b.SortOrder = 2; return b }(),
	})
	if err != nil {
		t.Fatalf("ComposePage failed: %v", err)
	}
	if got != "ab" {
		t.Errorf("fragments must concatenate with no separator, got %q", got)
	}
}

func TestComposePageMissingTemplate(t *testing.T) {
	blocks := []PageBlock{
		func() PageBlock { b := marker(1, "ok"); b.SortOrder = 1; return b }(),
		{ID: 2, SortOrder: 2, UseDefault: true},
	}
	_, err := ComposePage(blocks)
	if !errors.Is(err, ErrMissingTemplate) {
		t.Fatalf("expected ErrMissingTemplate, got %v", err)
	}
}

func TestComposePageLeavesNoTokens(t *testing.T) {
	tmpl := &Template{ID: 1, Content: "<h1>{{title}}</h1><p>{{body:wysiwyg}}</p><pre>{{snip:code}}</pre>"}
	for _, values := range []map[string]string{nil, {"title": "t"}, {"title": "t", "body": "b", "snip": "s"}} {
		out, err := ComposePage([]PageBlock{{ID: 1, SortOrder: 1, UseDefault: true, Template: tmpl, Values: values}})
		if err != nil {
			t.Fatalf("ComposePage failed: %v", err)
		}
		if strings.Contains(out, "{{") {
			t.Errorf("values %v left a raw token in %q", values, out)
		}
	}
}

func TestComposeDocumentSiteValues(t *testing.T) {
	tmpl := &Template{ID: 1, Content: "<title>{{site_name}}</title><h1>{{headline}}</h1>"}
	blocks := []PageBlock{
		{ID: 1, SortOrder: 1, UseDefault: true, Template: tmpl, Values: map[string]string{"headline": "Welcome"}},
	}
	cfg := DefaultSiteConfig()
	cfg.SiteName = "My Site"

	got, err := ComposeDocument(cfg, blocks)
	if err != nil {
		t.Fatalf("ComposeDocument failed: %v", err)
	}
	if got != "<title>My Site</title><h1>Welcome</h1>" {
		t.Errorf("ComposeDocument = %q", got)
	}

	// A block value under the same name beats the site setting.
	blocks[0].Values["site_name"] = "Per-Block Title"
	got, err = ComposeDocument(cfg, blocks)
	if err != nil {
		t.Fatalf("ComposeDocument with override failed: %v", err)
	}
	if got != "<title>Per-Block Title</title><h1>Welcome</h1>" {
		t.Errorf("block value should win over site value, got %q", got)
	}
}

func TestComposeDocumentDoesNotMutateInput(t *testing.T) {
	tmpl := &Template{ID: 1, Content: "{{site_name}}"}
	blocks := []PageBlock{{ID: 1, SortOrder: 1, UseDefault: true, Template: tmpl}}

	if _, err := ComposeDocument(DefaultSiteConfig(), blocks); err != nil {
		t.Fatalf("ComposeDocument failed: %v", err)
	}
	if blocks[0].Values != nil {
		t.Errorf("caller's block values must stay untouched: %v", blocks[0].Values)
	}
}

func BenchmarkComposePage(b *testing.B) {
	tmpl := &Template{ID: 1, Content: strings.Repeat("<p>{{a}} text {{b:code}}</p>", 50)}
	blocks := make([]PageBlock, 0, 20)
	for i := int64(1); i <= 20; i++ {
		blocks = append(blocks, PageBlock{
			ID: i, SortOrder: int(i), UseDefault: true, Template: tmpl,
			Values: map[string]string{"a": "alpha", "b": "beta"},
		})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ComposePage(blocks); err != nil {
			b.Fatal(err)
		}
	}
}
