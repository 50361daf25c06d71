package compose

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveDefaultAndOverride(t *testing.T) {
	tmpl := &Template{ID: 1, Title: "Heading", Slug: "heading", Category: "content", Content: "<h1>{{title}}</h1>"}
	values := map[string]string{"title": "Hi"}

	got, err := Resolve(PageBlock{ID: 1, UseDefault: true, CustomContent: "<p>{{title}}</p>", Template: tmpl, Values: values})
	if err != nil {
		t.Fatalf("Resolve with default failed: %v", err)
	}
	if got != "<h1>Hi</h1>" {
		t.Errorf("default resolution = %q, want %q", got, "<h1>Hi</h1>")
	}

	got, err = Resolve(PageBlock{ID: 1, UseDefault: false, CustomContent: "<p>{{title}}</p>", Template: tmpl, Values: values})
	if err != nil {
		t.Fatalf("Resolve with override failed: %v", err)
	}
	if got != "<p>Hi</p>" {
		t.Errorf("override resolution = %q, want %q", got, "<p>Hi</p>")
	}
}

func TestResolveMissingValuesBecomeEmpty(t *testing.T) {
	tmpl := &Template{ID: 1, Content: "a{{x}}b{{y:code}}c"}
	got, err := Resolve(PageBlock{UseDefault: true, Template: tmpl})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
	if strings.Contains(got, "{{") {
		t.Errorf("raw token left in output: %q", got)
	}
}

func TestResolveEmptyOverride(t *testing.T) {
	tmpl := &Template{ID: 1, Content: "default"}
	got, err := Resolve(PageBlock{UseDefault: false, CustomContent: "", Template: tmpl})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "" {
		t.Errorf("empty override must render empty, got %q", got)
	}
}

func TestResolveNoPlaceholders(t *testing.T) {
	tmpl := &Template{ID: 1, Content: "<footer>static</footer>"}
	got, err := Resolve(PageBlock{UseDefault: true, Template: tmpl, Values: map[string]string{"unused": "x"}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != tmpl.Content {
		t.Errorf("got %q, want source unchanged %q", got, tmpl.Content)
	}
}

func TestResolveMissingTemplate(t *testing.T) {
	_, err := Resolve(PageBlock{ID: 42, UseDefault: true})
	if !errors.Is(err, ErrMissingTemplate) {
		t.Fatalf("expected ErrMissingTemplate, got %v", err)
	}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("error should carry the block id: %v", err)
	}
}
