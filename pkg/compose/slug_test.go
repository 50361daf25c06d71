package compose

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"About Us", "about-us"},
		{"Hello, World!", "hello-world"},
		{"  Spaced   Out  ", "spaced-out"},
		{"Already-Slugged", "already-slugged"},
		{"CAPS and 123", "caps-and-123"},
		{"___", "page"},
		{"", "page"},
		{"--flags--", "flags"},
		{"a!!!b", "a-b"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.title); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]struct{}{
		"about-us":   {},
		"about-us-2": {},
	}

	if got := UniqueSlug("About Us", taken); got != "about-us-3" {
		t.Errorf("UniqueSlug = %q, want %q", got, "about-us-3")
	}
	if got := UniqueSlug("Contact", taken); got != "contact" {
		t.Errorf("UniqueSlug with no collision = %q, want %q", got, "contact")
	}

	// The result must never be a member of the taken set, and the input set
	// must not be mutated.
	for _, title := range []string{"About Us", "about us", "!!!", "page"} {
		got := UniqueSlug(title, taken)
		if _, exists := taken[got]; exists {
			t.Errorf("UniqueSlug(%q) returned taken slug %q", title, got)
		}
	}
	if len(taken) != 2 {
		t.Errorf("UniqueSlug mutated the taken set: %v", taken)
	}
}

func TestUniqueSlugFallbackCollision(t *testing.T) {
	taken := map[string]struct{}{"page": {}}
	if got := UniqueSlug("???", taken); got != "page-2" {
		t.Errorf("UniqueSlug fallback collision = %q, want %q", got, "page-2")
	}
}
