package compose

import (
	"errors"
	"fmt"
)

// ErrMissingTemplate reports a page block whose template reference does not
// resolve. It is a data-integrity failure; callers surface it rather than
// retrying.
var ErrMissingTemplate = errors.New("referenced template does not exist")

// Template is the reusable block definition a page block points at. Content
// is raw text that may contain placeholders; Category is either "system" or
// "content".
type Template struct {
	ID       int64
	Title    string
	Slug     string
	Category string
	Content  string
}

// PageBlock is one template assignment on a page, carrying everything the
// composer needs: the resolved template, any per-page override, and the
// parameter values collected from the editor.
type PageBlock struct {
	ID            int64
	SortOrder     int
	UseDefault    bool
	CustomContent string
	Template      *Template
	Values        map[string]string
}

// Resolve produces the final HTML fragment for a single block. When
// UseDefault is set the template's content is the source and any stored
// override is ignored; otherwise the override is used as-is. Every
// placeholder is substituted, with missing values becoming empty strings,
// so no {{...}} token survives in the output.
func Resolve(b PageBlock) (string, error) {
	if b.Template == nil {
		return "", fmt.Errorf("block %d: %w", b.ID, ErrMissingTemplate)
	}
	source := b.CustomContent
	if b.UseDefault {
		source = b.Template.Content
	}
	return substitute(source, b.Values), nil
}
