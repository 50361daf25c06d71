package store

import "errors"

var (
	// ErrNotFound is returned when a template, page or block id does not
	// resolve to a row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSlug is returned when a create or rename would violate
	// slug uniqueness. Callers either regenerate with an expanded taken set
	// or surface it to the admin.
	ErrDuplicateSlug = errors.New("slug already in use")

	// ErrTemplateInUse is returned when deleting a template that page
	// blocks still reference. The reference must be removed first; deletes
	// never cascade through pages.
	ErrTemplateInUse = errors.New("template is referenced by page blocks")
)
