package compose

import (
	"strconv"
	"strings"
)

// slugFallback is used when a title contains no alphanumeric characters at
// all.
const slugFallback = "page"

// Slugify lowercases the title, collapses every run of non-alphanumeric
// characters into a single hyphen and trims leading and trailing hyphens.
// A title with nothing usable in it yields the fixed fallback.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return slugFallback
	}
	return slug
}

// UniqueSlug derives a slug from title that is not a member of taken,
// appending -2, -3, ... until it is free. It is a pure function of its
// inputs; the caller owns persisting the result.
func UniqueSlug(title string, taken map[string]struct{}) string {
	base := Slugify(title)
	slug := base
	for n := 2; ; n++ {
		if _, exists := taken[slug]; !exists {
			return slug
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}
