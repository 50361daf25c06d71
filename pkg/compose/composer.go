package compose

import (
	"sort"
	"strings"
)

// ComposePage renders a page's blocks into a single HTML string. Blocks are
// ordered by ascending sort order, ties broken by block id ascending, each
// is resolved through Resolve and the fragments are concatenated with no
// separator; templates own their whitespace. The same input always yields
// byte-identical output.
//
// The result serves both preview and publish: the composer never injects a
// document wrapper, layout comes entirely from system templates.
func ComposePage(blocks []PageBlock) (string, error) {
	ordered := make([]PageBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].ID < ordered[j].ID
	})

	var b strings.Builder
	for _, block := range ordered {
		fragment, err := Resolve(block)
		if err != nil {
			return "", err
		}
		b.WriteString(fragment)
	}
	return b.String(), nil
}

// ComposeDocument renders blocks with the site configuration's values
// available as placeholder fallbacks, so templates can reference
// {{site_name}}, {{site_description}} and {{base_url}} without every block
// carrying them. A block value under the same name wins. Ordering and
// concatenation are ComposePage's.
func ComposeDocument(cfg SiteConfig, blocks []PageBlock) (string, error) {
	siteValues := cfg.Values()

	merged := make([]PageBlock, len(blocks))
	copy(merged, blocks)
	for i := range merged {
		values := make(map[string]string, len(siteValues)+len(merged[i].Values))
		for name, value := range siteValues {
			values[name] = value
		}
		for name, value := range merged[i].Values {
			values[name] = value
		}
		merged[i].Values = values
	}
	return ComposePage(merged)
}
