package compose

import (
	"iter"
	"regexp"
	"strings"
)

// ParamType classifies how the editor should present an input for a
// placeholder. It is a closed set; anything unrecognized in template text
// normalizes to ParamText.
type ParamType string

const (
	ParamText    ParamType = "text"
	ParamCode    ParamType = "code"
	ParamWysiwyg ParamType = "wysiwyg"
)

// Param is a single placeholder extracted from block text.
type Param struct {
	Name string
	Type ParamType
}

// placeholderRe matches {{ name }} and {{ name:type }} tokens, with
// optional whitespace inside the braces. Group 1 is the name, group 2 the
// optional type. Unmatched braces never match and are left as literal text.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?::\s*([A-Za-z0-9_]*)\s*)?\}\}`)

// normalizeType maps a raw type suffix onto the closed ParamType set.
func normalizeType(raw string) ParamType {
	switch strings.ToLower(raw) {
	case "code":
		return ParamCode
	case "wysiwyg":
		return ParamWysiwyg
	default:
		return ParamText
	}
}

// Params returns the placeholders found in text as a lazy sequence, in
// first-seen order. Repeated names are reported once; if the same name
// appears with different type suffixes, the type of the first occurrence
// wins.
func Params(text string) iter.Seq[Param] {
	return func(yield func(Param) bool) {
		seen := make(map[string]struct{})
		for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
			name := m[1]
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			if !yield(Param{Name: name, Type: normalizeType(m[2])}) {
				return
			}
		}
	}
}

// ExtractParams materializes Params into a slice for callers that need the
// whole set up front, such as the editor form builder.
func ExtractParams(text string) []Param {
	var params []Param
	for p := range Params(text) {
		params = append(params, p)
	}
	return params
}

// substitute replaces every placeholder token in text with the value
// supplied for its name, or the empty string when no value is present.
// Replacement is literal: values containing {{...}} are not re-expanded.
func substitute(text string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
		m := placeholderRe.FindStringSubmatch(token)
		return values[m[1]]
	})
}
