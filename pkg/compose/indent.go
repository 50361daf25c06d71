package compose

import (
	"log/slog"
	"regexp"
)

// IndentUnit is the pixel offset applied per nesting level in the page
// editor's block list.
const IndentUnit = 50

var (
	openTagRe  = regexp.MustCompile(`<cms:([A-Za-z0-9_-]+)>`)
	closeTagRe = regexp.MustCompile(`</cms:([A-Za-z0-9_-]+)>`)
)

// Analyzer computes editor nesting depths from block captions. It only
// affects how the editor displays a page's block list; rendered HTML is
// untouched by it.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer that logs mismatched closing tags through
// the given logger.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Depths walks the captions left to right with a stack of open <cms:NAME>
// tag names and returns one nesting depth per caption, in input order.
//
// A caption carrying an opening tag is assigned the depth before the push,
// so a section header sits level with the blocks around it. A caption
// carrying a closing tag is assigned the depth after the pop. Captions with
// neither tag get the current stack depth. A closing tag that does not
// match the top of the stack is ignored with a warning; depths never go
// negative and unterminated opens simply leave the trailing blocks
// indented.
func (a *Analyzer) Depths(captions []string) []int {
	depths := make([]int, len(captions))
	var stack []string

	for i, caption := range captions {
		closes := closeTagRe.FindAllStringSubmatch(caption, -1)
		opens := openTagRe.FindAllStringSubmatch(caption, -1)

		for _, m := range closes {
			name := m[1]
			if len(stack) > 0 && stack[len(stack)-1] == name {
				stack = stack[:len(stack)-1]
			} else {
				a.logger.Warn("ignoring mismatched closing cms tag", "tag", name, "caption", caption)
			}
		}

		depths[i] = len(stack)

		for _, m := range opens {
			stack = append(stack, m[1])
		}
	}

	return depths
}

// Offsets converts nesting depths into pixel offsets for the editor.
func Offsets(depths []int) []int {
	offsets := make([]int, len(depths))
	for i, d := range depths {
		offsets[i] = d * IndentUnit
	}
	return offsets
}
