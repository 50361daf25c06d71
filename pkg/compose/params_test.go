package compose

import (
	"reflect"
	"testing"
)

func TestExtractParams(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Param
	}{
		{
			name: "plain name defaults to text",
			text: `<h1>{{title}}</h1>`,
			want: []Param{{Name: "title", Type: ParamText}},
		},
		{
			name: "typed placeholders",
			text: `{{snippet:code}} {{body:wysiwyg}}`,
			want: []Param{{Name: "snippet", Type: ParamCode}, {Name: "body", Type: ParamWysiwyg}},
		},
		{
			name: "whitespace inside braces",
			text: `{{ title }} {{ body : wysiwyg }}`,
			want: []Param{{Name: "title", Type: ParamText}, {Name: "body", Type: ParamWysiwyg}},
		},
		{
			name: "unknown type normalizes to text",
			text: `{{thing:markdown}}`,
			want: []Param{{Name: "thing", Type: ParamText}},
		},
		{
			name: "duplicates suppressed, first type wins",
			text: `{{x:code}} middle {{x:text}} {{x}}`,
			want: []Param{{Name: "x", Type: ParamCode}},
		},
		{
			name: "first-seen order preserved",
			text: `{{b}}{{a}}{{b}}`,
			want: []Param{{Name: "b", Type: ParamText}, {Name: "a", Type: ParamText}},
		},
		{
			name: "malformed braces are literal text",
			text: `{{unclosed and }} stray {single}`,
			want: nil,
		},
		{
			name: "no placeholders",
			text: `<p>static</p>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractParams(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractParams(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParamsIsLazy(t *testing.T) {
	text := `{{a}} {{b}} {{c}}`
	var collected []string
	for p := range Params(text) {
		collected = append(collected, p.Name)
		if len(collected) == 2 {
			break
		}
	}
	if len(collected) != 2 || collected[0] != "a" || collected[1] != "b" {
		t.Errorf("early break yielded %v, want [a b]", collected)
	}
}

func TestSubstituteLeavesNoTokens(t *testing.T) {
	text := `<h1>{{title}}</h1><pre>{{snippet:code}}</pre><div>{{body:wysiwyg}}</div>{{missing}}`
	for _, values := range []map[string]string{
		nil,
		{},
		{"title": "Hi"},
		{"title": "Hi", "snippet": "x := 1", "body": "<p>b</p>", "missing": "here"},
	} {
		out := substitute(text, values)
		if placeholderRe.MatchString(out) {
			t.Errorf("substitute with values %v left a token in %q", values, out)
		}
	}
}

func TestSubstituteIsNotRecursive(t *testing.T) {
	out := substitute(`{{a}}`, map[string]string{"a": "{{b}}", "b": "nope"})
	if out != "{{b}}" {
		t.Errorf("supplied values must not be re-expanded: got %q, want %q", out, "{{b}}")
	}
}
