package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const reasonNoMatch = "no strategy matched"

// Strategy is one candidate lookup for a field. Extract reports ok=false to pass
// control to the next strategy.
type Strategy[T any] struct {
	Name    string
	Extract func(root *goquery.Selection) (T, bool)
}

// Field is the outcome of a cascade: the value plus which strategy produced it,
// or why the fallback was used.
type Field[T any] struct {
	Value    T
	Source   string
	Fallback bool
	Reason   string
}

// Trace drops the value and keeps the provenance.
func (f Field[T]) Trace() Trace {
	return Trace{Source: f.Source, Fallback: f.Fallback, Reason: f.Reason}
}

// Trace describes where an extracted field came from.
type Trace struct {
	Source   string `json:"source,omitempty"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

// Cascade evaluates strategies left to right; the first one that succeeds wins.
func Cascade[T any](root *goquery.Selection, fallback T, strategies ...Strategy[T]) Field[T] {
	if root == nil || root.Length() == 0 {
		return Field[T]{Value: fallback, Fallback: true, Reason: "empty search root"}
	}
	for _, s := range strategies {
		if v, ok := s.Extract(root); ok {
			return Field[T]{Value: v, Source: s.Name}
		}
	}
	return Field[T]{Value: fallback, Fallback: true, Reason: reasonNoMatch}
}

// SelectorText returns a strategy yielding the first non-empty inline text among
// the elements matched by selector.
func SelectorText(selector string) Strategy[string] {
	return Strategy[string]{
		Name: selector,
		Extract: func(root *goquery.Selection) (string, bool) {
			var found string
			root.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				found = inlineText(s)
				return found == ""
			})
			return found, found != ""
		},
	}
}

// FirstMatch returns a strategy yielding the first element matched by selector.
func FirstMatch(selector string) Strategy[*goquery.Selection] {
	return Strategy[*goquery.Selection]{
		Name: selector,
		Extract: func(root *goquery.Selection) (*goquery.Selection, bool) {
			sel := root.Find(selector).First()
			return sel, sel.Length() > 0
		},
	}
}

func joinNonEmpty(parts []string, sep string) (string, bool) {
	joined := strings.Join(parts, sep)
	return joined, strings.TrimSpace(joined) != ""
}
