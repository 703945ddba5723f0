package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascadeFirstSuccessWins(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<h1 class="legacy">Old</h1><h2 class="current">  New   Title </h2>`))
	require.NoError(t, err)

	var calls []string
	track := func(s Strategy[string]) Strategy[string] {
		inner := s.Extract
		s.Extract = func(root *goquery.Selection) (string, bool) {
			calls = append(calls, s.Name)
			return inner(root)
		}
		return s
	}

	got := Cascade(doc.Selection, "fallback",
		track(SelectorText(".missing")),
		track(SelectorText(".current")),
		track(SelectorText(".legacy")),
	)

	assert.Equal(t, "New Title", got.Value)
	assert.Equal(t, ".current", got.Source)
	assert.False(t, got.Fallback)
	assert.Equal(t, []string{".missing", ".current"}, calls)
}

func TestCascadeFallbackCarriesReason(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<p></p>`))
	require.NoError(t, err)

	got := Cascade(doc.Selection, 7, Strategy[int]{
		Name:    "never",
		Extract: func(*goquery.Selection) (int, bool) { return 0, false },
	})
	assert.Equal(t, 7, got.Value)
	assert.Equal(t, Trace{Fallback: true, Reason: reasonNoMatch}, got.Trace())
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	in := "  first\t\tline \r\n\r\n\r\n\r\nsecond   line end  "
	assert.Equal(t, "first line\n\nsecond line end", cleanText(in))
}
