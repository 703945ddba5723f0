package extractor

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"github.com/ashureev/leetmentor/internal/domain"
)

var (
	exampleMarker     = regexp.MustCompile(`^Example(\s*\d+)?\s*:`)
	constraintsMarker = regexp.MustCompile(`^Constraints\s*:`)
)

const similarQuestionsLabel = "Similar Questions"

// tagNoise are strings that show up next to topic tags but are not tags.
var tagNoise = map[string]bool{
	"topics":            true,
	"related topics":    true,
	"companies":         true,
	"similar questions": true,
	"hint":              true,
	"hints":             true,
	"discussion":        true,
	"show more":         true,
	"show less":         true,
	"acceptance":        true,
	"accepted":          true,
	"submissions":       true,
	"premium":           true,
	"solutions":         true,
	"editorial":         true,
	"...":               true,
}

var constraintIndicators = []string{
	"<=", ">=", "<", ">", "≤", "≥", "10^",
	"array", "string", "length", "integer", "nums", "node", "tree",
}

var titleStrategies = []Strategy[string]{
	SelectorText(`[data-cy="question-title"]`),
	SelectorText(`div.text-title-large a`),
	SelectorText(`div.text-title-large`),
	SelectorText(`.css-v3d350`),
	SelectorText(`.question-title h3`),
	SelectorText(`.question-title`),
	{
		Name: "document-title",
		Extract: func(root *goquery.Selection) (string, bool) {
			title := inlineText(root.Find("title").First())
			title, _, _ = strings.Cut(title, " - LeetCode")
			title = strings.TrimSpace(title)
			return title, title != "" && title != "LeetCode"
		},
	},
}

var difficultyStrategies = []Strategy[domain.Difficulty]{
	difficultyClass(".text-difficulty-easy", domain.DifficultyEasy),
	difficultyClass(".text-difficulty-medium", domain.DifficultyMedium),
	difficultyClass(".text-difficulty-hard", domain.DifficultyHard),
	difficultyAttr("diff"),
	difficultyAttr("data-difficulty"),
	difficultyText(".difficulty-label"),
	difficultyText(".css-10o4wqw div"),
}

func difficultyClass(selector string, d domain.Difficulty) Strategy[domain.Difficulty] {
	return Strategy[domain.Difficulty]{
		Name: selector,
		Extract: func(root *goquery.Selection) (domain.Difficulty, bool) {
			return d, root.Find(selector).Length() > 0
		},
	}
}

func difficultyAttr(attr string) Strategy[domain.Difficulty] {
	return Strategy[domain.Difficulty]{
		Name: "[" + attr + "]",
		Extract: func(root *goquery.Selection) (domain.Difficulty, bool) {
			value, _ := root.Find("[" + attr + "]").First().Attr(attr)
			d := domain.ParseDifficulty(value)
			return d, d != domain.DifficultyUnknown
		},
	}
}

func difficultyText(selector string) Strategy[domain.Difficulty] {
	return Strategy[domain.Difficulty]{
		Name: selector,
		Extract: func(root *goquery.Selection) (domain.Difficulty, bool) {
			d := domain.ParseDifficulty(inlineText(root.Find(selector).First()))
			return d, d != domain.DifficultyUnknown
		},
	}
}

var categoryStrategies = []Strategy[string]{
	topicTags(`div[class*="topic"] a[href*="/tag/"]`),
	topicTags(`[data-track-load="topics"] a[href*="/tag/"]`),
	topicTags(`a[href*="/tag/"]`),
	topicTags(`.topic-tag`),
}

func topicTags(selector string) Strategy[string] {
	return Strategy[string]{
		Name: selector,
		Extract: func(root *goquery.Selection) (string, bool) {
			texts := root.Find(selector).Map(func(_ int, s *goquery.Selection) string {
				return inlineText(s)
			})
			tags := lo.Uniq(lo.Filter(texts, func(tag string, _ int) bool {
				return isTag(tag)
			}))
			return joinNonEmpty(tags, ", ")
		},
	}
}

func isTag(text string) bool {
	if len([]rune(text)) < 2 {
		return false
	}
	return !tagNoise[strings.ToLower(text)]
}

var descriptionStrategies = []Strategy[*goquery.Selection]{
	FirstMatch(`[data-track-load="description_content"]`),
	FirstMatch(`div.elfjS`),
	FirstMatch(`.question-content__JfgR`),
	FirstMatch(`.question-content`),
	FirstMatch(`div[class*="description__"]`),
}

var statementStrategies = []Strategy[string]{
	{
		Name: "description-lead-in",
		Extract: func(container *goquery.Selection) (string, bool) {
			clone := container.Clone()
			cutFrom(clone, exampleMarker)
			cutFrom(clone, constraintsMarker)
			text := cleanText(renderText(clone))
			return text, text != ""
		},
	},
}

// cutFrom removes the first paragraph matching marker and everything after it
// in document order, staying inside root.
func cutFrom(root *goquery.Selection, marker *regexp.Regexp) {
	found := markers(root, marker).First()
	if found.Length() == 0 {
		return
	}
	for cur := found; cur.Length() > 0 && !sameNode(cur, root); cur = cur.Parent() {
		cur.NextAll().Remove()
	}
	found.Remove()
}

func markers(root *goquery.Selection, marker *regexp.Regexp) *goquery.Selection {
	return root.Find("p").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return marker.MatchString(inlineText(s))
	})
}

func sameNode(a, b *goquery.Selection) bool {
	return len(a.Nodes) > 0 && len(b.Nodes) > 0 && a.Nodes[0] == b.Nodes[0]
}

var exampleStrategies = []Strategy[[]string]{
	{
		Name: "example-markers",
		Extract: func(container *goquery.Selection) ([]string, bool) {
			var examples []string
			markers(container, exampleMarker).Each(func(_ int, marker *goquery.Selection) {
				heading := inlineText(marker)
				if body := exampleBody(marker); body != "" {
					examples = append(examples, heading+"\n"+body)
				}
			})
			return examples, len(examples) > 0
		},
	},
	numberedBlocks("div.example-block"),
	numberedBlocks("pre"),
}

// exampleBody returns the text of the first pre block after marker that precedes the next marker.
func exampleBody(marker *goquery.Selection) string {
	var body string
	marker.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is("p") && exampleMarker.MatchString(inlineText(s)) {
			return false
		}
		if s.Is("pre, div.example-block") {
			body = cleanText(renderText(s))
			return false
		}
		return true
	})
	return body
}

func numberedBlocks(selector string) Strategy[[]string] {
	return Strategy[[]string]{
		Name: selector,
		Extract: func(container *goquery.Selection) ([]string, bool) {
			var examples []string
			container.Find(selector).Each(func(_ int, s *goquery.Selection) {
				if text := cleanText(renderText(s)); text != "" {
					examples = append(examples, fmt.Sprintf("Example %d:\n%s", len(examples)+1, text))
				}
			})
			return examples, len(examples) > 0
		},
	}
}

var constraintStrategies = []Strategy[[]string]{
	{
		Name: "constraints-list",
		Extract: func(container *goquery.Selection) ([]string, bool) {
			marker := markers(container, constraintsMarker).First()
			if marker.Length() == 0 {
				return nil, false
			}
			items := listItems(marker.NextAllFiltered("ul, ol").First().Find("li"))
			return items, len(items) > 0
		},
	},
	{
		Name: "constraint-sweep",
		Extract: func(container *goquery.Selection) ([]string, bool) {
			items := lo.Filter(listItems(container.Find("li")), func(item string, _ int) bool {
				return looksLikeConstraint(item)
			})
			return items, len(items) > 0
		},
	},
}

func listItems(sel *goquery.Selection) []string {
	return lo.Compact(sel.Map(func(_ int, s *goquery.Selection) string {
		return inlineText(s)
	}))
}

func looksLikeConstraint(text string) bool {
	lower := strings.ToLower(text)
	return lo.ContainsBy(constraintIndicators, func(indicator string) bool {
		return strings.Contains(lower, indicator)
	})
}

func relatedStrategies(base *url.URL) []Strategy[[]domain.RelatedProblem] {
	return []Strategy[[]domain.RelatedProblem]{
		{
			Name: "similar-questions",
			Extract: func(root *goquery.Selection) ([]domain.RelatedProblem, bool) {
				label := root.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
					return inlineText(s) == similarQuestionsLabel
				}).Last()
				if label.Length() == 0 {
					return nil, false
				}

				block := label
				for i := 0; i < 4; i++ {
					block = block.Parent()
					if block.Length() == 0 || block.Is("body, html") {
						return nil, false
					}
					if block.Find(`a[href*="/problems/"]`).Length() > 0 {
						break
					}
				}

				problems := relatedLinks(block.Find(`a[href*="/problems/"]`), base)
				return problems, len(problems) > 0
			},
		},
	}
}

func relatedLinks(links *goquery.Selection, base *url.URL) []domain.RelatedProblem {
	current := problemSlug(base)
	var problems []domain.RelatedProblem
	links.Each(func(_ int, link *goquery.Selection) {
		title := inlineText(link)
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}
		abs := resolveURL(base, href)
		if u, err := url.Parse(abs); err == nil && current != "" && problemSlug(u) == current {
			return
		}
		rowText := strings.Replace(inlineText(link.Parent()), title, "", 1)
		problems = append(problems, domain.RelatedProblem{
			Title:      title,
			URL:        abs,
			Difficulty: domain.ParseDifficulty(rowText),
		})
	})
	return lo.UniqBy(problems, func(p domain.RelatedProblem) string {
		return p.URL
	})
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// problemSlug returns "two-sum" for ".../problems/two-sum/description/".
func problemSlug(u *url.URL) string {
	if u == nil {
		return ""
	}
	parts := strings.Split(strings.Trim(path.Clean(u.Path), "/"), "/")
	for i, part := range parts {
		if part == "problems" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

var codeStrategies = []Strategy[string]{
	editorLines(".view-lines .view-line"),
	editorLines(".CodeMirror-code .CodeMirror-line"),
	editorLines(".ace_content .ace_line"),
	{
		Name: "textarea",
		Extract: func(root *goquery.Selection) (string, bool) {
			code := root.Find(`textarea[name="code"], textarea#code`).First().Text()
			return code, strings.TrimSpace(code) != ""
		},
	},
}

func editorLines(selector string) Strategy[string] {
	return Strategy[string]{
		Name: selector,
		Extract: func(root *goquery.Selection) (string, bool) {
			lines := root.Find(selector).Map(func(_ int, s *goquery.Selection) string {
				return strings.TrimRight(strings.ReplaceAll(s.Text(), "\u00a0", " "), " \t")
			})
			return joinNonEmpty(lines, "\n")
		},
	}
}
