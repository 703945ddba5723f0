// Package extractor turns a coding-problem page into a domain.ProblemInfo.
//
// Every field is read through an ordered cascade of selector strategies so that
// markup drift on the page degrades to documented fallback values instead of errors.
package extractor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ashureev/leetmentor/internal/domain"
)

var errNilReader = errors.New("nil page reader")

// Field names used in Report.Fields.
const (
	FieldTitle           = "title"
	FieldDifficulty      = "difficulty"
	FieldCategory        = "category"
	FieldDescription     = "description"
	FieldStatement       = "statement"
	FieldExamples        = "examples"
	FieldConstraints     = "constraints"
	FieldRelatedProblems = "related_problems"
	FieldUserCode        = "user_code"
)

// Report is a ProblemInfo plus the provenance of every field.
type Report struct {
	Info    domain.ProblemInfo `json:"info"`
	Fields  map[string]Trace   `json:"fields"`
	Faulted bool               `json:"faulted"`
	Fault   string             `json:"fault,omitempty"`
}

// Extractor reads problem pages.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the time source used for CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New creates an Extractor.
func New(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses the page and returns its ProblemInfo. It never fails.
func (e *Extractor) Extract(r io.Reader, pageURL string) domain.ProblemInfo {
	return e.ExtractReport(r, pageURL).Info
}

// ExtractString is Extract for an HTML string.
func (e *Extractor) ExtractString(page, pageURL string) domain.ProblemInfo {
	return e.Extract(strings.NewReader(page), pageURL)
}

// ExtractReport parses the page and reports which strategy produced each field.
// A parse error or an unexpected panic yields the all-fallback record.
func (e *Extractor) ExtractReport(r io.Reader, pageURL string) (report Report) {
	at := e.now()
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("Problem extraction faulted", "url", pageURL, "panic", rec)
			report = faultReport(pageURL, at, fmt.Sprint(rec))
		}
	}()

	if r == nil {
		return e.fault(pageURL, at, errNilReader)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return e.fault(pageURL, at, fmt.Errorf("parse page: %w", err))
	}
	return e.extractDocument(doc, pageURL, at)
}

// ExtractDocument extracts from an already parsed document.
func (e *Extractor) ExtractDocument(doc *goquery.Document, pageURL string) (report Report) {
	at := e.now()
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("Problem extraction faulted", "url", pageURL, "panic", rec)
			report = faultReport(pageURL, at, fmt.Sprint(rec))
		}
	}()
	if doc == nil {
		return e.fault(pageURL, at, errors.New("nil document"))
	}
	return e.extractDocument(doc, pageURL, at)
}

func (e *Extractor) fault(pageURL string, at time.Time, err error) Report {
	e.logger.Warn("Problem extraction failed, using fallback record", "url", pageURL, "error", err)
	return faultReport(pageURL, at, err.Error())
}

func faultReport(pageURL string, at time.Time, reason string) Report {
	return Report{
		Info:    domain.FallbackProblemInfo(pageURL, at),
		Fields:  map[string]Trace{},
		Faulted: true,
		Fault:   reason,
	}
}

func (e *Extractor) extractDocument(doc *goquery.Document, pageURL string, at time.Time) Report {
	root := doc.Selection
	base, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		base = nil
	}

	title := Cascade(root, domain.DefaultProblemTitle, titleStrategies...)
	difficulty := Cascade(root, domain.DifficultyUnknown, difficultyStrategies...)
	category := Cascade(root, domain.DefaultCategory, categoryStrategies...)
	container := Cascade(root, new(goquery.Selection), descriptionStrategies...)
	statement := Cascade(container.Value, "", statementStrategies...)
	examples := Cascade(container.Value, []string{}, exampleStrategies...)
	constraints := Cascade(container.Value, []string{}, constraintStrategies...)
	related := Cascade(root, []domain.RelatedProblem{}, relatedStrategies(base)...)
	code := Cascade(root, "", codeStrategies...)

	report := Report{
		Info: domain.ProblemInfo{
			Title:           title.Value,
			Difficulty:      difficulty.Value,
			Category:        category.Value,
			Statement:       statement.Value,
			Examples:        examples.Value,
			Constraints:     constraints.Value,
			RelatedProblems: related.Value,
			UserCode:        code.Value,
			URL:             pageURL,
			CapturedAt:      at,
		},
		Fields: map[string]Trace{
			FieldTitle:           title.Trace(),
			FieldDifficulty:      difficulty.Trace(),
			FieldCategory:        category.Trace(),
			FieldDescription:     container.Trace(),
			FieldStatement:       statement.Trace(),
			FieldExamples:        examples.Trace(),
			FieldConstraints:     constraints.Trace(),
			FieldRelatedProblems: related.Trace(),
			FieldUserCode:        code.Trace(),
		},
	}

	for name, trace := range report.Fields {
		if trace.Fallback {
			e.logger.Debug("Problem field fell back", "field", name, "reason", trace.Reason, "url", pageURL)
		}
	}
	e.logger.Info("Problem extracted",
		"url", pageURL,
		"title", report.Info.Title,
		"difficulty", report.Info.Difficulty,
		"examples", len(report.Info.Examples),
		"constraints", len(report.Info.Constraints),
	)
	return report
}
