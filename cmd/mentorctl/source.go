package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/leetmentor/internal/browser"
	"github.com/ashureev/leetmentor/internal/domain"
	"github.com/ashureev/leetmentor/internal/extractor"
	"github.com/ashureev/leetmentor/internal/mentor"
)

var errNoSource = errors.New("one of --file, --url or --title is required")

// addSourceFlags registers the flags that select a problem.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Saved problem page (HTML)")
	cmd.Flags().StringP("url", "u", "", "Problem URL; rendered in headless Chrome unless --file is given")
	cmd.Flags().String("title", "", "Problem title when no page is available")
	cmd.Flags().String("difficulty", "", "Problem difficulty (Easy, Medium, Hard)")
	cmd.Flags().String("category", "", "Comma-separated topic tags")
}

// startRequest builds a mentor.StartRequest from the source flags.
func startRequest(cmd *cobra.Command) (mentor.StartRequest, error) {
	file, _ := cmd.Flags().GetString("file")
	pageURL, _ := cmd.Flags().GetString("url")
	title, _ := cmd.Flags().GetString("title")

	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return mentor.StartRequest{}, fmt.Errorf("read page: %w", err)
		}
		return mentor.StartRequest{HTML: string(data), URL: pageURL}, nil
	case pageURL != "":
		return mentor.StartRequest{URL: pageURL}, nil
	case title != "":
		difficulty, _ := cmd.Flags().GetString("difficulty")
		category, _ := cmd.Flags().GetString("category")
		return mentor.StartRequest{Problem: &domain.ProblemInfo{
			Title:      title,
			Difficulty: domain.ParseDifficulty(difficulty),
			Category:   category,
		}}, nil
	default:
		return mentor.StartRequest{}, errNoSource
	}
}

// newRenderer returns a headless Chrome renderer configured from the environment.
func newRenderer() (*browser.Renderer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return browser.NewRenderer(cfg.Browser, slog.Default()), nil
}

// extractReport resolves the source flags into an extraction report.
func extractReport(ctx context.Context, cmd *cobra.Command) (extractor.Report, error) {
	req, err := startRequest(cmd)
	if err != nil {
		return extractor.Report{}, err
	}
	ex := extractor.New(slog.Default())
	if req.Problem != nil {
		info := req.Problem.Normalize(time.Now())
		return extractor.Report{Info: info, Fields: map[string]extractor.Trace{}}, nil
	}

	page := req.HTML
	if page == "" {
		renderer, err := newRenderer()
		if err != nil {
			return extractor.Report{}, err
		}
		defer func() { _ = renderer.Close() }()
		if page, err = renderer.Render(ctx, req.URL); err != nil {
			return extractor.Report{}, err
		}
	}
	return ex.ExtractReport(strings.NewReader(page), req.URL), nil
}
