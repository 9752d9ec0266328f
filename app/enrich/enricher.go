package enrich

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/keepit/app/content"
)

const (
	maxFallbackTitleRunes = 80
	untitled              = "Untitled"
)

// Enricher turns normalized input into title, summary, category and tags.
// URL input is scraped first; the analysis call depends on the scrape result.
type Enricher struct {
	scraper  Scraper
	analyzer Analyzer
	taxonomy *Taxonomy
}

func NewEnricher(scraper Scraper, analyzer Analyzer, taxonomy *Taxonomy) *Enricher {
	return &Enricher{
		scraper:  scraper,
		analyzer: analyzer,
		taxonomy: taxonomy,
	}
}

func (e *Enricher) Enrich(ctx context.Context, in content.Input) (*Result, error) {
	start := time.Now()

	var (
		req           AnalysisRequest
		fallbackTitle string
	)

	switch in.Kind {
	case content.KindURL:
		page, err := e.scraper.Scrape(ctx, in.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scrape %s: %w", ErrUpstream, in.URL, err)
		}
		req = AnalysisRequest{Kind: content.KindURL, Page: page}
		fallbackTitle = cmp.Or(page.Title, page.SiteName, in.URL)

	case content.KindImage:
		req = AnalysisRequest{Kind: content.KindImage, ImageData: in.ImageData}
		fallbackTitle = "Image"

	case content.KindText:
		req = AnalysisRequest{Kind: content.KindText, Title: in.Title, Description: in.Description}
		fallbackTitle = firstLine(in.Title)

	default:
		return nil, fmt.Errorf("%w: unsupported content kind %q", content.ErrInvalidInput, in.Kind)
	}

	analysis, err := e.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to analyze %s content: %w", ErrUpstream, in.Kind, err)
	}

	result := &Result{
		Title:    cmp.Or(strings.TrimSpace(analysis.Title), truncateRunes(fallbackTitle, maxFallbackTitleRunes), untitled),
		Summary:  strings.TrimSpace(analysis.Summary),
		Category: e.taxonomy.Resolve(analysis.Category),
		Tags:     NormalizeTags(analysis.Tags, e.taxonomy.MaxTags),
	}
	if in.Kind == content.KindURL {
		result.SourceURL = in.URL
	}

	slog.Debug("Content enriched",
		"kind", in.Kind,
		"category", result.Category,
		"tags", len(result.Tags),
		"duration", time.Since(start))

	return result, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
