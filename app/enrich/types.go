package enrich

import (
	"errors"

	"github.com/lysyi3m/keepit/app/content"
)

// ErrUpstream marks a failed scrape or analysis call.
var ErrUpstream = errors.New("upstream failure")

// PageData is the structured result of scraping a URL.
type PageData struct {
	URL         string
	Title       string
	Description string
	SiteName    string
	ImageURL    string
	Language    string
	Text        string // readable body text, capped before it reaches the analyzer
}

type AnalysisRequest struct {
	Kind content.Kind

	Page *PageData // KindURL

	Title       string // KindText
	Description string // KindText

	ImageData string // KindImage
}

// Analysis is the raw answer of the analysis service, before normalization.
type Analysis struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type Result struct {
	Title     string
	Summary   string
	Category  string
	Tags      []string
	SourceURL string // KindURL only
}
