package enrich

import "context"

type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (*PageData, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error)
}
