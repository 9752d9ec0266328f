package enrich

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const (
	defaultMaxBodyBytes = 5 << 20
	defaultMaxTextRunes = 6000
	maxFeedItemTitles   = 10
)

var _ Scraper = (*HTTPScraper)(nil)

// HTTPScraper fetches a page itself and reduces it to PageData:
// HTML goes through readability, RSS/Atom documents through gofeed.
type HTTPScraper struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	maxTextRunes int
}

func NewHTTPScraper(httpClient *http.Client, userAgent string) *HTTPScraper {
	return &HTTPScraper{
		httpClient:   httpClient,
		userAgent:    userAgent,
		maxBodyBytes: defaultMaxBodyBytes,
		maxTextRunes: defaultMaxTextRunes,
	}
}

func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (*PageData, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	data, contentType, err := s.fetch(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}

	var page *PageData
	switch {
	case isHTML(contentType):
		page, err = s.extractArticle(data, pageURL)
	case isFeed(contentType):
		page, err = s.extractFeed(data)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
	if err != nil {
		return nil, err
	}

	page.URL = pageURL.String()
	page.Text = truncateRunes(page.Text, s.maxTextRunes)

	slog.Debug("Page scraped", "url", page.URL, "title", page.Title, "text_length", len(page.Text))

	return page, nil
}

func (s *HTTPScraper) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml;q=0.9,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func (s *HTTPScraper) extractArticle(data []byte, pageURL *url.URL) (*PageData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Title == "" && strings.TrimSpace(article.TextContent) == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	return &PageData{
		Title:       strings.TrimSpace(article.Title),
		Description: strings.TrimSpace(article.Excerpt),
		SiteName:    strings.TrimSpace(article.SiteName),
		ImageURL:    article.Image,
		Text:        collapseWhitespace(article.TextContent),
	}, nil
}

func (s *HTTPScraper) extractFeed(data []byte) (*PageData, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	page := &PageData{
		Title:       strings.TrimSpace(feed.Title),
		Description: strings.TrimSpace(feed.Description),
		Language:    feed.Language,
	}

	if feed.Image != nil {
		page.ImageURL = feed.Image.URL
	}

	titles := make([]string, 0, maxFeedItemTitles)
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}
		titles = append(titles, strings.TrimSpace(item.Title))
		if len(titles) == maxFeedItemTitles {
			break
		}
	}
	page.Text = strings.Join(titles, "\n")

	return page, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func isHTML(contentType string) bool {
	mt := mediaType(contentType)
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func isFeed(contentType string) bool {
	switch mediaType(contentType) {
	case "application/rss+xml", "application/atom+xml", "application/feed+json",
		"application/xml", "text/xml":
		return true
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
