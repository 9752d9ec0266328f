package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testArticleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Test Article</title>
	<meta name="description" content="A short description of the article">
</head>
<body>
	<header><nav>Navigation</nav></header>
	<main>
		<article>
			<h1>Main Article Title</h1>
			<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
			<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
		</article>
	</main>
	<footer><p>Copyright 2024</p></footer>
</body>
</html>`

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example Feed</title>
	<description>An example feed</description>
	<language>en</language>
	<link>https://example.com</link>
	<item><title>First post</title><link>https://example.com/1</link></item>
	<item><title>Second post</title><link>https://example.com/2</link></item>
	<item><title></title><link>https://example.com/3</link></item>
</channel>
</rss>`

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "keepit-test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testArticleHTML))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeedXML))
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPScraper_Scrape_HTML(t *testing.T) {
	server := newTestSite(t)
	scraper := NewHTTPScraper(server.Client(), "keepit-test")

	page, err := scraper.Scrape(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if page.URL != server.URL+"/article" {
		t.Errorf("Expected URL %s, got %s", server.URL+"/article", page.URL)
	}

	if page.Title == "" {
		t.Errorf("Expected non-empty title")
	}

	if !strings.Contains(page.Text, "main content of the article") {
		t.Errorf("Expected text to contain main article text, got: %s", page.Text)
	}

	if strings.Contains(page.Text, "\n") {
		t.Errorf("Expected whitespace to be collapsed")
	}
}

func TestHTTPScraper_Scrape_Feed(t *testing.T) {
	server := newTestSite(t)
	scraper := NewHTTPScraper(server.Client(), "keepit-test")

	page, err := scraper.Scrape(context.Background(), server.URL+"/feed")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if page.Title != "Example Feed" {
		t.Errorf("Expected title 'Example Feed', got '%s'", page.Title)
	}

	if page.Language != "en" {
		t.Errorf("Expected language 'en', got '%s'", page.Language)
	}

	if page.Text != "First post\nSecond post" {
		t.Errorf("Expected item titles as text, got '%s'", page.Text)
	}
}

func TestHTTPScraper_Scrape_Errors(t *testing.T) {
	server := newTestSite(t)

	tests := []struct {
		name      string
		path      string
		userAgent string
	}{
		{name: "Not found", path: "/missing", userAgent: "keepit-test"},
		{name: "Unsupported content type", path: "/image.png", userAgent: "keepit-test"},
		{name: "Rejected user agent", path: "/article", userAgent: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scraper := NewHTTPScraper(server.Client(), tt.userAgent)

			page, err := scraper.Scrape(context.Background(), server.URL+tt.path)
			if err == nil {
				t.Errorf("Expected error, got page: %+v", page)
			}
		})
	}
}

func TestHTTPScraper_Scrape_TextCap(t *testing.T) {
	server := newTestSite(t)
	scraper := NewHTTPScraper(server.Client(), "keepit-test")
	scraper.maxTextRunes = 20

	page, err := scraper.Scrape(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len([]rune(page.Text)) > 20 {
		t.Errorf("Expected text capped at 20 runes, got %d", len([]rune(page.Text)))
	}
}
