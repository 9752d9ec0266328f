package items

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/keepit/app/content"
	"github.com/lysyi3m/keepit/app/database"
	"github.com/lysyi3m/keepit/app/enrich"
)

// Writer persists one enriched item per call.
type Writer struct {
	repo database.ItemRepository
	now  func() time.Time
}

func NewWriter(repo database.ItemRepository) *Writer {
	return &Writer{repo: repo, now: time.Now}
}

func (w *Writer) Write(ctx context.Context, ownerID string, kind content.Kind, result *enrich.Result, sourceURL string) (*database.SavedItem, error) {
	now := w.now().UTC()

	item := &database.SavedItem{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       result.Title,
		ContentKind: string(kind),
		Summary:     result.Summary,
		Category:    result.Category,
		Tags:        result.Tags,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Preview carries the short summary, never the scraped page body.
	if kind == content.KindURL {
		item.PreviewMetadata = &database.PreviewMetadata{
			URL:         sourceURL,
			Domain:      hostnameOf(sourceURL),
			Title:       result.Title,
			Description: result.Summary,
		}
	}

	if item.Tags == nil {
		item.Tags = []string{}
	}

	if err := w.repo.InsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("%w: failed to insert item: %w", ErrPersistence, err)
	}

	return item, nil
}

// hostnameOf returns "" for URLs that do not parse.
func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
