package items

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/keepit/app/content"
	"github.com/lysyi3m/keepit/app/database"
	"github.com/lysyi3m/keepit/app/enrich"
	"github.com/lysyi3m/keepit/app/events"
	"github.com/lysyi3m/keepit/app/search"
)

const (
	// AnonymousOwner is what signed-out clients send as their user id.
	AnonymousOwner = "anonymous"

	MaxTitleRunes = 500
)

type Enricher interface {
	Enrich(ctx context.Context, in content.Input) (*enrich.Result, error)
}

type SearchIndex interface {
	IndexItem(item *database.SavedItem) error
	Search(ownerID, q string, limit int) ([]search.Hit, error)
}

// Service implements ingestion, listing and the ownership-checked mutations.
// The search index and publisher are optional.
type Service struct {
	repo      database.ItemRepository
	writer    *Writer
	enricher  Enricher
	index     SearchIndex
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo database.ItemRepository, enricher Enricher, index SearchIndex, publisher events.Publisher) *Service {
	return &Service{
		repo:      repo,
		writer:    NewWriter(repo),
		enricher:  enricher,
		index:     index,
		publisher: publisher,
		now:       time.Now,
	}
}

// Ingest normalizes, enriches and stores one piece of content. It runs to
// completion even when ctx is cancelled by a departing client.
func (s *Service) Ingest(ctx context.Context, ownerID string, raw json.RawMessage, contentType string) (*database.SavedItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	in, err := content.Normalize(raw, contentType)
	if err != nil {
		return nil, invalidInput(err)
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	result, err := s.enricher.Enrich(ctx, in)
	if err != nil {
		if errors.Is(err, content.ErrInvalidInput) {
			return nil, invalidInput(err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	item, err := s.writer.Write(ctx, ownerID, in.Kind, result, result.SourceURL)
	if err != nil {
		return nil, err
	}

	slog.Info("Item saved",
		"item_id", item.ID,
		"owner", ownerID,
		"kind", item.ContentKind,
		"category", item.Category,
		"duration", time.Since(start))

	s.afterChange(ctx, item)

	return item, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]database.SavedItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list items: %w", ErrPersistence, err)
	}

	return items, nil
}

func (s *Service) ToggleCompletion(ctx context.Context, itemID, ownerID string, completed *bool) (*database.SavedItem, error) {
	if err := requireItemAndOwner(itemID, ownerID); err != nil {
		return nil, err
	}
	if completed == nil {
		return nil, fmt.Errorf("%w: completed is required", ErrInvalidInput)
	}

	return s.mutate(ctx, "toggle_completion", itemID, ownerID, func(now time.Time) (*database.SavedItem, error) {
		return s.repo.UpdateCompleted(ctx, itemID, ownerID, *completed, now)
	})
}

// UpdateTitle trims the title and cuts it to MaxTitleRunes; only a blank title is rejected.
func (s *Service) UpdateTitle(ctx context.Context, itemID, ownerID, title string) (*database.SavedItem, error) {
	if err := requireItemAndOwner(itemID, ownerID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if runes := []rune(title); len(runes) > MaxTitleRunes {
		title = strings.TrimSpace(string(runes[:MaxTitleRunes]))
	}

	return s.mutate(ctx, "update_title", itemID, ownerID, func(now time.Time) (*database.SavedItem, error) {
		return s.repo.UpdateTitle(ctx, itemID, ownerID, title, now)
	})
}

// UpdateNotificationSettings stores any non-null JSON value as-is.
func (s *Service) UpdateNotificationSettings(ctx context.Context, itemID, ownerID string, settings json.RawMessage) (*database.SavedItem, error) {
	if err := requireItemAndOwner(itemID, ownerID); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(settings))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("%w: notificationSettings is required", ErrInvalidInput)
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("%w: notificationSettings is not valid JSON", ErrInvalidInput)
	}

	return s.mutate(ctx, "update_notification_settings", itemID, ownerID, func(now time.Time) (*database.SavedItem, error) {
		return s.repo.UpdateNotificationSettings(ctx, itemID, ownerID, json.RawMessage(trimmed), now)
	})
}

// Search returns the owner's items matching q, best match first.
func (s *Service) Search(ctx context.Context, ownerID, q string, limit int) ([]database.SavedItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("%w: q is required", ErrInvalidInput)
	}
	if s.index == nil {
		return []database.SavedItem{}, nil
	}

	hits, err := s.index.Search(ownerID, q, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if len(hits) == 0 {
		return []database.SavedItem{}, nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}

	items, err := s.repo.GetItemsByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load search results: %w", ErrPersistence, err)
	}

	return items, nil
}

func (s *Service) mutate(ctx context.Context, operation, itemID, ownerID string, update func(now time.Time) (*database.SavedItem, error)) (*database.SavedItem, error) {
	item, err := update(s.now().UTC())
	if errors.Is(err, database.ErrNotFound) {
		slog.Debug("Mutation matched no item", "operation", operation, "item_id", itemID, "owner", ownerID)
		return nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s failed: %w", ErrPersistence, operation, err)
	}

	s.afterChange(ctx, item)

	return item, nil
}

// afterChange refreshes the search entry and notifies the owner's views.
// Both are best-effort: the write has already succeeded.
func (s *Service) afterChange(ctx context.Context, item *database.SavedItem) {
	if s.index != nil {
		if err := s.index.IndexItem(item); err != nil {
			slog.Warn("Failed to update search index", "item_id", item.ID, "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.Refresh(item.OwnerID, item.ID)); err != nil {
			slog.Warn("Failed to publish refresh event", "owner", item.OwnerID, "error", err)
		}
	}
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" || ownerID == AnonymousOwner {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	return nil
}

func requireItemAndOwner(itemID, ownerID string) error {
	if strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("%w: itemId is required", ErrInvalidInput)
	}
	return requireOwner(ownerID)
}
