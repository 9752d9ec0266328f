package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no row matches both the item id and the owner.
var ErrNotFound = errors.New("item not found")

type ItemRepository interface {
	InsertItem(ctx context.Context, item *SavedItem) error

	GetItem(ctx context.Context, itemID, ownerID string) (*SavedItem, error)
	GetItemsByOwner(ctx context.Context, ownerID string) ([]SavedItem, error)
	GetItemsByIDs(ctx context.Context, ownerID string, itemIDs []string) ([]SavedItem, error)
	GetAllItems(ctx context.Context) ([]SavedItem, error)
	GetItemCount(ctx context.Context) (int, error)

	UpdateCompleted(ctx context.Context, itemID, ownerID string, completed bool, now time.Time) (*SavedItem, error)
	UpdateTitle(ctx context.Context, itemID, ownerID, title string, now time.Time) (*SavedItem, error)
	UpdateNotificationSettings(ctx context.Context, itemID, ownerID string, settings json.RawMessage, now time.Time) (*SavedItem, error)
}
