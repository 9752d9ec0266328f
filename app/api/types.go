package api

import (
	"context"
	"encoding/json"

	"github.com/lysyi3m/keepit/app/database"
	"github.com/lysyi3m/keepit/app/events"
	"github.com/lysyi3m/keepit/app/items"
)

type ItemService interface {
	Ingest(ctx context.Context, ownerID string, raw json.RawMessage, contentType string) (*database.SavedItem, error)
	List(ctx context.Context, ownerID string) ([]database.SavedItem, error)
	ToggleCompletion(ctx context.Context, itemID, ownerID string, completed *bool) (*database.SavedItem, error)
	UpdateTitle(ctx context.Context, itemID, ownerID, title string) (*database.SavedItem, error)
	UpdateNotificationSettings(ctx context.Context, itemID, ownerID string, settings json.RawMessage) (*database.SavedItem, error)
	Search(ctx context.Context, ownerID, q string, limit int) ([]database.SavedItem, error)
}

var _ ItemService = (*items.Service)(nil)

type Subscriber interface {
	Subscribe(ownerID string) *events.Subscription
}

type ItemCounter interface {
	GetItemCount(ctx context.Context) (int, error)
}

type DocumentCounter interface {
	Count() (uint64, error)
}

type Handler struct {
	service     ItemService
	subscriber  Subscriber
	itemCounter ItemCounter
	docCounter  DocumentCounter
	version     string
}

type processContentRequest struct {
	Content     json.RawMessage `json:"content"`
	ContentType string          `json:"contentType"`
	UserID      string          `json:"userId"`
}

type toggleCompletionRequest struct {
	ItemID    string `json:"itemId"`
	Completed *bool  `json:"completed"`
	UserID    string `json:"userId"`
}

type updateTitleRequest struct {
	ItemID string `json:"itemId"`
	Title  string `json:"title"`
	UserID string `json:"userId"`
}

type updateNotificationSettingsRequest struct {
	ItemID               string          `json:"itemId"`
	NotificationSettings json.RawMessage `json:"notificationSettings"`
	UserID               string          `json:"userId"`
}
