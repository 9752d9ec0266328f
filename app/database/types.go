package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

type PreviewMetadata struct {
	URL         string `json:"url"`
	Domain      string `json:"domain,omitempty"` // empty when the URL host could not be parsed
	Title       string `json:"title"`
	Description string `json:"description"`
}

type SavedItem struct {
	ID                   string           `json:"id"`
	OwnerID              string           `json:"userId"`
	Title                string           `json:"title"`
	ContentKind          string           `json:"contentType"` // url, image, text
	PreviewMetadata      *PreviewMetadata `json:"previewMetadata"`
	Summary              string           `json:"summary"`
	Category             string           `json:"category"`
	Tags                 []string         `json:"tags"`
	Completed            bool             `json:"completed"`
	NotificationSettings json.RawMessage  `json:"notificationSettings,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// itemRow mirrors the saved_items table; JSON columns are kept as text.
type itemRow struct {
	ID                   string         `db:"id"`
	OwnerID              string         `db:"owner_id"`
	Title                string         `db:"title"`
	ContentKind          string         `db:"content_kind"`
	PreviewMetadata      sql.NullString `db:"preview_metadata"`
	Summary              string         `db:"summary"`
	Category             string         `db:"category"`
	Tags                 string         `db:"tags"`
	Completed            bool           `db:"completed"`
	NotificationSettings sql.NullString `db:"notification_settings"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}
