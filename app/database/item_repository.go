package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var _ ItemRepository = (*itemRepository)(nil)

const itemColumns = `id, owner_id, title, content_kind, preview_metadata, summary, category,
	tags, completed, notification_settings, created_at, updated_at`

type itemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) InsertItem(ctx context.Context, item *SavedItem) error {
	row, err := toRow(item)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO saved_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.OwnerID, row.Title, row.ContentKind, row.PreviewMetadata,
		row.Summary, row.Category, row.Tags, row.Completed, row.NotificationSettings,
		row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

func (r *itemRepository) GetItem(ctx context.Context, itemID, ownerID string) (*SavedItem, error) {
	var row itemRow
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM saved_items WHERE id = ? AND owner_id = ?`)

	err := r.db.GetContext(ctx, &row, query, itemID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return fromRow(row)
}

func (r *itemRepository) GetItemsByOwner(ctx context.Context, ownerID string) ([]SavedItem, error) {
	query := r.db.Rebind(`
		SELECT ` + itemColumns + `
		FROM saved_items
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`)

	return r.selectItems(ctx, query, ownerID)
}

// GetItemsByIDs returns the owner's items among itemIDs, in the order of itemIDs.
func (r *itemRepository) GetItemsByIDs(ctx context.Context, ownerID string, itemIDs []string) ([]SavedItem, error) {
	if len(itemIDs) == 0 {
		return []SavedItem{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM saved_items WHERE owner_id = ? AND id IN (?)`, ownerID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build items query: %w", err)
	}

	items, err := r.selectItems(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]SavedItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	ordered := make([]SavedItem, 0, len(items))
	for _, id := range itemIDs {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}

	return ordered, nil
}

func (r *itemRepository) GetAllItems(ctx context.Context) ([]SavedItem, error) {
	return r.selectItems(ctx, `SELECT `+itemColumns+` FROM saved_items ORDER BY created_at DESC, id DESC`)
}

func (r *itemRepository) GetItemCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM saved_items")
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *itemRepository) UpdateCompleted(ctx context.Context, itemID, ownerID string, completed bool, now time.Time) (*SavedItem, error) {
	return r.updateField(ctx, "completed", completed, itemID, ownerID, now)
}

func (r *itemRepository) UpdateTitle(ctx context.Context, itemID, ownerID, title string, now time.Time) (*SavedItem, error) {
	return r.updateField(ctx, "title", title, itemID, ownerID, now)
}

func (r *itemRepository) UpdateNotificationSettings(ctx context.Context, itemID, ownerID string, settings json.RawMessage, now time.Time) (*SavedItem, error) {
	return r.updateField(ctx, "notification_settings", string(settings), itemID, ownerID, now)
}

// updateField sets one column and stamps updated_at, never moving it backwards.
// column is always a constant from this file.
func (r *itemRepository) updateField(ctx context.Context, column string, value any, itemID, ownerID string, now time.Time) (*SavedItem, error) {
	now = now.UTC()
	query := r.db.Rebind(`
		UPDATE saved_items
		SET ` + column + ` = ?,
		    updated_at = CASE WHEN updated_at > ? THEN updated_at ELSE ? END
		WHERE id = ? AND owner_id = ?
		RETURNING ` + itemColumns)

	var row itemRow
	err := r.db.QueryRowxContext(ctx, query, value, now, now, itemID, ownerID).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", column, err)
	}

	return fromRow(row)
}

func (r *itemRepository) selectItems(ctx context.Context, query string, args ...any) ([]SavedItem, error) {
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	items := make([]SavedItem, 0, len(rows))
	for _, row := range rows {
		item, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return items, nil
}

func toRow(item *SavedItem) (itemRow, error) {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return itemRow{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	row := itemRow{
		ID:          item.ID,
		OwnerID:     item.OwnerID,
		Title:       item.Title,
		ContentKind: item.ContentKind,
		Summary:     item.Summary,
		Category:    item.Category,
		Tags:        string(tagsJSON),
		Completed:   item.Completed,
		CreatedAt:   item.CreatedAt.UTC(),
		UpdatedAt:   item.UpdatedAt.UTC(),
	}

	if item.PreviewMetadata != nil {
		preview, err := json.Marshal(item.PreviewMetadata)
		if err != nil {
			return itemRow{}, fmt.Errorf("failed to encode preview metadata: %w", err)
		}
		row.PreviewMetadata = sql.NullString{String: string(preview), Valid: true}
	}

	if len(item.NotificationSettings) > 0 {
		row.NotificationSettings = sql.NullString{String: string(item.NotificationSettings), Valid: true}
	}

	return row, nil
}

func fromRow(row itemRow) (*SavedItem, error) {
	item := &SavedItem{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		ContentKind: row.ContentKind,
		Summary:     row.Summary,
		Category:    row.Category,
		Tags:        []string{},
		Completed:   row.Completed,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}

	if row.Tags != "" {
		if err := json.Unmarshal([]byte(row.Tags), &item.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for item %s: %w", row.ID, err)
		}
	}

	if row.PreviewMetadata.Valid && row.PreviewMetadata.String != "" {
		var preview PreviewMetadata
		if err := json.Unmarshal([]byte(row.PreviewMetadata.String), &preview); err != nil {
			return nil, fmt.Errorf("failed to decode preview metadata for item %s: %w", row.ID, err)
		}
		item.PreviewMetadata = &preview
	}

	if row.NotificationSettings.Valid && row.NotificationSettings.String != "" {
		item.NotificationSettings = json.RawMessage(row.NotificationSettings.String)
	}

	return item, nil
}
