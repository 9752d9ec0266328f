package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/keepit/app/items"
)

const keepAliveInterval = 25 * time.Second

func NewHandler(service ItemService, subscriber Subscriber, itemCounter ItemCounter, docCounter DocumentCounter, version string) *Handler {
	return &Handler{
		service:     service,
		subscriber:  subscriber,
		itemCounter: itemCounter,
		docCounter:  docCounter,
		version:     version,
	}
}

func (h *Handler) ProcessContent(c *gin.Context) {
	var req processContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	owner, ok := resolveOwner(c, req.UserID)
	if !ok {
		return
	}

	item, err := h.service.Ingest(c.Request.Context(), owner, req.Content, req.ContentType)
	if err != nil {
		h.writeError(c, "process_content", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

func (h *Handler) GetSavedItems(c *gin.Context) {
	owner, ok := resolveOwner(c, c.Query("userId"))
	if !ok {
		return
	}

	savedItems, err := h.service.List(c.Request.Context(), owner)
	if err != nil {
		h.writeError(c, "list_items", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    savedItems,
		"count":   len(savedItems),
	})
}

func (h *Handler) SearchSavedItems(c *gin.Context) {
	owner, ok := resolveOwner(c, c.Query("userId"))
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	results, err := h.service.Search(c.Request.Context(), owner, c.Query("q"), limit)
	if err != nil {
		h.writeError(c, "search_items", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
		"count":   len(results),
	})
}

func (h *Handler) ToggleCompletion(c *gin.Context) {
	var req toggleCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	owner, ok := resolveOwner(c, req.UserID)
	if !ok {
		return
	}

	item, err := h.service.ToggleCompletion(c.Request.Context(), req.ItemID, owner, req.Completed)
	if err != nil {
		h.writeError(c, "toggle_completion", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
		"message": "Completion status updated",
	})
}

func (h *Handler) UpdateTitle(c *gin.Context) {
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	owner, ok := resolveOwner(c, req.UserID)
	if !ok {
		return
	}

	item, err := h.service.UpdateTitle(c.Request.Context(), req.ItemID, owner, req.Title)
	if err != nil {
		h.writeError(c, "update_title", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
		"message": "Title updated",
	})
}

func (h *Handler) UpdateNotificationSettings(c *gin.Context) {
	var req updateNotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	owner, ok := resolveOwner(c, req.UserID)
	if !ok {
		return
	}

	item, err := h.service.UpdateNotificationSettings(c.Request.Context(), req.ItemID, owner, req.NotificationSettings)
	if err != nil {
		h.writeError(c, "update_notification_settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
		"message": "Notification settings updated",
	})
}

// StreamEvents relays the owner's bus events as Server-Sent Events until the client leaves.
func (h *Handler) StreamEvents(c *gin.Context) {
	owner, ok := resolveOwner(c, c.Query("userId"))
	if !ok {
		return
	}

	if owner == "" || owner == items.AnonymousOwner {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	sub := h.subscriber.Subscribe(owner)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	slog.Debug("Event stream opened", "owner", owner)

	c.SSEvent("ready", gin.H{"userId": owner})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})

	slog.Debug("Event stream closed", "owner", owner)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if h.itemCounter != nil {
		if count, err := h.itemCounter.GetItemCount(c.Request.Context()); err == nil {
			health["items"] = count
		} else {
			slog.Error("Database error", "operation", "health_item_count", "error", err)
			health["status"] = "degraded"
		}
	}

	if h.docCounter != nil {
		if count, err := h.docCounter.Count(); err == nil {
			health["search_documents"] = count
		}
	}

	c.JSON(http.StatusOK, health)
}

// writeError maps service error categories onto status codes. Upstream and
// storage details are logged, never returned.
func (h *Handler) writeError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, items.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, items.ErrNotFoundOrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found or access denied"})

	case errors.Is(err, items.ErrUpstreamFailure):
		slog.Error("Upstream error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process content"})

	default:
		slog.Error("Database error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
