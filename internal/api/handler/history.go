package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pushrelay/pushrelay/internal/api/models"
	"github.com/pushrelay/pushrelay/internal/api/response"
	"github.com/pushrelay/pushrelay/internal/history"
)

// defaultListLimit caps GET /notifications when no limit is supplied.
const defaultListLimit = 50

// HistoryHandler handles notification history endpoints.
type HistoryHandler struct {
	history *history.Service
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *history.Service) *HistoryHandler {
	return &HistoryHandler{history: historyService}
}

// List handles GET /notifications?user_id=...&limit=... - newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		response.BadRequest(w, r, "user_id is required", []models.FieldError{
			{Field: "user_id", Message: "is required"},
		})
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, r, "limit must be a positive integer", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		limit = parsed
	}

	items, err := h.history.List(r.Context(), userID, limit)
	if err != nil {
		response.InternalError(w, r, "failed to list notifications")
		return
	}

	unread, err := h.history.CountUnread(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to count unread notifications")
		return
	}

	records := make([]models.NotificationRecord, 0, len(items))
	for i := range items {
		records = append(records, toNotificationRecord(&items[i]))
	}

	response.JSON(w, r, http.StatusOK, models.ListNotificationsResponse{
		Items:       records,
		UnreadCount: unread,
	})
}

// MarkRead handles POST /notifications/{notificationId}/read.
func (h *HistoryHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "notificationId")
	if notificationID == "" {
		response.BadRequest(w, r, "notificationId is required", nil)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		response.BadRequest(w, r, "user_id is required", []models.FieldError{
			{Field: "user_id", Message: "is required"},
		})
		return
	}

	if err := h.history.MarkRead(r.Context(), userID, notificationID); err != nil {
		if errors.Is(err, history.ErrNotificationNotFound) {
			response.NotFound(w, r, "notification not found")
			return
		}
		response.InternalError(w, r, "failed to mark notification read")
		return
	}

	response.JSON(w, r, http.StatusOK, models.MarkReadResponse{Success: true})
}

func toNotificationRecord(n *history.Notification) models.NotificationRecord {
	return models.NotificationRecord{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		IsRead:    n.IsRead,
		CreatedAt: models.Timestamp(n.CreatedAt),
	}
}
