package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pushrelay/pushrelay/internal/api/models"
	"github.com/pushrelay/pushrelay/internal/api/response"
	"github.com/pushrelay/pushrelay/internal/dispatch"
)

// NotifyHandler handles delivery endpoints.
type NotifyHandler struct {
	dispatcher *dispatch.Service
}

// NewNotifyHandler creates a new NotifyHandler.
func NewNotifyHandler(dispatcher *dispatch.Service) *NotifyHandler {
	return &NotifyHandler{dispatcher: dispatcher}
}

// Notify handles POST /notify - deliver a push and persist a history record.
func (h *NotifyHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var input models.NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.dispatcher.Notify(r.Context(), dispatch.Request{
		UserID: input.UserID,
		Title:  input.Title,
		Body:   input.Body,
		Data:   input.Data,
	})
	if err != nil {
		writeDispatchError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NotifyResponse{
		Success:        true,
		NotificationID: result.NotificationID,
		Sent:           result.Sent,
		Failed:         result.Failed,
	})
}

// DeliverOnly handles POST /notify/deliver-only - deliver a push without a
// history record, gated by the routing filter.
func (h *NotifyHandler) DeliverOnly(w http.ResponseWriter, r *http.Request) {
	var input models.DeliverOnlyRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	data := input.Data
	if input.NotificationID != "" {
		if data == nil {
			data = make(map[string]string, 1)
		}
		data["notification_id"] = input.NotificationID
	}

	result, err := h.dispatcher.DeliverOnly(r.Context(), dispatch.Request{
		UserID: input.ResolveUserID(),
		Title:  input.Title,
		Body:   input.Body,
		Data:   data,
	})
	if err != nil {
		writeDispatchError(w, r, err)
		return
	}

	if result.Skipped {
		response.JSON(w, r, http.StatusOK, models.DeliverOnlyResponse{
			Success: true,
			Skipped: true,
			Reason:  result.SkipReason,
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.DeliverOnlyResponse{
		Success: true,
		Sent:    result.Sent,
		Failed:  result.Failed,
	})
}

// writeDispatchError maps dispatcher errors onto problem responses.
func writeDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *dispatch.ValidationError
	if errors.As(err, &validationErr) {
		response.BadRequest(w, r, "validation failed", validationErr.Errors)
		return
	}
	response.InternalError(w, r, "notification dispatch failed")
}
