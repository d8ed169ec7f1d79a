package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pushrelay/pushrelay/internal/api/models"
	"github.com/pushrelay/pushrelay/internal/api/response"
	"github.com/pushrelay/pushrelay/internal/token"
)

// TokenHandler handles device token registry endpoints.
type TokenHandler struct {
	tokens *token.Service
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokens *token.Service) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Register handles POST /tokens/register - upsert a device token.
func (h *TokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input models.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	record, err := h.tokens.Register(r.Context(), input.UserID, input.Token, token.Platform(input.Platform))
	if err != nil {
		var validationErr *token.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation failed", validationErr.Errors)
			return
		}
		response.InternalError(w, r, "token registration failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.RegisterTokenResponse{
		Success:     true,
		TokenRecord: toTokenRecord(record),
	})
}

// InvalidateByPlatform handles POST /tokens/invalidate-by-platform - sweep
// every token of one platform. Admin-only, gated by the shared-secret
// middleware on the route.
func (h *TokenHandler) InvalidateByPlatform(w http.ResponseWriter, r *http.Request) {
	var input models.InvalidateByPlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	count, err := h.tokens.InvalidateByPlatform(r.Context(), token.Platform(input.Platform))
	if err != nil {
		var validationErr *token.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation failed", validationErr.Errors)
			return
		}
		response.InternalError(w, r, "token invalidation failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.InvalidateByPlatformResponse{
		Success:          true,
		InvalidatedCount: count,
	})
}

func toTokenRecord(record *token.DeviceToken) models.TokenRecord {
	return models.TokenRecord{
		Token:     record.Token,
		UserID:    record.UserID,
		Platform:  string(record.Platform),
		IsValid:   record.IsValid,
		CreatedAt: models.Timestamp(record.CreatedAt),
		UpdatedAt: models.Timestamp(record.UpdatedAt),
	}
}
