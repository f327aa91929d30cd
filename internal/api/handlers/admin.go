package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/curbfleet/mds-provider/internal/apierror"
	"github.com/curbfleet/mds-provider/internal/auth"
)

type createKeyRequest struct {
	ProviderID  string   `json:"provider_id" binding:"required"`
	Permissions []string `json:"permissions"`
}

// CreateAPIKey serves POST /admin/api-keys. The full key appears only in
// this response; afterwards the store exposes the masked preview.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.Validation("invalid_request", "provider_id is required"))
		return
	}

	key, err := h.keys.Generate(req.ProviderID, req.Permissions...)
	if err != nil {
		h.logger.Error("api key generation failed", zap.Error(err))
		apierror.Respond(c, apierror.Internal())
		return
	}
	h.logger.Info("api key created",
		zap.String("provider_id", req.ProviderID),
		zap.String("preview", auth.Preview(key)))

	c.JSON(http.StatusCreated, gin.H{
		"api_key":     key,
		"key_preview": auth.Preview(key),
		"provider_id": req.ProviderID,
		"permissions": req.Permissions,
		"active":      true,
	})
}

// ListAPIKeys serves GET /admin/api-keys, masked previews only.
func (h *Handler) ListAPIKeys(c *gin.Context) {
	creds := h.keys.List()
	keys := make([]gin.H, 0, len(creds))
	for _, cred := range creds {
		keys = append(keys, gin.H{
			"key_preview": cred.Preview,
			"provider_id": cred.Provider,
			"permissions": cred.Permissions,
			"active":      cred.Active,
			"created_at":  cred.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"api_keys": keys})
}

// RevokeAPIKey serves DELETE /admin/api-keys/:preview.
func (h *Handler) RevokeAPIKey(c *gin.Context) {
	preview := c.Param("preview")
	if !h.keys.Revoke(preview) {
		apierror.Respond(c, apierror.NotFound("key_not_found", "API key not found"))
		return
	}
	h.logger.Info("api key revoked", zap.String("preview", preview))
	c.JSON(http.StatusOK, gin.H{"revoked": true, "key_preview": preview})
}
