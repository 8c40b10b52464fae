package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/auth"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/storage"
	"github.com/your-org/fdalert/pkg/dto"
)

type ConfigStore interface {
	GetConfig(ctx context.Context, owner uuid.UUID) (*models.Configuration, error)
	UpsertConfig(ctx context.Context, cfg *models.Configuration) (*models.Configuration, error)
	SetPushPermission(ctx context.Context, owner uuid.UUID, decision models.PushPermission) (models.PushPermission, error)
}

type ConfigHandler struct {
	store ConfigStore
}

func NewConfigHandler(store ConfigStore) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// load returns the stored configuration or the defaults for a new owner.
func (h *ConfigHandler) load(ctx context.Context, owner uuid.UUID) (*models.Configuration, error) {
	cfg, err := h.store.GetConfig(ctx, owner)
	if errors.Is(err, storage.ErrNotFound) {
		def := models.DefaultConfiguration(owner)
		return &def, nil
	}
	return cfg, err
}

func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.load(c.Request.Context(), auth.Owner(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg.ToResponse())
}

func (h *ConfigHandler) Put(c *gin.Context) {
	var req dto.ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.load(ctx, auth.Owner(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	cfg.Apply(req)

	saved, err := h.store.UpsertConfig(ctx, cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved.ToResponse())
}

func (h *ConfigHandler) GetPermission(c *gin.Context) {
	cfg, err := h.load(c.Request.Context(), auth.Owner(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.PermissionResponse{Permission: string(cfg.PushPermission)})
}

// SetPermission records the browser's notification decision. The first
// decision sticks; later calls return the stored value.
func (h *ConfigHandler) SetPermission(c *gin.Context) {
	var req dto.PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	owner := auth.Owner(c)
	decision := models.PushPermission(req.Decision)

	perm, err := h.store.SetPushPermission(ctx, owner, decision)
	if errors.Is(err, storage.ErrNotFound) {
		def := models.DefaultConfiguration(owner)
		if _, err = h.store.UpsertConfig(ctx, &def); err == nil {
			perm, err = h.store.SetPushPermission(ctx, owner, decision)
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.PermissionResponse{Permission: string(perm)})
}
