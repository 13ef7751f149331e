package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stridewell/step-engine/internal/core/domain"
	"github.com/stridewell/step-engine/internal/core/services"
)

type AuthHandler struct {
	devices *services.DeviceService
	tokens  *services.TokenService
}

func NewAuthHandler(devices *services.DeviceService, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{
		devices: devices,
		tokens:  tokens,
	}
}

type registerDeviceRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Label  string `json:"label"`
	Secret string `json:"secret" binding:"required,min=16"`
}

type deviceResponse struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Label  string `json:"label"`
}

type tokenRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.RegisterDeviceInput{
		UserID: req.UserID,
		Label:  req.Label,
		Secret: req.Secret,
	}

	device, err := h.devices.Register(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDeviceAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "device already registered"})
		case errors.Is(err, domain.ErrSecretTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "device secret too short"})
		case errors.Is(err, domain.ErrInvalidUserID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, deviceResponse{
		ID:     device.ID,
		UserID: device.UserID,
		Label:  device.Label,
	})
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.devices.Authenticate(c.Request.Context(), req.DeviceID, req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDeviceNotFound), errors.Is(err, domain.ErrInvalidDeviceSecret):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid device credentials"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	token, err := h.tokens.GenerateToken(device.UserID, device.ID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/devices", h.RegisterDevice)
		authGroup.POST("/token", h.IssueToken)
	}
}
