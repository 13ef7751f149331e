package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stridewell/step-engine/internal/adapters/handler/http/middleware"
	"github.com/stridewell/step-engine/internal/core/services"
)

type SyncHandler struct {
	svc *services.SyncService
}

func NewSyncHandler(svc *services.SyncService) *SyncHandler {
	return &SyncHandler{
		svc: svc,
	}
}

type syncRequest struct {
	ChallengeID string `json:"challenge_id"`
	Steps       int    `json:"steps" binding:"min=0"`
	Day         string `json:"day"`
	DeviceInfo  string `json:"device_info"`
}

func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup) {
	steps := router.Group("/steps")
	{
		steps.POST("/sync", h.Sync)
	}
}

// Sync accepts one snapshot push from an authenticated device. The
// response mirrors the device-side SyncResult: validation flags are
// data for the client to surface, not HTTP errors.
func (h *SyncHandler) Sync(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authenticated user"})
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	deviceInfo := req.DeviceInfo
	if deviceInfo == "" {
		if deviceID, ok := middleware.GetDeviceID(c); ok {
			deviceInfo = deviceID
		}
	}

	result := h.svc.Push(c.Request.Context(), services.PushInput{
		UserID:        userID,
		ChallengeID:   req.ChallengeID,
		DeviceInfo:    deviceInfo,
		ReportedSteps: req.Steps,
		Day:           req.Day,
	})

	status := http.StatusOK
	if !result.Success {
		// Retryable backend failure, not a client mistake.
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, result)
}
