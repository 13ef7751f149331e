package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stridewell/step-engine/internal/core/domain"
	"github.com/stridewell/step-engine/internal/core/services"
)

type ChallengeHandler struct {
	svc *services.ChallengeService
}

func NewChallengeHandler(svc *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		svc: svc,
	}
}

func (h *ChallengeHandler) RegisterRoutes(router *gin.RouterGroup) {
	challenges := router.Group("/challenges")
	{
		challenges.GET("", h.List)
		challenges.GET("/:id", h.Get)
		challenges.GET("/:id/cycle", h.CurrentCycle)
		challenges.GET("/:id/leaderboard", h.Leaderboard)
	}
}

func (h *ChallengeHandler) List(c *gin.Context) {
	challenges, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenges)
}

func (h *ChallengeHandler) Get(c *gin.Context) {
	challenge, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

func (h *ChallengeHandler) CurrentCycle(c *gin.Context) {
	cycle, err := h.svc.CurrentCycle(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

func (h *ChallengeHandler) Leaderboard(c *gin.Context) {
	limit := services.DefaultLeaderboardLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.svc.Leaderboard(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":   entries,
		"timestamp": time.Now().UTC(),
	})
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrChallengeNotFound) || errors.Is(err, domain.ErrCycleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})

	case errors.Is(err, domain.ErrEntryConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "version conflict",
			"message": "data has been modified elsewhere, please sync",
		})

	default:
		log.Printf("[ERROR] Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
