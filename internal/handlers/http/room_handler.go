package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
	"github.com/suissa/purecore-ninjalive/internal/core/ports"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/monitoring"
)

// RoomHandler exposes read-only room inspection endpoints. Joining and
// leaving happen over the signaling websocket, never over REST.
type RoomHandler struct {
	admission ports.AdmissionService
	health    *monitoring.HealthChecker
}

func NewRoomHandler(admission ports.AdmissionService, health *monitoring.HealthChecker) *RoomHandler {
	return &RoomHandler{
		admission: admission,
		health:    health,
	}
}

func (h *RoomHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id/stats", h.GetRoomStats)
	}

	router.GET("/health", h.HealthCheck)
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.admission.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

func (h *RoomHandler) GetRoomStats(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	stats, err := h.admission.RoomStats(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
	})
}

func (h *RoomHandler) HealthCheck(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status.Status,
		"timestamp": status.Timestamp.Format(time.RFC3339),
		"checks":    status.Checks,
	})
}
