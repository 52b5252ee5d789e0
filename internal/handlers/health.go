package handlers

import (
	"time"

	"fitcoach/internal/database"
	"fitcoach/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db         *database.MongoDB
	engagement *services.EngagementService // optional
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.MongoDB, engagement *services.EngagementService) *HealthHandler {
	return &HealthHandler{db: db, engagement: engagement}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"
	dbStatus := "up"
	if err := h.db.Ping(c.Context()); err != nil {
		status = "degraded"
		dbStatus = "down"
	}

	resp := fiber.Map{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if h.engagement != nil {
		resp["messages_today"] = h.engagement.TodayCount(c.Context())
	}

	return c.JSON(resp)
}
