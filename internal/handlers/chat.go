package handlers

import (
	"errors"
	"log"

	"fitcoach/internal/logging"
	"fitcoach/internal/models"
	"fitcoach/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ChatHandler handles HTTP requests for the coaching conversation
type ChatHandler struct {
	service *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{
		service: service,
	}
}

// Send processes one chat message and returns the shaped reply
// POST /api/chat
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Validation short-circuits before any store access.
	if req.UserID == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing userId or message",
		})
	}

	reqLog := logging.WithRequest(uuid.NewString(), req.UserID)
	reqLog.Info("chat request received")

	resp, err := h.service.SendMessage(c.Context(), &req)
	if err != nil {
		reqLog.Error("chat request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}

	reqLog.Info("chat reply sent",
		"quick_actions", len(resp.QuickActions),
		"coins", resp.Coins,
	)
	return c.JSON(resp)
}

// History returns the user's retained conversation, oldest first
// GET /api/chat/history/:userId
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing userId",
		})
	}

	history, err := h.service.History(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		log.Printf("❌ Failed to load history for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(history)
}
