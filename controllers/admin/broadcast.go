package admin

import (
	"cashier/helpers"
	"cashier/models"

	"github.com/gofiber/fiber/v2"
)

type BroadcastRequest struct {
	Title   string                  `json:"title"`
	Content string                  `json:"content"`
	Type    models.NotificationType `json:"type"`
}

func (h *Handler) Broadcast(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	var req BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.Type == "" {
		req.Type = models.NotificationSystem
	}

	result, err := h.app.Fanout.NotifyAll(c.UserContext(), admin, req.Title, req.Content, req.Type)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Broadcast sent", result)
}
