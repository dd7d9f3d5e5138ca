package user

import (
	"cashier/helpers"
	"cashier/models"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	ctx := c.UserContext()

	page, err := h.app.Inbox.List(ctx, user, c.QueryBool("unread", false), helpers.PageParams(c))
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	unread, err := h.app.Inbox.Unread(ctx, user)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Notifications retrieved successfully", fiber.Map{
		"unread":        unread,
		"notifications": page,
	})
}

func (h *Handler) MarkRead(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	id, ok := helpers.UintParam(c, "id")
	if !ok {
		return helpers.JSONError(c, "INVALID_NOTIFICATION_ID")
	}

	if err := h.app.Inbox.MarkRead(c.UserContext(), user, id); err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Notification marked as read", nil)
}

func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}

	n, err := h.app.Inbox.MarkAllRead(c.UserContext(), user)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Notifications marked as read", fiber.Map{"updated": n})
}

type PreferencesRequest struct {
	Payment        bool    `json:"payment"`
	Balance        bool    `json:"balance"`
	System         bool    `json:"system"`
	Promotion      bool    `json:"promotion"`
	TelegramChatID *string `json:"telegram_chat_id"`
}

func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	var req PreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	profile, err := h.app.Inbox.UpdatePreferences(c.UserContext(), user, services.PreferencesUpdate{
		Preferences: models.NotificationPreferences{
			Payment:   req.Payment,
			Balance:   req.Balance,
			System:    req.System,
			Promotion: req.Promotion,
		},
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Preferences updated", fiber.Map{
		"preferences":      profile.Preferences,
		"telegram_chat_id": profile.TelegramChatID,
	})
}
