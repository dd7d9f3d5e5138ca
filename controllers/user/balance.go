package user

import (
	"cashier/helpers"
	"cashier/models"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Balance(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}

	profile, err := h.app.Ledger.Balance(c.UserContext(), user)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Balance retrieved successfully", fiber.Map{
		"profile_id": profile.ID,
		"username":   profile.Username,
		"balance":    profile.Balance,
	})
}

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	filter := services.TransactionFilter{Kind: models.TransactionKind(c.Query("kind"))}

	page, err := h.app.Listing.UserTransactions(c.UserContext(), user, filter, helpers.PageParams(c))
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Transactions retrieved successfully", page)
}
