package admin

import (
	"cashier/helpers"
	"cashier/models"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	owner, ok := helpers.UintQuery(c, "owner_id")
	if !ok {
		return helpers.JSONError(c, "INVALID_OWNER_ID")
	}
	filter := services.TransactionFilter{
		OwnerID: owner,
		Kind:    models.TransactionKind(c.Query("kind")),
	}

	page, err := h.app.Listing.AdminTransactions(c.UserContext(), admin, filter, helpers.PageParams(c))
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Transactions retrieved successfully", page)
}

func (h *Handler) ListLogs(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	actor, ok := helpers.UintQuery(c, "admin_id")
	if !ok {
		return helpers.JSONError(c, "INVALID_ADMIN_ID")
	}
	filter := services.AdminLogFilter{AdminID: actor, Action: c.Query("action")}

	page, err := h.app.Listing.AdminLogs(c.UserContext(), admin, filter, helpers.PageParams(c))
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Admin logs retrieved successfully", page)
}

func (h *Handler) Summary(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	r, ok := helpers.DateRange(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_DATE")
	}

	summary, err := h.app.Listing.Summary(c.UserContext(), admin, r)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Summary retrieved successfully", summary)
}
