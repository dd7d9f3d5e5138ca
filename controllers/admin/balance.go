package admin

import (
	"cashier/helpers"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AdjustBalanceRequest struct {
	ProfileID uint            `json:"profile_id"`
	Action    string          `json:"action"`
	Amount    decimal.Decimal `json:"amount"`
	AdminNote string          `json:"admin_note"`
	UserNote  string          `json:"user_note"`
}

func (h *Handler) AdjustBalance(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	var req AdjustBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	result, err := h.app.Ledger.AdminAdjust(c.UserContext(), admin, services.AdjustRequest{
		ProfileID: req.ProfileID,
		Action:    services.AdjustAction(req.Action),
		Amount:    req.Amount,
		AdminNote: req.AdminNote,
		UserNote:  req.UserNote,
	})
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Balance adjusted", result)
}

func (h *Handler) Reconcile(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	id, ok := helpers.UintParam(c, "ownerID")
	if !ok {
		return helpers.JSONError(c, "INVALID_PROFILE_ID")
	}

	report, err := h.app.Ledger.Reconcile(c.UserContext(), admin, id)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Reconciliation finished", report)
}
