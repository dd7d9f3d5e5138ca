package user

import (
	"encoding/json"

	"cashier/helpers"
	"cashier/models"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Amount  decimal.Decimal      `json:"amount"`
	Method  models.PaymentMethod `json:"method"`
	Details json.RawMessage      `json:"details"`
}

func (r CreateRequest) input() services.NewRequest {
	return services.NewRequest{Amount: r.Amount, Method: r.Method, Details: r.Details}
}

func (h *Handler) CreateDeposit(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	created, err := h.app.Intake.CreateDeposit(c.UserContext(), user, req.input())
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONCreated(c, "Deposit request created", created)
}

func (h *Handler) CreateWithdrawal(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	created, err := h.app.Intake.CreateWithdrawal(c.UserContext(), user, req.input())
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONCreated(c, "Withdrawal request created", created)
}

func (h *Handler) Cancel(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	id, ok := helpers.UintParam(c, "id")
	if !ok {
		return helpers.JSONError(c, "INVALID_REQUEST_ID")
	}

	req, err := h.app.Review.Cancel(c.UserContext(), user, id)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Request cancelled", req)
}

func (h *Handler) ListRequests(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	filter := services.RequestFilter{
		Kind:   models.RequestKind(c.Query("kind")),
		Status: models.RequestStatus(c.Query("status")),
	}

	page, err := h.app.Listing.UserRequests(c.UserContext(), user, filter, helpers.PageParams(c))
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Requests retrieved successfully", page)
}
