package admin

import (
	"cashier/helpers"
	"cashier/models"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
)

type ReviewRequest struct {
	Notes string `json:"notes"`
}

func parseReview(c *fiber.Ctx) (uint, ReviewRequest, bool) {
	var req ReviewRequest
	id, ok := helpers.UintParam(c, "id")
	if !ok {
		return 0, req, false
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return 0, req, false
		}
	}
	return id, req, true
}

func (h *Handler) Approve(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	id, req, ok := parseReview(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_REQUEST")
	}

	settled, err := h.app.Review.Approve(c.UserContext(), admin, id, req.Notes)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Request approved", settled)
}

func (h *Handler) Reject(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	id, req, ok := parseReview(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_REQUEST")
	}

	settled, err := h.app.Review.Reject(c.UserContext(), admin, id, req.Notes)
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Request rejected", settled)
}

func (h *Handler) ListRequests(c *fiber.Ctx) error {
	admin, ok, err := currentAdmin(c)
	if !ok {
		return err
	}
	owner, ok := helpers.UintQuery(c, "owner_id")
	if !ok {
		return helpers.JSONError(c, "INVALID_OWNER_ID")
	}
	filter := services.RequestFilter{
		OwnerID: owner,
		Kind:    models.RequestKind(c.Query("kind")),
		Status:  models.RequestStatus(c.Query("status")),
	}

	page, err := h.app.Listing.AdminRequests(c.UserContext(), admin, filter, helpers.PageParams(c))
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Requests retrieved successfully", page)
}
