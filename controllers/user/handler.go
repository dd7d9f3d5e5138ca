package user

import (
	"cashier/helpers"
	"cashier/middlewares"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	app *services.App
}

func New(app *services.App) *Handler {
	return &Handler{app: app}
}

func currentUser(c *fiber.Ctx) (services.User, bool) {
	caller, ok := middlewares.Caller(c)
	return caller.User, ok
}

func invalidSession(c *fiber.Ctx) error {
	return helpers.JSONStatus(c, fiber.StatusUnauthorized, "INVALID_SESSION")
}
