package admin

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

// currentAdmin writes the failure response itself when ok is false.
func currentAdmin(c *fiber.Ctx) (services.Admin, bool, error) {
	caller, ok := middlewares.Caller(c)
	if !ok {
		return services.Admin{}, false, helpers.JSONStatus(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}
	admin, err := caller.Admin()
	if err != nil {
		return services.Admin{}, false, helpers.JSONFail(c, err)
	}
	return admin, true, nil
}
