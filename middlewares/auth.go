package middlewares

import (
	"errors"
	"strconv"
	"strings"

	"cashier/helpers"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "caller"

// Authenticator verifies HS256 bearer tokens whose subject is a profile id and
// resolves them through the gate.
type Authenticator struct {
	gate   *services.Gate
	secret []byte
}

func NewAuthenticator(gate *services.Gate, secret string) *Authenticator {
	return &Authenticator{gate: gate, secret: []byte(secret)}
}

func (a *Authenticator) subject(raw string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("subject is not a profile id")
	}
	return uint(id), nil
}

func (a *Authenticator) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return helpers.JSONStatus(c, fiber.StatusUnauthorized, "TOKEN_REQUIRED")
		}

		id, err := a.subject(strings.TrimSpace(raw))
		if err != nil {
			return helpers.JSONStatus(c, fiber.StatusUnauthorized, "INVALID_TOKEN")
		}

		caller, err := a.gate.Authorize(c.UserContext(), id)
		if err != nil {
			return helpers.JSONFail(c, err)
		}

		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// AdminOnly must run after the authenticator.
func AdminOnly(c *fiber.Ctx) error {
	caller, ok := Caller(c)
	if !ok {
		return helpers.JSONStatus(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}
	if _, err := caller.Admin(); err != nil {
		return helpers.JSONFail(c, err)
	}
	return c.Next()
}

func Caller(c *fiber.Ctx) (services.Caller, bool) {
	caller, ok := c.Locals(callerKey).(services.Caller)
	return caller, ok
}
