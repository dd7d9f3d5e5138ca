package helpers

import (
	"errors"

	"cashier/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONCreated(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, message string) error {
	return JSONStatus(c, fiber.StatusBadRequest, message)
}

func JSONStatus(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// StatusOf maps a service error kind to its HTTP status.
func StatusOf(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindInvalidFile, services.KindInvalidState,
		services.KindInsufficientBalance, services.KindNegativeBalance:
		return fiber.StatusBadRequest
	case services.KindUnauthorized:
		return fiber.StatusUnauthorized
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindDependency:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// JSONFail writes err as an error envelope. Unclassified errors never leak
// their text to the client.
func JSONFail(c *fiber.Ctx, err error) error {
	var e *services.Error
	if !errors.As(err, &e) {
		zap.L().Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return JSONStatus(c, fiber.StatusInternalServerError, "INTERNAL_ERROR")
	}

	status := StatusOf(e.Kind)
	if status >= fiber.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.Path()),
			zap.String("code", e.Code),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": e.Code,
		"data": fiber.Map{
			"kind":   e.Kind.String(),
			"detail": e.Message,
		},
	})
}

// ErrorHandler is the fiber fallback for errors returned from handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JSONStatus(c, fe.Code, fe.Message)
	}
	return JSONFail(c, err)
}
