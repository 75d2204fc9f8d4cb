package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/launchpad-match/internal/port"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, port.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrMalformedVector):
		// Vectors come from the model or the store, never the request.
		return fiber.StatusInternalServerError
	case errors.Is(err, port.ErrBackfillRunning):
		return fiber.StatusConflict
	case errors.Is(err, port.ErrProviderUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders any error returned by a handler as {"error": "..."}.
func ErrorHandler(c fiber.Ctx, err error) error {
	msg := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": msg})
}

func respondError(c fiber.Ctx, err error) error {
	return ErrorHandler(c, err)
}

// bindJSON decodes the request body into out.
func bindJSON(c fiber.Ctx, out any) error {
	if err := c.Bind().JSON(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	return nil
}
