package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error as {"message": ...}. Fiber errors keep
// their status; anything else is classified by kind.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusCode(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}
