package session

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func RegisterRoutes(r fiber.Router, store *Store, middleware ...fiber.Handler) {
	handlers := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, middleware...), h)
	}

	r.Get("/:id", handlers(func(c *fiber.Ctx) error {
		sess, err := store.Get(c.Context(), c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(sess)
	})...)

	r.Get("/:id/points", handlers(func(c *fiber.Ctx) error {
		points, err := store.RoutePoints(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(points)
	})...)

	r.Get("/:id/summary", handlers(func(c *fiber.Ctx) error {
		summary, err := store.Summary(c.Context(), c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(summary)
	})...)
}

func lookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
