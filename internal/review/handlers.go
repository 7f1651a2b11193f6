package review

import (
	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/shared/httpx"

	"github.com/gofiber/fiber/v2"
)

type reportRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RegisterRoutes mounts the review endpoints below /locations/:location_id/reviews.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		offset, err := httpx.QueryCount(c, "offset", 0)
		if err != nil {
			return err
		}
		n, err := httpx.QueryCount(c, "n", 10)
		if err != nil {
			return err
		}
		page, err := svc.Page(c.Context(), c.Params("location_id"), offset, n)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(page)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Input
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		review, err := svc.Create(c.Context(), auth.UserID(c), c.Params("location_id"), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": review.ID})
	})

	r.Put("/:review_id", authMiddleware, func(c *fiber.Ctx) error {
		var req Input
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		review, err := svc.Update(c.Context(), auth.UserID(c), c.Params("review_id"), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(review)
	})

	r.Delete("/:review_id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), auth.UserID(c), c.Params("review_id")); err != nil {
			return httpx.Error(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Put("/:review_id/report", authMiddleware, func(c *fiber.Ctx) error {
		var req reportRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		id, err := svc.Report(c.Context(), auth.UserID(c), c.Params("review_id"), req.Reason)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(fiber.Map{"report_id": id})
	})
}
