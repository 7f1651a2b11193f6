package storage

import (
	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/shared/httpx"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		var req UploadRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		upload, err := svc.Register(c.Context(), auth.UserID(c), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.Status(fiber.StatusCreated).JSON(upload)
	})
}
