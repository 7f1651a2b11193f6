package auth

import (
	"backend-meetspot/internal/shared/httpx"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/register", func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		user, tokens, err := svc.Register(c.Context(), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "tokens": tokens})
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		_, tokens, err := svc.Login(c.Context(), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(tokens)
	})

	r.Post("/refresh", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		tokens, err := svc.Refresh(c.Context(), req.RefreshToken)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(tokens)
	})

	r.Post("/logout", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		if err := svc.Logout(c.Context(), req.RefreshToken); err != nil {
			return httpx.Error(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/profile/:id", func(c *fiber.Ctx) error {
		profile, err := svc.Profile(c.Context(), c.Params("id"))
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(profile)
	})

	r.Get("/jwt/verify", func(c *fiber.Ctx) error {
		token := bearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		userID, err := svc.ValidateAccessToken(token)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})

	me := r.Group("/me", authMiddleware)

	me.Get("/", func(c *fiber.Ctx) error {
		user, err := svc.Me(c.Context(), UserID(c))
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(user)
	})

	me.Put("/", func(c *fiber.Ctx) error {
		var req ProfileUpdateRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		user, err := svc.UpdateProfile(c.Context(), UserID(c), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(user)
	})

	me.Put("/password", func(c *fiber.Ctx) error {
		var req ChangePasswordRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		if err := svc.ChangePassword(c.Context(), UserID(c), req); err != nil {
			return httpx.Error(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	me.Put("/avatar", func(c *fiber.Ctx) error {
		var req AvatarRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		user, err := svc.SetAvatar(c.Context(), UserID(c), req.UploadID)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(user)
	})

	me.Delete("/avatar", func(c *fiber.Ctx) error {
		user, err := svc.DeleteAvatar(c.Context(), UserID(c))
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(user)
	})
}
