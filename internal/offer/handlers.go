package offer

import (
	"fmt"
	"time"

	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"
	"backend-meetspot/internal/shared/httpx"

	"github.com/gofiber/fiber/v2"
)

type statusRequest struct {
	Status Status `json:"status" validate:"required,oneof=open closed timeout"`
}

type joinRequest struct {
	Message string `json:"message"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Use(authMiddleware)

	r.Post("/", func(c *fiber.Ctx) error {
		var req NewOffer
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		o, err := svc.Create(c.Context(), auth.UserID(c), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.Status(fiber.StatusCreated).JSON(o)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		var (
			offers []Offer
			err    error
		)
		if c.QueryBool("all-for-user") {
			offers, err = svc.ForUser(c.Context(), userID)
		} else {
			ids := httpx.QueryList(c, "id")
			if len(ids) == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "either all-for-user or id is required")
			}
			offers, err = svc.Get(c.Context(), userID, ids)
		}
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(offers)
	})

	r.Get("/location/:location_id", func(c *fiber.Ctx) error {
		window, err := searchWindow(c, svc)
		if err != nil {
			return httpx.Error(err)
		}
		offers, err := svc.AtLocation(c.Context(), auth.UserID(c), c.Params("location_id"), window)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(offers)
	})

	r.Get("/around", func(c *fiber.Ctx) error {
		origin, err := queryPoint(c)
		if err != nil {
			return err
		}
		radius, err := httpx.QueryFloat(c, "radius")
		if err != nil {
			return err
		}
		window, err := searchWindow(c, svc)
		if err != nil {
			return httpx.Error(err)
		}
		offers, err := svc.Around(c.Context(), Query{
			RequesterID: auth.UserID(c),
			Origin:      &origin,
			RadiusKm:    &radius,
			Activities:  httpx.QueryList(c, "activities"),
			Time:        window,
		})
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(offers)
	})

	r.Get("/bbox", func(c *fiber.Ctx) error {
		var box geo.BBox
		var err error
		for key, dst := range map[string]*float64{"west": &box.West, "south": &box.South, "east": &box.East, "north": &box.North} {
			if *dst, err = httpx.QueryFloat(c, key); err != nil {
				return err
			}
		}
		window, err := searchWindow(c, svc)
		if err != nil {
			return httpx.Error(err)
		}
		origin, err := queryPoint(c)
		if err != nil {
			return err
		}
		offers, err := svc.InBBox(c.Context(), Query{
			RequesterID: auth.UserID(c),
			Origin:      &origin,
			BBox:        &box,
			Activities:  httpx.QueryList(c, "activities"),
			Time:        window,
		})
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(offers)
	})

	r.Put("/me/:offer_id", func(c *fiber.Ctx) error {
		var req statusRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		o, err := svc.SetStatus(c.Context(), auth.UserID(c), c.Params("offer_id"), req.Status)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(o)
	})

	r.Put("/me/:offer_id/accept/:user_id", participantHandler(svc, ParticipantAccepted))
	r.Put("/me/:offer_id/decline/:user_id", participantHandler(svc, ParticipantDeclined))

	r.Put("/:offer_id", func(c *fiber.Ctx) error {
		var req joinRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		o, err := svc.RequestJoin(c.Context(), auth.UserID(c), c.Params("offer_id"), req.Message)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(o)
	})

	r.Delete("/:offer_id/participation", func(c *fiber.Ctx) error {
		o, err := svc.Withdraw(c.Context(), auth.UserID(c), c.Params("offer_id"))
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(o)
	})

	r.Delete("/:offer_id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), auth.UserID(c), c.Params("offer_id")); err != nil {
			return httpx.Error(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func participantHandler(svc *Service, status ParticipantStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := svc.SetParticipantStatus(c.Context(), auth.UserID(c), c.Params("offer_id"), c.Params("user_id"), status)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(o)
	}
}

func queryPoint(c *fiber.Ctx) (geo.Point, error) {
	lng, err := httpx.QueryFloat(c, "long")
	if err != nil {
		return geo.Point{}, err
	}
	lat, err := httpx.QueryFloat(c, "lat")
	if err != nil {
		return geo.Point{}, err
	}
	return geo.Point{Lng: lng, Lat: lat}, nil
}

func searchWindow(c *fiber.Ctx, svc *Service) (Time, error) {
	from, err := queryTime(c, "time_from")
	if err != nil {
		return Time{}, err
	}
	until, err := queryTime(c, "time_until")
	if err != nil {
		return Time{}, err
	}
	return svc.SearchWindow(from, until)
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339", apperr.ErrInvalidSearchWindow, key)
	}
	return &t, nil
}
