package location

import (
	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/shared/geo"
	"backend-meetspot/internal/shared/httpx"

	"github.com/gofiber/fiber/v2"
)

type photoRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type reportRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/bbox", func(c *fiber.Ctx) error {
		var box geo.BBox
		var err error
		for key, dst := range map[string]*float64{"west": &box.West, "south": &box.South, "east": &box.East, "north": &box.North} {
			if *dst, err = httpx.QueryFloat(c, key); err != nil {
				return err
			}
		}
		shorts, err := svc.InBBox(c.Context(), box, httpx.QueryList(c, "activities"))
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(shorts)
	})

	r.Get("/around", func(c *fiber.Ctx) error {
		lng, err := httpx.QueryFloat(c, "long")
		if err != nil {
			return err
		}
		lat, err := httpx.QueryFloat(c, "lat")
		if err != nil {
			return err
		}
		limit, err := httpx.QueryCount(c, "limit", defaultAroundLimit)
		if err != nil {
			return err
		}
		q := AroundQuery{
			Center:     geo.Point{Lng: lng, Lat: lat},
			Activities: httpx.QueryList(c, "activities"),
			Limit:      uint64(limit),
		}
		if c.Query("radius") != "" {
			radius, err := httpx.QueryFloat(c, "radius")
			if err != nil {
				return err
			}
			q.RadiusKm = &radius
		}
		locations, err := svc.Around(c.Context(), q)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(locations)
	})

	r.Get("/bulk", func(c *fiber.Ctx) error {
		locations, err := svc.GetBulk(c.Context(), httpx.QueryList(c, "id"))
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(locations)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req NewLocation
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		d, err := svc.Create(c.Context(), auth.UserID(c), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": d.ID})
	})

	r.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Patch
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		d, _, err := svc.Update(c.Context(), auth.UserID(c), req)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(d)
	})

	r.Post("/report-update/:update_id", authMiddleware, func(c *fiber.Ctx) error {
		var req reportRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		id, err := svc.ReportUpdate(c.Context(), auth.UserID(c), c.Params("update_id"), req.Reason)
		if err != nil {
			return httpx.Error(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"report_id": id})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		d, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(d)
	})

	r.Get("/:id/update-history", func(c *fiber.Ctx) error {
		offset, err := httpx.QueryCount(c, "offset", 0)
		if err != nil {
			return err
		}
		page, err := svc.History(c.Context(), c.Params("id"), offset)
		if err != nil {
			return httpx.Error(err)
		}
		return c.JSON(page)
	})

	r.Post("/:id/photos", authMiddleware, func(c *fiber.Ctx) error {
		var req photoRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		d, err := svc.AddPhoto(c.Context(), auth.UserID(c), c.Params("id"), req.URL)
		if err != nil {
			return httpx.Error(err)
		}
		return c.Status(fiber.StatusCreated).JSON(d.Photos)
	})

	r.Delete("/:id/photos", authMiddleware, func(c *fiber.Ctx) error {
		var req photoRequest
		if err := httpx.Parse(c, &req); err != nil {
			return err
		}
		if _, err := svc.RemovePhoto(c.Context(), auth.UserID(c), c.Params("id"), req.URL); err != nil {
			return httpx.Error(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
