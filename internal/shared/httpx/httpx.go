// Package httpx holds the fiber glue shared by the feature handlers.
package httpx

import (
	"errors"
	"strconv"
	"strings"

	"backend-meetspot/internal/shared/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes the request body into dst and runs its validate tags.
func Parse(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

// Validate runs the validate tags of a value built from query parameters.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

// Error converts a service error into a fiber error with the matching status.
func Error(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	return fiber.NewError(Status(err), err.Error())
}

func Status(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindInvalid:
		return fiber.StatusBadRequest
	case apperr.KindQuotaExceeded:
		return fiber.StatusTooManyRequests
	case apperr.KindUnauthenticated:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// QueryFloat parses a required numeric query parameter.
func QueryFloat(c *fiber.Ctx, key string) (float64, error) {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be a number")
	}
	return v, nil
}

// QueryCount parses an optional non-negative integer such as a limit or an offset.
func QueryCount(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be a non-negative integer")
	}
	return v, nil
}

// QueryList collects a repeated query parameter (?id=a&id=b).
func QueryList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}
