package apperr

import (
	"reflect"
	"strings"

	"mfg-erp-backend/internal/logging"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate runs the struct's validate tags.
func Validate(v any) error {
	return validate.Struct(v)
}

// ParseBody decodes the request body into dst and validates it.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return Validate(dst)
}

// Handler is the global fiber error handler.
func Handler(logger logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg, known := Status(err)
		if !known {
			logging.LogError(logger, "http", c.Route().Path, c.Method()+" "+c.Path(), nil, err)
		}
		return c.Status(code).JSON(fiber.Map{
			"error": msg,
		})
	}
}
