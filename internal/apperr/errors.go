package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
)

// Error is a domain error that the HTTP layer maps to a status code.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err carries a domain error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// NotFoundOr converts gorm's not-found into a NotFound error with msg and wraps anything else.
func NotFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s", msg)
	}
	return fmt.Errorf("%s: %w", strings.ToLower(msg), err)
}

// Status resolves the HTTP status and client message for err.
func Status(err error) (int, string, bool) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message, true
	}

	var de *Error
	if errors.As(err, &de) {
		switch de.Kind {
		case KindValidation:
			return fiber.StatusBadRequest, de.Message, true
		case KindNotFound:
			return fiber.StatusNotFound, de.Message, true
		case KindForbidden:
			return fiber.StatusForbidden, de.Message, true
		case KindConflict:
			return fiber.StatusConflict, de.Message, true
		}
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, describe(ve), true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fiber.StatusBadRequest, "A unique constraint error occurred", true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.StatusNotFound, "Record not found", true
	}

	return fiber.StatusInternalServerError, "Unexpected server error", false
}

func describe(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s or more", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
