package apperr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  int
		msg   string
		known bool
	}{
		{"validation", Validation("bad %s", "qty"), fiber.StatusBadRequest, "bad qty", true},
		{"wrapped not found", fmt.Errorf("loading: %w", NotFound("BOM not found")), fiber.StatusNotFound, "BOM not found", true},
		{"forbidden", Forbidden("no"), fiber.StatusForbidden, "no", true},
		{"conflict", Conflict("busy"), fiber.StatusConflict, "busy", true},
		{"fiber", fiber.NewError(fiber.StatusUnauthorized, "Invalid token"), fiber.StatusUnauthorized, "Invalid token", true},
		{"duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), fiber.StatusBadRequest, "A unique constraint error occurred", true},
		{"record not found", gorm.ErrRecordNotFound, fiber.StatusNotFound, "Record not found", true},
		{"unknown", fmt.Errorf("boom"), fiber.StatusInternalServerError, "Unexpected server error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg, known := Status(tt.err)
			if code != tt.code || msg != tt.msg || known != tt.known {
				t.Errorf("expected (%d, %q, %v), got (%d, %q, %v)", tt.code, tt.msg, tt.known, code, msg, known)
			}
		})
	}
}

type sample struct {
	Name  string  `json:"bom_name" validate:"required,min=2,max=100"`
	Count int     `json:"parts_count" validate:"gt=0"`
	Cost  float64 `json:"total_cost" validate:"gte=0"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := Validate(&sample{Name: "x", Count: 0, Cost: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	code, msg, _ := Status(err)
	if code != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
	for _, want := range []string{"bom_name must be at least 2", "parts_count must be greater than 0", "total_cost must be 0 or more"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got %q", want, msg)
		}
	}

	if err := Validate(&sample{Name: "Chair", Count: 1}); err != nil {
		t.Errorf("expected valid sample, got %v", err)
	}
}

func TestNotFoundOr(t *testing.T) {
	if !Is(NotFoundOr(gorm.ErrRecordNotFound, "Product not found"), KindNotFound) {
		t.Error("expected not found kind")
	}
	err := NotFoundOr(fmt.Errorf("conn reset"), "Product not found")
	if Is(err, KindNotFound) {
		t.Error("expected a plain wrapped error")
	}
}

func TestHandlerLogsUnknownErrors(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	app := fiber.New(fiber.Config{ErrorHandler: Handler(logger)})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("disk full") })
	app.Get("/missing", func(c *fiber.Ctx) error { return NotFound("BOM not found") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusInternalServerError || !strings.Contains(string(body), "Unexpected server error") {
		t.Errorf("expected generic 500, got %d %s", resp.StatusCode, body)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "disk full" || entry.Data["module"] != "http" || entry.Data["funcName"] != "/boom" {
		t.Fatalf("expected a structured error entry, got %+v", entry)
	}

	hook.Reset()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if n := len(hook.AllEntries()); n != 0 {
		t.Errorf("expected domain errors not to be logged, got %d entries", n)
	}
}
