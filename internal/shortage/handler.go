package shortage

import (
	"fmt"
	"strconv"
	"time"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ListResponse struct {
	Data  []Row `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

type RecreateResponse struct {
	Message   string                     `json:"message"`
	Warning   string                     `json:"warning,omitempty"`
	Shortages []models.InventoryShortage `json:"shortages"`
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

func parseFilter(c *fiber.Ctx) (ListFilter, error) {
	f := ListFilter{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 100),
	}
	if s := c.Query("resolved"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "resolved must be true or false")
		}
		f.Resolved = &b
	}
	return f, nil
}

// GET /api/bom/inventory-shortages?page=1&limit=100&resolved=false
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		rows, total, err := List(db, f)
		if err != nil {
			return err
		}
		if f.Page < 1 {
			f.Page = 1
		}
		if f.Limit < 1 {
			f.Limit = 100
		}
		return c.JSON(ListResponse{Data: rows, Total: total, Page: f.Page, Limit: f.Limit})
	}
}

// GET /api/bom/inventory-shortages/export?resolved=false
func ExportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		f.Page, f.Limit = 1, 10000
		rows, _, err := List(db, f)
		if err != nil {
			return err
		}

		book, err := ExportXLSX(rows)
		if err != nil {
			return err
		}
		defer book.Close()

		filename := fmt.Sprintf("inventory-shortages-%s.xlsx", time.Now().Format("20060102"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
		return book.Write(c.Response().BodyWriter())
	}
}

// PATCH /api/bom/inventory-shortages/:id
func PatchHandler(db *gorm.DB, r *Reconciler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body PatchInput
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}

		actor := auth.PrincipalFrom(c)
		var updated *models.InventoryShortage
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			updated, err = r.Patch(tx, id, body, actor)
			return err
		})
		if err != nil {
			return err
		}
		return c.JSON(updated)
	}
}

// GET /api/bom/:id/shortages
func ForBOMHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := db.First(&models.BOM{}, id).Error; err != nil {
			return apperr.NotFoundOr(err, "BOM not found")
		}
		rows, err := ForBOM(db, id)
		if err != nil {
			return err
		}
		return c.JSON(rows)
	}
}

// POST /api/bom/:id/shortages/recreate
func RecreateHandler(db *gorm.DB, r *Reconciler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var assessed []Assessment
		var rows []models.InventoryShortage
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			assessed, rows, err = r.RecreateForBOM(tx, id)
			return err
		})
		if err != nil {
			return err
		}
		if rows == nil {
			rows = []models.InventoryShortage{}
		}
		return c.JSON(RecreateResponse{
			Message:   "Shortages recalculated",
			Warning:   Warning(assessed),
			Shortages: rows,
		})
	}
}
