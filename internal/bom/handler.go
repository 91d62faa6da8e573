package bom

import (
	"strconv"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type BulkRemoveRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

type RawMaterialApprovalRequest struct {
	ID uint `json:"_id" validate:"required"`
}

type ListResponse struct {
	Message string       `json:"message"`
	Count   int          `json:"count"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	BOMs    []models.BOM `json:"boms"`
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

// POST /api/bom
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInput
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		res, err := svc.Create(c.UserContext(), body, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// PUT /api/bom/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateInput
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		res, err := svc.Update(c.UserContext(), id, body, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// DELETE /api/bom/:id
func RemoveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		b, err := svc.Remove(c.UserContext(), id, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "BOM has been deleted successfully",
			"bom":     b,
		})
	}
}

// DELETE /api/bom/bulk (super)
func BulkRemoveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkRemoveRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		n, err := svc.BulkRemove(c.UserContext(), body.IDs, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": strconv.Itoa(n) + " BOM(s) deleted successfully",
			"deleted": n,
		})
	}
}

// GET /api/bom/:id
func DetailsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		b, err := svc.Details(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(b)
	}
}

// GET /api/bom/all?page=1&limit=100
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		limit := c.QueryInt("limit", 100)
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 100
		}
		boms, err := svc.List(c.UserContext(), page, limit)
		if err != nil {
			return err
		}
		return c.JSON(ListResponse{
			Message: "Approved BOMs fetched successfully",
			Count:   len(boms),
			Page:    page,
			Limit:   limit,
			BOMs:    boms,
		})
	}
}

// GET /api/bom/unapproved
func ListUnapprovedHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boms, err := svc.ListUnapproved(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(boms)
	}
}

// GET /api/bom/finished-good/:productId
func FindByFinishedGoodHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "productId")
		if err != nil {
			return err
		}
		boms, err := svc.FindByFinishedGood(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(boms)
	}
}

// GET /api/bom/autobom?product_id=1&quantity=25&price=12.5 (super)
func AutoBomHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := strconv.ParseUint(c.Query("product_id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "product id is required")
		}
		qty, err := strconv.ParseFloat(c.Query("quantity"), 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be a number")
		}
		var price *float64
		if s := c.Query("price"); s != "" {
			p, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "price must be a number")
			}
			price = &p
		}

		res, err := svc.AutoBom(c.UserContext(), uint(productID), qty, price, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/bom/unapproved/raw-materials (super)
// GET /api/bom/unapproved/inventory/raw-materials
func UnapprovedRawMaterialsHandler(svc *Service, view ApprovalView) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := svc.UnapprovedRawMaterials(c.UserContext(), view)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"unapproved": rows})
	}
}

// POST /api/bom/approve/raw-materials (super)
func ApproveRawMaterialForAdminHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RawMaterialApprovalRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		line, err := svc.ApproveRawMaterialForAdmin(c.UserContext(), body.ID, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":     "Raw material's approval sent to inventory personnel successfully",
			"rawMaterial": line,
		})
	}
}
