package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name              string                   `json:"name" validate:"required,min=2,max=100"`
	Category          string                   `json:"category" validate:"max=100"`
	InventoryCategory models.InventoryCategory `json:"inventory_category" validate:"omitempty,oneof=direct indirect"`
	UOM               string                   `json:"uom" validate:"required,max=20"`
	ItemType          string                   `json:"item_type" validate:"omitempty,oneof=buy sell both"`
	HSNCode           string                   `json:"hsn_code" validate:"max=20"`
	CurrentStock      float64                  `json:"current_stock" validate:"gte=0"`
	MinStock          *float64                 `json:"min_stock" validate:"omitempty,gte=0"`
	MaxStock          *float64                 `json:"max_stock" validate:"omitempty,gte=0"`
	Price             float64                  `json:"price" validate:"gte=0"`
}

// UpdateProductRequest is the allow-list of editable metadata. Stock and price
// have their own endpoints.
type UpdateProductRequest struct {
	Name              *string                   `json:"name" validate:"omitempty,min=2,max=100"`
	Category          *string                   `json:"category" validate:"omitempty,max=100"`
	InventoryCategory *models.InventoryCategory `json:"inventory_category" validate:"omitempty,oneof=direct indirect"`
	UOM               *string                   `json:"uom" validate:"omitempty,min=1,max=20"`
	ItemType          *string                   `json:"item_type" validate:"omitempty,oneof=buy sell both"`
	HSNCode           *string                   `json:"hsn_code" validate:"omitempty,max=20"`
	MinStock          *float64                  `json:"min_stock" validate:"omitempty,gte=0"`
	MaxStock          *float64                  `json:"max_stock" validate:"omitempty,gte=0"`
}

type ProductListResponse struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

func productID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
	}
	return uint(id), nil
}

// POST /api/products (super)
func CreateProductHandler(db *gorm.DB, ledger *stock.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		actor := auth.PrincipalFrom(c)

		p := models.Product{
			Name:              capitalizeWords(body.Name),
			Category:          strings.TrimSpace(body.Category),
			InventoryCategory: body.InventoryCategory,
			UOM:               strings.TrimSpace(body.UOM),
			ItemType:          body.ItemType,
			HSNCode:           strings.TrimSpace(body.HSNCode),
			MinStock:          body.MinStock,
			MaxStock:          body.MaxStock,
			Price:             body.Price,
		}
		if p.InventoryCategory == "" {
			p.InventoryCategory = models.InventoryDirect
		}

		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			code, err := NextProductCode(tx, p.Category)
			if err != nil {
				return err
			}
			p.ProductCode = code
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("creating product: %w", err)
			}
			err = audit.Write(tx, audit.LogOptions{
				UserID:      actor.UserID,
				UserName:    actor.Name,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: "product created",
				After:       p,
			})
			if err != nil {
				return err
			}
			if body.CurrentStock > 0 {
				after, err := ledger.Adjust(tx, stock.Movement{
					ProductID: p.ID,
					Delta:     body.CurrentStock,
					Reason:    "opening stock",
					Actor:     actor,
				})
				if err != nil {
					return err
				}
				p = *after
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Product has been added successfully",
			"product": p,
		})
	}
}

// GET /api/products?category=direct&search=steel&page=1&limit=100
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		limit := c.QueryInt("limit", 100)
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 1000 {
			limit = 100
		}

		q := db.WithContext(c.UserContext()).Model(&models.Product{})
		if category := c.Query("category"); category != "" {
			q = q.Where("inventory_category = ?", category)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(product_code) LIKE ?", like, like)
		}

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fmt.Errorf("counting products: %w", err)
		}
		var products []models.Product
		if err := q.Order("updated_at DESC").Order("id DESC").
			Offset((page - 1) * limit).Limit(limit).Find(&products).Error; err != nil {
			return fmt.Errorf("listing products: %w", err)
		}
		return c.JSON(ProductListResponse{Products: products, Total: total, Page: page, Limit: limit})
	}
}

// GET /api/products/:id
func GetProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		var p models.Product
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return apperr.NotFoundOr(err, "Product doesn't exist")
		}
		return c.JSON(fiber.Map{"product": p})
	}
}

// PUT /api/products/:id
func UpdateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		var body UpdateProductRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		actor := auth.PrincipalFrom(c)

		var p models.Product
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&p, id).Error; err != nil {
				return apperr.NotFoundOr(err, "Product doesn't exist")
			}
			before := p

			if body.Name != nil {
				p.Name = capitalizeWords(*body.Name)
			}
			if body.Category != nil {
				category := strings.TrimSpace(*body.Category)
				if category != p.Category && codePrefix(category) != codePrefix(p.Category) {
					code, err := NextProductCode(tx, category)
					if err != nil {
						return err
					}
					p.ProductCode = code
				}
				p.Category = category
			}
			if body.InventoryCategory != nil {
				p.InventoryCategory = *body.InventoryCategory
			}
			if body.UOM != nil {
				p.UOM = strings.TrimSpace(*body.UOM)
			}
			if body.ItemType != nil {
				p.ItemType = *body.ItemType
			}
			if body.HSNCode != nil {
				p.HSNCode = strings.TrimSpace(*body.HSNCode)
			}
			if body.MinStock != nil {
				p.MinStock = body.MinStock
			}
			if body.MaxStock != nil {
				p.MaxStock = body.MaxStock
			}

			err := tx.Model(&p).Select("name", "category", "product_code", "inventory_category",
				"uom", "item_type", "hsn_code", "min_stock", "max_stock").Updates(&p).Error
			if err != nil {
				return fmt.Errorf("updating product %d: %w", p.ID, err)
			}
			return audit.Write(tx, audit.LogOptions{
				UserID:      actor.UserID,
				UserName:    actor.Name,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: "product updated",
				Before:      before,
				After:       p,
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "Product has been updated successfully",
			"product": p,
		})
	}
}

// PUT /api/products/update-stock-and-shortages
func SetStockHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SetStockInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		res, err := svc.SetStock(c.UserContext(), body, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/products/update-inventory
func ReceivePurchaseHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PurchaseInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		res, err := svc.ReceivePurchase(c.UserContext(), body, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// PUT /api/products/:id/price
func StagePriceHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		var body PriceInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		p, err := svc.StagePrice(c.UserContext(), id, body, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":         "Updated price saved successfully",
			"product":         p,
			"currentPrice":    p.Price,
			"updatedPrice":    *body.Price,
			"priceDifference": *body.Price - p.Price,
		})
	}
}

// PUT /api/products/:id/clear-updated-price
func ClearUpdatedPriceHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		p, err := svc.ClearUpdatedPrice(c.UserContext(), id, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Updated price cleared successfully", "product": p})
	}
}

// PUT /api/products/:id/clear-updated-stock
func ClearUpdatedStockHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		p, err := svc.ClearUpdatedStock(c.UserContext(), id, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Updated stock cleared successfully", "product": p})
	}
}
