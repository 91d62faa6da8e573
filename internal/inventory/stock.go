package inventory

import (
	"context"
	"fmt"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/shortage"
	"mfg-erp-backend/internal/stock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const priceHistoryLimit = 5

// StockService covers the stock and price changes made by inventory staff.
// Every stock move re-diffs the item's open shortages in the same transaction.
type StockService struct {
	db         *gorm.DB
	ledger     *stock.Ledger
	reconciler *shortage.Reconciler
	log        logrus.FieldLogger
}

func NewStockService(db *gorm.DB, ledger *stock.Ledger, reconciler *shortage.Reconciler, log logrus.FieldLogger) *StockService {
	return &StockService{db: db, ledger: ledger, reconciler: reconciler, log: log}
}

type SetStockInput struct {
	ProductID uint     `json:"productId" validate:"required"`
	NewStock  *float64 `json:"newStock" validate:"required,gte=0"`
}

type SetStockResult struct {
	Message   string                     `json:"message"`
	Product   *models.Product            `json:"product"`
	Delta     float64                    `json:"delta"`
	Shortages *shortage.StockDeltaResult `json:"shortages,omitempty"`
}

// SetStock moves an item's stock to an absolute count.
func (s *StockService) SetStock(ctx context.Context, in SetStockInput, actor auth.Principal) (*SetStockResult, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	res := &SetStockResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delta, p, err := s.ledger.Set(tx, in.ProductID, *in.NewStock, actor, "manual stock update")
		if err != nil {
			return err
		}
		res.Product, res.Delta = p, delta
		if delta == 0 {
			res.Message = "No change"
			return nil
		}
		res.Shortages, err = s.reconciler.ApplyStockDelta(tx, in.ProductID, delta, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Message == "" {
		res.Message = "Stock and shortages updated successfully"
	}
	return res, nil
}

type PurchaseInput struct {
	ItemID      uint    `json:"itemId" validate:"required"`
	BuyQuantity float64 `json:"buyQuantity" validate:"gt=0"`
	NewPrice    float64 `json:"newPrice" validate:"gt=0"`
}

type PurchaseResult struct {
	Product         *models.Product            `json:"product"`
	CurrentPrice    float64                    `json:"currentPrice"`
	UpdatedPrice    float64                    `json:"updatedPrice"`
	FinalPrice      float64                    `json:"finalPrice"`
	PriceDifference float64                    `json:"priceDifference"`
	PreviousStock   float64                    `json:"previousStock"`
	NewStock        float64                    `json:"newStock"`
	Shortages       *shortage.StockDeltaResult `json:"shortages"`
}

// ReceivePurchase books bought stock and moves the list price to the weighted
// average of what was on hand and what was bought.
func (s *StockService) ReceivePurchase(ctx context.Context, in PurchaseInput, actor auth.Principal) (*PurchaseResult, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	res := &PurchaseResult{UpdatedPrice: in.NewPrice}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&before, in.ItemID).Error; err != nil {
			return apperr.NotFoundOr(err, "Product doesn't exist")
		}
		res.CurrentPrice = before.Price
		res.PreviousStock = before.CurrentStock
		res.FinalPrice = quantity.WeightedAverage(before.CurrentStock, before.Price, in.BuyQuantity, in.NewPrice)
		res.PriceDifference = quantity.Round0(quantity.Sub(in.NewPrice, before.Price))

		after, err := s.ledger.Adjust(tx, stock.Movement{
			ProductID: in.ItemID,
			Delta:     in.BuyQuantity,
			Reason:    "purchase received",
			Actor:     actor,
		})
		if err != nil {
			return err
		}
		final := res.FinalPrice
		err = tx.Model(after).Updates(map[string]any{"price": final, "latest_price": final}).Error
		if err != nil {
			return fmt.Errorf("updating price of product %d: %w", after.ID, err)
		}
		after.Price, after.LatestPrice = final, &final
		res.Product, res.NewStock = after, after.CurrentStock

		res.Shortages, err = s.reconciler.ApplyStockDelta(tx, in.ItemID, in.BuyQuantity, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type PriceInput struct {
	Price *float64 `json:"price" validate:"required,gte=0"`
}

// StagePrice records a new price for review without replacing the list price.
func (s *StockService) StagePrice(ctx context.Context, productID uint, in PriceInput, actor auth.Principal) (*models.Product, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	price := *in.Price
	return s.updateProduct(ctx, productID, actor, "price staged", func(p *models.Product) {
		p.PriceHistory = append(p.PriceHistory, price)
		if n := len(p.PriceHistory); n > priceHistoryLimit {
			p.PriceHistory = p.PriceHistory[n-priceHistoryLimit:]
		}
		p.UpdatedPrice = &price
		p.LatestPrice = &price
	})
}

func (s *StockService) ClearUpdatedPrice(ctx context.Context, productID uint, actor auth.Principal) (*models.Product, error) {
	return s.updateProduct(ctx, productID, actor, "staged price cleared", func(p *models.Product) {
		p.UpdatedPrice = nil
	})
}

func (s *StockService) ClearUpdatedStock(ctx context.Context, productID uint, actor auth.Principal) (*models.Product, error) {
	return s.updateProduct(ctx, productID, actor, "staged stock cleared", func(p *models.Product) {
		p.UpdatedStock = nil
	})
}

func (s *StockService) updateProduct(ctx context.Context, productID uint, actor auth.Principal, desc string, fn func(*models.Product)) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, productID).Error; err != nil {
			return apperr.NotFoundOr(err, "Product doesn't exist")
		}
		before := p
		before.PriceHistory = append([]float64(nil), p.PriceHistory...)
		fn(&p)
		err := tx.Model(&p).Select("price_history", "updated_price", "latest_price", "updated_stock").Updates(&p).Error
		if err != nil {
			return fmt.Errorf("updating product %d: %w", p.ID, err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: desc,
			Before:      before,
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
