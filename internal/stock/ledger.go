package stock

import (
	"fmt"
	"math"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Movement is one change to a product's on-hand quantity.
type Movement struct {
	ProductID uint
	Delta     float64
	Reason    string
	Actor     auth.Principal
	// Stage records a positive delta in updated_stock for later review.
	Stage bool
}

type snapshot struct {
	CurrentStock    float64           `json:"current_stock"`
	ChangeType      models.ChangeType `json:"change_type"`
	QuantityChanged float64           `json:"quantity_changed"`
}

// Ledger is the only writer of products.current_stock.
type Ledger struct {
	log logrus.FieldLogger
}

func NewLedger(log logrus.FieldLogger) *Ledger {
	return &Ledger{log: log}
}

func (l *Ledger) Get(tx *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	if err := tx.First(&p, productID).Error; err != nil {
		return nil, apperr.NotFoundOr(err, "Product not found")
	}
	return &p, nil
}

// Adjust applies m.Delta as a single atomic increment and records the change.
func (l *Ledger) Adjust(tx *gorm.DB, m Movement) (*models.Product, error) {
	before, err := l.Get(tx, m.ProductID)
	if err != nil {
		return nil, err
	}
	if m.Delta == 0 {
		return before, nil
	}

	changeType := models.ChangeIncrease
	if m.Delta < 0 {
		changeType = models.ChangeDecrease
	}
	updates := map[string]any{
		"current_stock":    gorm.Expr("current_stock + ?", m.Delta),
		"change_type":      changeType,
		"quantity_changed": math.Abs(m.Delta),
	}
	if m.Stage {
		if m.Delta > 0 {
			updates["updated_stock"] = m.Delta
		} else {
			updates["updated_stock"] = nil
		}
	}

	res := tx.Model(&models.Product{}).Where("id = ?", m.ProductID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("adjusting stock of product %d: %w", m.ProductID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Product not found")
	}

	after, err := l.Get(tx, m.ProductID)
	if err != nil {
		return nil, err
	}

	if after.CurrentStock < 0 {
		l.log.WithFields(logrus.Fields{
			"product_id": after.ID,
			"product":    after.Name,
			"stock":      after.CurrentStock,
			"delta":      m.Delta,
			"reason":     m.Reason,
		}).Warn("stock went negative")
	}

	err = audit.Write(tx, audit.LogOptions{
		UserID:      m.Actor.UserID,
		UserName:    m.Actor.Name,
		EntityType:  "product",
		EntityID:    after.ID,
		Action:      models.AuditActionStock,
		Description: m.Reason,
		Before:      snapshot{before.CurrentStock, before.ChangeType, before.QuantityChanged},
		After:       snapshot{after.CurrentStock, after.ChangeType, after.QuantityChanged},
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

// Set moves current_stock to newStock and returns the applied delta.
// The row is locked for the rest of the transaction where the database supports it.
func (l *Ledger) Set(tx *gorm.DB, productID uint, newStock float64, actor auth.Principal, reason string) (float64, *models.Product, error) {
	if newStock < 0 || math.IsNaN(newStock) || math.IsInf(newStock, 0) {
		return 0, nil, apperr.Validation("Stock must be a non-negative number")
	}

	var p models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error; err != nil {
		return 0, nil, apperr.NotFoundOr(err, "Product not found")
	}

	delta := newStock - p.CurrentStock
	if delta == 0 {
		return 0, &p, nil
	}

	after, err := l.Adjust(tx, Movement{
		ProductID: productID,
		Delta:     delta,
		Reason:    reason,
		Actor:     actor,
		Stage:     true,
	})
	if err != nil {
		return 0, nil, err
	}
	return delta, after, nil
}
