package shortage

import (
	"fmt"
	"time"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/stock"

	"gorm.io/gorm"
)

// PatchInput lists the only fields a user may change on a shortage.
type PatchInput struct {
	StockToAdd           *float64 `json:"stockToAdd"`
	NewShortageQuantity  *float64 `json:"newShortageQuantity"`
	ShouldRecreateOnEdit *bool    `json:"should_recreate_on_edit"`
}

// Patch applies a manual adjustment to one shortage. Topping up stock also
// credits the product through the ledger.
func (r *Reconciler) Patch(tx *gorm.DB, id uint, in PatchInput, actor auth.Principal) (*models.InventoryShortage, error) {
	if in.StockToAdd == nil && in.NewShortageQuantity == nil && in.ShouldRecreateOnEdit == nil {
		return nil, apperr.Validation("Either stockToAdd or newShortageQuantity must be provided")
	}

	var s models.InventoryShortage
	if err := tx.First(&s, id).Error; err != nil {
		return nil, apperr.NotFoundOr(err, "Shortage not found")
	}
	before := s

	var newQty *float64
	switch {
	case in.StockToAdd != nil:
		if *in.StockToAdd <= 0 {
			return nil, apperr.Validation("stockToAdd must be greater than 0")
		}
		if _, err := r.ledger.Adjust(tx, stock.Movement{
			ProductID: s.ItemID,
			Delta:     *in.StockToAdd,
			Reason:    fmt.Sprintf("stock added against shortage %d", s.ID),
			Actor:     actor,
			Stage:     true,
		}); err != nil {
			return nil, err
		}
		q := quantity.ClampZero(s.ShortageQuantity, *in.StockToAdd)
		newQty = &q
	case in.NewShortageQuantity != nil:
		if *in.NewShortageQuantity < 0 {
			return nil, apperr.Validation("newShortageQuantity cannot be negative")
		}
		q := *in.NewShortageQuantity
		newQty = &q
	}

	if newQty != nil {
		if *newQty == 0 {
			if s.IsResolved {
				r.log.WithField("shortage_id", s.ID).Warn("shortage resolved twice")
			} else {
				markResolved(&s, actor, time.Now())
			}
			s.ShortageQuantity = 0
		} else {
			s.ShortageQuantity = *newQty
			s.IsResolved = false
			s.ResolvedAt = nil
			s.ResolvedByID = nil
		}
	}
	if in.ShouldRecreateOnEdit != nil {
		s.ShouldRecreateOnEdit = *in.ShouldRecreateOnEdit
	}

	if err := tx.Save(&s).Error; err != nil {
		return nil, fmt.Errorf("saving shortage %d: %w", s.ID, err)
	}

	err := audit.Write(tx, audit.LogOptions{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		EntityType:  "inventory_shortage",
		EntityID:    s.ID,
		Action:      models.AuditActionUpdate,
		Description: "shortage adjusted",
		Before:      before,
		After:       s,
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Row is a shortage joined with its item and BOM for listings.
type Row struct {
	ID                       uint       `json:"id"`
	BOMID                    uint       `json:"bom"`
	BOMCode                  string     `json:"bom_id"`
	BOMName                  string     `json:"bom_name"`
	BOMApproved              bool       `json:"approved"`
	RawMaterialID            uint       `json:"raw_material"`
	ItemID                   uint       `json:"item"`
	ItemName                 string     `json:"item_name"`
	UOM                      string     `json:"uom"`
	CurrentStock             float64    `json:"current_stock"`
	ShortageQuantity         float64    `json:"shortage_quantity"`
	OriginalShortageQuantity float64    `json:"original_shortage_quantity"`
	TotalRequired            float64    `json:"total_required"`
	AvailableStock           float64    `json:"available_stock"`
	IsResolved               bool       `json:"is_resolved"`
	ResolvedAt               *time.Time `json:"resolved_at"`
	ShouldRecreateOnEdit     bool       `json:"should_recreate_on_edit"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

func toRow(s models.InventoryShortage) Row {
	row := Row{
		ID:                       s.ID,
		BOMID:                    s.BOMID,
		RawMaterialID:            s.RawMaterialID,
		ItemID:                   s.ItemID,
		ShortageQuantity:         s.ShortageQuantity,
		OriginalShortageQuantity: s.OriginalShortageQuantity,
		TotalRequired:            s.TotalRequired,
		AvailableStock:           s.AvailableStock,
		IsResolved:               s.IsResolved,
		ResolvedAt:               s.ResolvedAt,
		ShouldRecreateOnEdit:     s.ShouldRecreateOnEdit,
		UpdatedAt:                s.UpdatedAt,
	}
	if s.BOM != nil {
		row.BOMCode = s.BOM.BOMCode
		row.BOMName = s.BOM.Name
		row.BOMApproved = s.BOM.Approved
	}
	if s.Item != nil {
		row.ItemName = s.Item.Name
		row.UOM = s.Item.UOM
		row.CurrentStock = s.Item.CurrentStock
	}
	return row
}

type ListFilter struct {
	Page     int
	Limit    int
	Resolved *bool
}

// List pages through shortages, newest first.
func List(db *gorm.DB, f ListFilter) ([]Row, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 100
	}

	q := db.Model(&models.InventoryShortage{})
	if f.Resolved != nil {
		q = q.Where("is_resolved = ?", *f.Resolved)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting shortages: %w", err)
	}

	var rows []models.InventoryShortage
	err := q.Preload("Item").Preload("BOM").
		Order("updated_at DESC").Order("id DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing shortages: %w", err)
	}

	out := make([]Row, 0, len(rows))
	for _, s := range rows {
		out = append(out, toRow(s))
	}
	return out, total, nil
}

func ForBOM(db *gorm.DB, bomID uint) ([]Row, error) {
	var rows []models.InventoryShortage
	err := db.Preload("Item").Preload("BOM").
		Where("bom_id = ?", bomID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing shortages of bom %d: %w", bomID, err)
	}
	out := make([]Row, 0, len(rows))
	for _, s := range rows {
		out = append(out, toRow(s))
	}
	return out, nil
}
