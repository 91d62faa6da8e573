package models

import "time"

// InventoryShortage is the outstanding deficit of one raw material item for one BOM.
// At most one unresolved row exists per (BOM, item).
type InventoryShortage struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	BOMID         uint            `gorm:"not null;index" json:"bom"`
	BOM           *BOM            `json:"-"`
	RawMaterialID uint            `gorm:"not null;index" json:"raw_material"`
	RawMaterial   *BOMRawMaterial `json:"-"`
	ItemID        uint            `gorm:"not null;index" json:"item"`
	Item          *Product        `json:"-"`

	ShortageQuantity         float64 `gorm:"not null;default:0" json:"shortage_quantity"`
	OriginalShortageQuantity float64 `gorm:"not null;default:0" json:"original_shortage_quantity"`
	TotalRequired            float64 `gorm:"not null;default:0" json:"total_required"`
	AvailableStock           float64 `gorm:"not null;default:0" json:"available_stock"`

	IsResolved   bool       `gorm:"not null;default:false;index" json:"is_resolved"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	ResolvedByID *uint      `json:"resolved_by"`

	// ShouldRecreateOnEdit lets a later BOM edit reopen this shortage once resolved.
	ShouldRecreateOnEdit bool `gorm:"not null" json:"should_recreate_on_edit"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
