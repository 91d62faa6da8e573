package models

import "time"

type InventoryCategory string

const (
	InventoryDirect   InventoryCategory = "direct"
	InventoryIndirect InventoryCategory = "indirect"
)

type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
)

// Product is one stock ledger entry. CurrentStock is written only by the stock ledger.
type Product struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	ProductCode       string            `gorm:"size:50;uniqueIndex;not null" json:"product_id"`
	Name              string            `gorm:"size:100;not null" json:"name"`
	InventoryCategory InventoryCategory `gorm:"size:20" json:"inventory_category"`
	Category          string            `gorm:"size:100;index" json:"category"`
	UOM               string            `gorm:"size:20;not null" json:"uom"`
	ItemType          string            `gorm:"size:10" json:"item_type"` // buy, sell, both
	HSNCode           string            `gorm:"size:20" json:"hsn_code"`

	CurrentStock    float64    `gorm:"not null;default:0" json:"current_stock"`
	UpdatedStock    *float64   `json:"updated_stock"`
	ChangeType      ChangeType `gorm:"size:10" json:"change_type"`
	QuantityChanged float64    `gorm:"not null;default:0" json:"quantity_changed"`
	MinStock        *float64   `json:"min_stock"`
	MaxStock        *float64   `json:"max_stock"`

	Price        float64   `gorm:"not null;default:0" json:"price"`
	LatestPrice  *float64  `json:"latest_price"`
	UpdatedPrice *float64  `json:"updated_price"`
	PriceHistory []float64 `gorm:"serializer:json;type:text" json:"price_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
