package models

import "time"

type ProductionStatus string

const (
	StatusRawMaterialApprovalPending ProductionStatus = "raw material approval pending"
	StatusRawMaterialsApproved       ProductionStatus = "raw materials approved"
	StatusInventoryAllocated         ProductionStatus = "Inventory Allocated"
	StatusRequestForAllowInventory   ProductionStatus = "request for allow inventory"
	StatusInventoryInTransit         ProductionStatus = "inventory in transit"
	StatusProductionStarted          ProductionStatus = "production started"
	StatusProductionInProgress       ProductionStatus = "production in progress"
	StatusProductionPaused           ProductionStatus = "production paused"
	StatusCompleted                  ProductionStatus = "completed"
	StatusMovedToInventory           ProductionStatus = "moved to inventory"
	StatusAllocatedFinishGoods       ProductionStatus = "allocated finish goods"
	StatusOutFinishedGoods           ProductionStatus = "Out Finished Goods"
	StatusReceived                   ProductionStatus = "received"
	StatusDispatched                 ProductionStatus = "dispatched"
)

var productionStatuses = []ProductionStatus{
	StatusRawMaterialApprovalPending,
	StatusRawMaterialsApproved,
	StatusInventoryAllocated,
	StatusRequestForAllowInventory,
	StatusInventoryInTransit,
	StatusProductionStarted,
	StatusProductionInProgress,
	StatusProductionPaused,
	StatusCompleted,
	StatusMovedToInventory,
	StatusAllocatedFinishGoods,
	StatusOutFinishedGoods,
	StatusReceived,
	StatusDispatched,
}

func ProductionStatuses() []ProductionStatus {
	out := make([]ProductionStatus, len(productionStatuses))
	copy(out, productionStatuses)
	return out
}

func (s ProductionStatus) Valid() bool {
	for _, v := range productionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type ProcessStep struct {
	Process  string `json:"process"`
	Start    bool   `json:"start"`
	Done     bool   `json:"done"`
	WorkDone string `json:"work_done"`
	WorkLeft string `json:"work_left"`
}

// ProductionFinishedGood is embedded into the process row.
// EstimatedQuantity is frozen at process creation.
type ProductionFinishedGood struct {
	ItemID                       uint    `gorm:"not null" json:"item"`
	EstimatedQuantity            float64 `gorm:"not null;default:0" json:"estimated_quantity"`
	ProducedQuantity             float64 `gorm:"not null;default:0" json:"produced_quantity"`
	RemainingQuantity            float64 `gorm:"not null;default:0" json:"remaining_quantity"`
	FinalProduceQuantity         float64 `gorm:"not null;default:0" json:"final_produce_quantity"`
	InventoryLastChangesQuantity float64 `gorm:"not null;default:0" json:"inventory_last_changes_quantity"`
}

type ProductionProcess struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	CreatorID uint     `gorm:"not null;index" json:"creator"`
	ItemID    uint     `gorm:"not null;index" json:"item"`
	Item      *Product `gorm:"foreignKey:ItemID" json:"-"`
	BOMID     uint     `gorm:"not null;index" json:"bom"`
	BOM       *BOM     `gorm:"foreignKey:BOMID" json:"-"`
	Quantity  float64  `gorm:"not null" json:"quantity"`

	RMStoreID    uint  `gorm:"not null" json:"rm_store"`
	FGStoreID    uint  `gorm:"not null" json:"fg_store"`
	ScrapStoreID *uint `json:"scrap_store"`

	Status   ProductionStatus `gorm:"size:40;not null;index" json:"status"`
	Approved bool             `gorm:"not null;default:false" json:"approved"`

	Processes      []ProcessStep             `gorm:"serializer:json;type:text" json:"processes"`
	RawMaterials   []ProductionRawMaterial   `gorm:"foreignKey:ProcessID" json:"raw_materials"`
	ScrapMaterials []ProductionScrapMaterial `gorm:"foreignKey:ProcessID" json:"scrap_materials"`
	FinishedGood   ProductionFinishedGood    `gorm:"embedded;embeddedPrefix:fg_" json:"finished_good"`

	ProductionStartedAt *time.Time `json:"productionStartedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProductionRawMaterial struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	ProcessID         uint    `gorm:"not null;index" json:"-"`
	ItemID            uint    `gorm:"not null" json:"item"`
	EstimatedQuantity float64 `gorm:"not null;default:0" json:"estimated_quantity"`
	UsedQuantity      float64 `gorm:"not null;default:0" json:"used_quantity"`
	RemainingQuantity float64 `gorm:"not null;default:0" json:"remaining_quantity"`
}

type ProductionScrapMaterial struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	ProcessID         uint    `gorm:"not null;index" json:"-"`
	ItemID            uint    `gorm:"not null" json:"item"`
	EstimatedQuantity float64 `gorm:"not null;default:0" json:"estimated_quantity"`
	ProducedQuantity  float64 `gorm:"not null;default:0" json:"produced_quantity"`
}
