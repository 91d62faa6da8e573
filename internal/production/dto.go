package production

import "mfg-erp-backend/internal/models"

type CreateInput struct {
	BOM        uint     `json:"bom" validate:"required"`
	Quantity   float64  `json:"quantity" validate:"gte=0"`
	RMStore    uint     `json:"rm_store" validate:"required"`
	FGStore    uint     `json:"fg_store" validate:"required"`
	ScrapStore *uint    `json:"scrap_store"`
	Processes  []string `json:"processes"`
}

type FinishedGoodProgress struct {
	ProducedQuantity float64 `json:"produced_quantity" validate:"gte=0"`
}

type RawMaterialProgress struct {
	Item            uint    `json:"item" validate:"required"`
	UsedQuantity    float64 `json:"used_quantity" validate:"gte=0"`
	UOMUsedQuantity string  `json:"uom_used_quantity" validate:"max=50"`
}

type ScrapMaterialProgress struct {
	Item                uint    `json:"item" validate:"required"`
	ProducedQuantity    float64 `json:"produced_quantity" validate:"gte=0"`
	UOMProducedQuantity string  `json:"uom_produced_quantity" validate:"max=50"`
}

// Progress carries absolute produced and used quantities; deltas are derived
// from what the process already recorded.
type Progress struct {
	FinishedGood   *FinishedGoodProgress   `json:"finished_good"`
	RawMaterials   []RawMaterialProgress   `json:"raw_materials" validate:"dive"`
	ScrapMaterials []ScrapMaterialProgress `json:"scrap_materials" validate:"dive"`
}

type UpdateInput struct {
	Status    *models.ProductionStatus `json:"status"`
	Processes []models.ProcessStep     `json:"processes"`
	BOM       *Progress                `json:"bom"`
}

type ProcessRequest struct {
	ID uint `json:"_id" validate:"required"`
}

type RawMaterialRequest struct {
	ID uint `json:"_id" validate:"required"`
}

type TransitRequest struct {
	RawMaterialID uint `json:"rawMaterialId" validate:"required"`
}

type StatusRequest struct {
	ID     uint                    `json:"_id" validate:"required"`
	Status models.ProductionStatus `json:"status" validate:"required"`
}

type BulkRemoveRequest struct {
	IDs []uint `json:"ids"`
}

// Returned is stock handed back to the ledger when a process is marked done.
type Returned struct {
	ItemID   uint    `json:"item"`
	Quantity float64 `json:"quantity"`
}

// FlagResult reports a per-raw-material toggle and whether it advanced the process.
type FlagResult struct {
	RawMaterial models.BOMRawMaterial `json:"rawMaterial"`
	All         bool                  `json:"all"`
	ProcessID   *uint                 `json:"processId,omitempty"`
	Advanced    bool                  `json:"advanced"`
}

// Detail is a process with its product and source BOM expanded.
type Detail struct {
	models.ProductionProcess
	ItemDetail *models.Product `json:"item_detail"`
	BOMDetail  *models.BOM     `json:"bom_detail"`
}
