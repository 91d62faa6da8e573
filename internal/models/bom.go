package models

import "time"

type OtherCharges struct {
	Labour      float64 `json:"labour"`
	Machinery   float64 `json:"machinery"`
	Electricity float64 `json:"electricity"`
	Other       float64 `json:"other"`
}

type BOMResource struct {
	ResourceID    uint   `json:"resource_id"`
	Type          string `json:"type"`
	Specification string `json:"specification"`
	Comment       string `json:"comment"`
	CustomID      string `json:"customId"`
}

type Manpower struct {
	Number string `json:"number"`
}

type BOM struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	BOMCode string `gorm:"size:20;uniqueIndex;not null" json:"bom_id"`
	Name    string `gorm:"size:100;not null" json:"bom_name"`

	CreatorID uint  `gorm:"not null;index" json:"creator"`
	Creator   *User `json:"-"`

	FinishedGoodID *uint                `json:"finished_good_id"`
	FinishedGood   *BOMFinishedMaterial `json:"finished_good,omitempty"`
	RawMaterials   []BOMRawMaterial     `gorm:"foreignKey:BOMID" json:"raw_materials"`
	ScrapMaterials []BOMScrapMaterial   `gorm:"foreignKey:BOMID" json:"scrap_materials"`

	Processes []string      `gorm:"serializer:json;type:text" json:"processes"`
	Resources []BOMResource `gorm:"serializer:json;type:text" json:"resources"`
	Manpower  []Manpower    `gorm:"serializer:json;type:text" json:"manpower"`

	PartsCount   int          `gorm:"not null;default:0" json:"parts_count"`
	OtherCharges OtherCharges `gorm:"embedded;embeddedPrefix:other_" json:"other_charges"`
	TotalCost    float64      `gorm:"not null;default:0" json:"total_cost"`
	Remarks      string       `gorm:"size:500" json:"remarks"`
	SaleID       *uint        `json:"sale_id"`

	Approved     bool       `gorm:"not null;default:false;index" json:"approved"`
	ApprovedByID *uint      `json:"approved_by"`
	ApprovalDate *time.Time `json:"approval_date"`

	// Last production process spawned from this BOM.
	ProductionProcessID *uint `json:"production_process"`
	IsProductionStarted bool  `gorm:"not null;default:false" json:"is_production_started"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BOMFinishedMaterial struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	ItemID        uint     `gorm:"not null;index" json:"item_id"`
	Item          *Product `json:"item,omitempty"`
	Description   string   `gorm:"size:500" json:"description"`
	Quantity      float64  `gorm:"not null" json:"quantity"`
	Image         string   `gorm:"size:255" json:"image"`
	SupportingDoc string   `gorm:"size:255" json:"supporting_doc"`
	Comments      string   `gorm:"size:500" json:"comments"`
	Cost          float64  `gorm:"not null;default:0" json:"cost"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BOMRawMaterial quantity is the total required for one production run.
// The approval flags are workflow state, reset whenever a new process starts.
type BOMRawMaterial struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	BOMID           uint     `gorm:"not null;index" json:"bom"`
	ItemID          uint     `gorm:"not null;index" json:"item_id"`
	Item            *Product `json:"item,omitempty"`
	Description     string   `gorm:"size:500" json:"description"`
	Quantity        float64  `gorm:"not null" json:"quantity"`
	Image           string   `gorm:"size:255" json:"image"`
	AssemblyPhase   string   `gorm:"size:100" json:"assembly_phase"`
	SupplierID      *uint    `json:"supplier"`
	SupportingDoc   string   `gorm:"size:255" json:"supporting_doc"`
	Comments        string   `gorm:"size:500" json:"comments"`
	TotalPartCost   float64  `gorm:"not null;default:0" json:"total_part_cost"`
	UOMUsedQuantity string   `gorm:"size:50" json:"uom_used_quantity"`

	InProduction                 bool `gorm:"not null;default:false" json:"in_production"`
	ApprovedByAdmin              bool `gorm:"not null;default:false" json:"approvedByAdmin"`
	ApprovedByInventoryPersonnel bool `gorm:"not null;default:false" json:"approvedByInventoryPersonnel"`
	IsInventoryApprovalClicked   bool `gorm:"not null;default:false" json:"isInventoryApprovalClicked"`
	IsOutForInventoryClicked     bool `gorm:"not null;default:false" json:"isOutForInventoryClicked"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BOMScrapMaterial struct {
	ID                  uint     `gorm:"primaryKey" json:"id"`
	BOMID               uint     `gorm:"not null;index" json:"bom"`
	ItemID              uint     `gorm:"not null;index" json:"item_id"`
	Item                *Product `json:"item,omitempty"`
	Description         string   `gorm:"size:500" json:"description"`
	Quantity            float64  `gorm:"not null" json:"quantity"`
	UOM                 string   `gorm:"size:20" json:"uom"`
	UnitCost            float64  `gorm:"not null;default:0" json:"unit_cost"`
	TotalPartCost       float64  `gorm:"not null;default:0" json:"total_part_cost"`
	UOMUsedQuantity     string   `gorm:"size:50" json:"uom_used_quantity"`
	IsProductionStarted bool     `gorm:"not null;default:false" json:"is_production_started"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
