package bom

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/shortage"
)

type FinishedGoodInput struct {
	Item          uint    `json:"item" validate:"required"`
	Description   string  `json:"description" validate:"max=500"`
	Quantity      float64 `json:"quantity" validate:"gt=0"`
	Image         string  `json:"image"`
	SupportingDoc string  `json:"supporting_doc"`
	Comments      string  `json:"comments" validate:"max=500"`
	Cost          float64 `json:"cost" validate:"gte=0"`
}

// RawMaterialInput is one raw line. ID is set when an update targets an existing line.
type RawMaterialInput struct {
	ID              *uint   `json:"id"`
	Item            uint    `json:"item" validate:"required"`
	Description     string  `json:"description" validate:"max=500"`
	Quantity        float64 `json:"quantity"`
	Image           string  `json:"image"`
	AssemblyPhase   string  `json:"assembly_phase" validate:"max=100"`
	Supplier        *uint   `json:"supplier"`
	SupportingDoc   string  `json:"supporting_doc"`
	Comments        string  `json:"comments" validate:"max=500"`
	TotalPartCost   float64 `json:"total_part_cost"`
	UOMUsedQuantity string  `json:"uom_used_quantity"`
}

type ScrapMaterialInput struct {
	ID              *uint   `json:"id"`
	Item            uint    `json:"item" validate:"required"`
	Description     string  `json:"description" validate:"max=500"`
	Quantity        float64 `json:"quantity" validate:"gte=0"`
	UOM             string  `json:"uom"`
	UnitCost        float64 `json:"unit_cost" validate:"gte=0"`
	TotalPartCost   float64 `json:"total_part_cost" validate:"gte=0"`
	UOMUsedQuantity string  `json:"uom_used_quantity"`
}

type OtherChargesInput struct {
	Labour      float64 `json:"labour" validate:"gte=0"`
	Machinery   float64 `json:"machinery" validate:"gte=0"`
	Electricity float64 `json:"electricity" validate:"gte=0"`
	Other       float64 `json:"other" validate:"gte=0"`
}

func (o OtherChargesInput) model() models.OtherCharges {
	return models.OtherCharges{Labour: o.Labour, Machinery: o.Machinery, Electricity: o.Electricity, Other: o.Other}
}

type CreateInput struct {
	Name           string               `json:"bom_name" validate:"required,min=2,max=100"`
	PartsCount     int                  `json:"parts_count" validate:"gt=0"`
	TotalCost      float64              `json:"total_cost" validate:"gte=0"`
	RawMaterials   []RawMaterialInput   `json:"raw_materials" validate:"required,min=1,dive"`
	FinishedGood   *FinishedGoodInput   `json:"finished_good" validate:"required"`
	ScrapMaterials []ScrapMaterialInput `json:"scrap_materials" validate:"dive"`
	Processes      []string             `json:"processes"`
	Resources      []models.BOMResource `json:"resources"`
	Manpower       []models.Manpower    `json:"manpower"`
	OtherCharges   OtherChargesInput    `json:"other_charges"`
	Remarks        string               `json:"remarks" validate:"max=500"`
	SaleID         *uint                `json:"sales"`
}

// UpdateInput is a partial update. Raw and scrap lines with an id are edited in
// place, lines without one are added, lines left out are kept.
type UpdateInput struct {
	Name           *string              `json:"bom_name" validate:"omitempty,min=2,max=100"`
	PartsCount     *int                 `json:"parts_count" validate:"omitempty,gt=0"`
	TotalCost      *float64             `json:"total_cost" validate:"omitempty,gte=0"`
	Approved       *bool                `json:"approved"`
	RawMaterials   []RawMaterialInput   `json:"raw_materials" validate:"dive"`
	FinishedGood   *FinishedGoodInput   `json:"finished_good"`
	ScrapMaterials []ScrapMaterialInput `json:"scrap_materials" validate:"dive"`
	Processes      []string             `json:"processes"`
	Resources      []models.BOMResource `json:"resources"`
	Manpower       []models.Manpower    `json:"manpower"`
	OtherCharges   *OtherChargesInput   `json:"other_charges"`
	Remarks        *string              `json:"remarks" validate:"omitempty,max=500"`
}

const WarningStockShortage = "STOCK_SHORTAGE"

type Warning struct {
	Type      string                  `json:"type"`
	Message   string                  `json:"message"`
	Shortages []shortage.ShortageView `json:"shortages"`
}

// Result is what create, update and autobom hand back to the caller.
type Result struct {
	Message  string      `json:"message"`
	BOM      *models.BOM `json:"bom"`
	Warnings []Warning   `json:"warnings"`
}

func warningsFor(assessed []shortage.Assessment) []Warning {
	views := shortage.Views(assessed)
	if len(views) == 0 {
		return []Warning{}
	}
	return []Warning{{
		Type:      WarningStockShortage,
		Message:   shortage.Warning(assessed),
		Shortages: views,
	}}
}

// normalizeName upper-cases the first letter.
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// normalizeProcesses turns "CUTTING" and "cutting" into "Cutting" and drops blanks.
func normalizeProcesses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, normalizeName(strings.ToLower(p)))
	}
	return out
}

func filterResources(in []models.BOMResource) []models.BOMResource {
	out := make([]models.BOMResource, 0, len(in))
	for _, r := range in {
		if r.ResourceID != 0 {
			out = append(out, r)
		}
	}
	return out
}

// negativeRawTotal is what negative raw lines give back; it is added to the
// finished good quantity.
func negativeRawTotal(lines []RawMaterialInput) float64 {
	var total float64
	for _, l := range lines {
		if l.Quantity < 0 {
			total = quantity.Sub(total, l.Quantity)
		}
	}
	return total
}
