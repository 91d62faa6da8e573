package bom

import (
	"context"
	"fmt"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"

	"gorm.io/gorm"
)

// ApprovalView selects which approval flag a raw material listing filters on.
type ApprovalView int

const (
	AdminView ApprovalView = iota
	InventoryView
)

// RawMaterialRow is a raw line awaiting approval, flattened with its item and BOM.
type RawMaterialRow struct {
	ID                           uint                    `json:"id"`
	BOMID                        uint                    `json:"bom"`
	BOMCode                      string                  `json:"bom_id"`
	BOMName                      string                  `json:"bom_name"`
	BOMStatus                    models.ProductionStatus `json:"bom_status"`
	ItemID                       uint                    `json:"item"`
	ProductCode                  string                  `json:"product_id"`
	Name                         string                  `json:"name"`
	UOM                          string                  `json:"uom"`
	CurrentStock                 float64                 `json:"current_stock"`
	Quantity                     float64                 `json:"quantity"`
	ApprovedByAdmin              bool                    `json:"approvedByAdmin"`
	ApprovedByInventoryPersonnel bool                    `json:"approvedByInventoryPersonnel"`
	IsOutForInventoryClicked     bool                    `json:"isOutForInventoryClicked"`
}

// UnapprovedRawMaterials lists raw lines still missing the flag for view.
// The inventory view only shows lines of approved BOMs.
func (s *Service) UnapprovedRawMaterials(ctx context.Context, view ApprovalView) ([]RawMaterialRow, error) {
	db := s.db.WithContext(ctx)
	q := db.Preload("Item").Order("updated_at DESC").Order("id DESC")
	switch view {
	case InventoryView:
		approved := db.Model(&models.BOM{}).Select("id").Where("approved = ?", true)
		q = q.Where("approved_by_inventory_personnel = ? AND bom_id IN (?)", false, approved)
	default:
		q = q.Where("approved_by_admin = ?", false)
	}

	var lines []models.BOMRawMaterial
	if err := q.Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("listing unapproved raw materials: %w", err)
	}
	if len(lines) == 0 {
		return []RawMaterialRow{}, nil
	}

	bomIDs := make([]uint, 0, len(lines))
	for _, l := range lines {
		bomIDs = append(bomIDs, l.BOMID)
	}
	var boms []models.BOM
	if err := db.Where("id IN ?", bomIDs).Find(&boms).Error; err != nil {
		return nil, fmt.Errorf("loading boms: %w", err)
	}
	byID := make(map[uint]models.BOM, len(boms))
	var processIDs []uint
	for _, b := range boms {
		byID[b.ID] = b
		if b.ProductionProcessID != nil {
			processIDs = append(processIDs, *b.ProductionProcessID)
		}
	}
	statuses := make(map[uint]models.ProductionStatus)
	if len(processIDs) > 0 {
		var procs []models.ProductionProcess
		if err := db.Select("id", "status").Where("id IN ?", processIDs).Find(&procs).Error; err != nil {
			return nil, fmt.Errorf("loading production statuses: %w", err)
		}
		for _, p := range procs {
			statuses[p.ID] = p.Status
		}
	}

	out := make([]RawMaterialRow, 0, len(lines))
	for _, l := range lines {
		b := byID[l.BOMID]
		row := RawMaterialRow{
			ID:                           l.ID,
			BOMID:                        l.BOMID,
			BOMCode:                      b.BOMCode,
			BOMName:                      b.Name,
			BOMStatus:                    models.StatusRawMaterialApprovalPending,
			ItemID:                       l.ItemID,
			Quantity:                     l.Quantity,
			ApprovedByAdmin:              l.ApprovedByAdmin,
			ApprovedByInventoryPersonnel: l.ApprovedByInventoryPersonnel,
			IsOutForInventoryClicked:     l.IsOutForInventoryClicked,
		}
		if b.ProductionProcessID != nil {
			if st, ok := statuses[*b.ProductionProcessID]; ok {
				row.BOMStatus = st
			}
		}
		if l.Item != nil {
			row.ProductCode = l.Item.ProductCode
			row.Name = l.Item.Name
			row.UOM = l.Item.UOM
			row.CurrentStock = l.Item.CurrentStock
		}
		out = append(out, row)
	}
	return out, nil
}

// ApproveRawMaterialForAdmin passes a raw line on to inventory personnel.
func (s *Service) ApproveRawMaterialForAdmin(ctx context.Context, rawMaterialID uint, actor auth.Principal) (*models.BOMRawMaterial, error) {
	if !actor.IsSuper {
		return nil, apperr.Forbidden("You are not allowed to perform this operation")
	}
	if rawMaterialID == 0 {
		return nil, apperr.Validation("Raw material id not provided")
	}

	var line models.BOMRawMaterial
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&line, rawMaterialID).Error; err != nil {
			return apperr.NotFoundOr(err, "Raw material not found")
		}
		if line.ApprovedByAdmin {
			return nil
		}
		line.ApprovedByAdmin = true
		if err := tx.Model(&line).Update("approved_by_admin", true).Error; err != nil {
			return fmt.Errorf("approving raw material %d: %w", line.ID, err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "bom_raw_material",
			EntityID:    line.ID,
			Action:      models.AuditActionUpdate,
			Description: "raw material approved by admin",
			After:       line,
		})
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}
