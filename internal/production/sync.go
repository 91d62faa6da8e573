package production

import (
	"context"
	"fmt"
	"slices"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/stock"

	"gorm.io/gorm"
)

// overage is the part of used that exceeds the reservation taken at start.
func overage(used, reserved float64) float64 {
	return quantity.ClampZero(used, reserved)
}

// autoProgress lists the statuses a detected quantity change moves to in progress.
var autoProgress = map[models.ProductionStatus]bool{
	models.StatusProductionStarted: true,
	models.StatusProductionPaused:  true,
	models.StatusReceived:          true,
}

// Update syncs produced and used quantities reported from the shop floor.
//
// Raw usage within the reservation taken at start moves no stock; only usage
// beyond it is deducted, and reducing that overage returns it. Scrap output is
// added to scrap stock. Finished output accumulates in final_produce_quantity
// until inventory receives it.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput, actor auth.Principal) (*models.ProductionProcess, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation("Invalid status %q", *in.Status)
	}

	p, _, err := s.transition(ctx, id, actor, "production quantities updated", func(tx *gorm.DB, p *models.ProductionProcess) error {
		if p.Status == models.StatusCompleted || p.Status == models.StatusDispatched {
			return apperr.Conflict("Production process is %s and can't be changed", p.Status)
		}

		changed := false
		if in.Processes != nil && !slices.Equal(in.Processes, p.Processes) {
			p.Processes = in.Processes
			changed = true
		}

		if in.BOM != nil {
			moved, err := s.syncQuantities(tx, p, in.BOM, actor)
			if err != nil {
				return err
			}
			changed = changed || moved
		}

		switch {
		case in.Status != nil && *in.Status != p.Status && p.Status != models.StatusProductionStarted:
			p.Status = *in.Status
		case changed && autoProgress[p.Status]:
			p.Status = models.StatusProductionInProgress
		}
		return nil
	})
	return p, err
}

func (s *Service) syncQuantities(tx *gorm.DB, p *models.ProductionProcess, in *Progress, actor auth.Principal) (bool, error) {
	quantities := in.FinishedGood != nil || len(in.RawMaterials) > 0 || len(in.ScrapMaterials) > 0
	if quantities && p.ProductionStartedAt == nil {
		return false, apperr.Conflict("Production has not started yet")
	}
	changed := false

	for _, rp := range in.RawMaterials {
		i := slices.IndexFunc(p.RawMaterials, func(rm models.ProductionRawMaterial) bool { return rm.ItemID == rp.Item })
		if i < 0 {
			return false, apperr.Validation("Raw material %d is not part of this production process", rp.Item)
		}
		rm := &p.RawMaterials[i]
		if rp.UOMUsedQuantity != "" {
			err := tx.Model(&models.BOMRawMaterial{}).
				Where("bom_id = ? AND item_id = ?", p.BOMID, rp.Item).
				Update("uom_used_quantity", rp.UOMUsedQuantity).Error
			if err != nil {
				return false, fmt.Errorf("updating raw material uom: %w", err)
			}
		}
		if rp.UsedQuantity == rm.UsedQuantity {
			continue
		}
		delta := quantity.Sub(overage(rp.UsedQuantity, rm.EstimatedQuantity), overage(rm.UsedQuantity, rm.EstimatedQuantity))
		if delta != 0 {
			_, err := s.ledger.Adjust(tx, stock.Movement{
				ProductID: rm.ItemID,
				Delta:     -delta,
				Reason:    fmt.Sprintf("production process %d used beyond reservation", p.ID),
				Actor:     actor,
			})
			if err != nil {
				return false, err
			}
		}
		rm.UsedQuantity = rp.UsedQuantity
		rm.RemainingQuantity = quantity.Sub(rm.EstimatedQuantity, rm.UsedQuantity)
		changed = true
	}

	for _, sp := range in.ScrapMaterials {
		i := slices.IndexFunc(p.ScrapMaterials, func(sm models.ProductionScrapMaterial) bool { return sm.ItemID == sp.Item })
		if i < 0 {
			return false, apperr.Validation("Scrap material %d is not part of this production process", sp.Item)
		}
		sm := &p.ScrapMaterials[i]
		if sp.UOMProducedQuantity != "" {
			err := tx.Model(&models.BOMScrapMaterial{}).
				Where("bom_id = ? AND item_id = ?", p.BOMID, sp.Item).
				Update("uom_used_quantity", sp.UOMProducedQuantity).Error
			if err != nil {
				return false, fmt.Errorf("updating scrap material uom: %w", err)
			}
		}
		delta := quantity.Sub(sp.ProducedQuantity, sm.ProducedQuantity)
		if delta == 0 {
			continue
		}
		_, err := s.ledger.Adjust(tx, stock.Movement{
			ProductID: sm.ItemID,
			Delta:     delta,
			Reason:    fmt.Sprintf("production process %d scrap output", p.ID),
			Actor:     actor,
		})
		if err != nil {
			return false, err
		}
		sm.ProducedQuantity = sp.ProducedQuantity
		changed = true
	}

	if in.FinishedGood != nil {
		fg := &p.FinishedGood
		delta := quantity.Sub(in.FinishedGood.ProducedQuantity, fg.ProducedQuantity)
		if delta != 0 {
			fg.ProducedQuantity = in.FinishedGood.ProducedQuantity
			fg.RemainingQuantity = quantity.ClampZero(fg.EstimatedQuantity, fg.ProducedQuantity)
			fg.FinalProduceQuantity = quantity.Add(fg.FinalProduceQuantity, delta)
			if fg.FinalProduceQuantity < 0 {
				// Output already received into stock is being taken back.
				_, err := s.ledger.Adjust(tx, stock.Movement{
					ProductID: fg.ItemID,
					Delta:     fg.FinalProduceQuantity,
					Reason:    fmt.Sprintf("production process %d finished output corrected", p.ID),
					Actor:     actor,
				})
				if err != nil {
					return false, err
				}
				fg.InventoryLastChangesQuantity = quantity.ClampZero(fg.InventoryLastChangesQuantity, -fg.FinalProduceQuantity)
				fg.FinalProduceQuantity = 0
			}
			changed = true
		}
	}
	return changed, nil
}
