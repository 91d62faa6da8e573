package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/events"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/stock"

	"gorm.io/gorm"
)

// rank orders the pre-production statuses. Auto-advance only ever moves forward.
var rank = map[models.ProductionStatus]int{
	models.StatusRawMaterialApprovalPending: 0,
	models.StatusRawMaterialsApproved:       0,
	models.StatusInventoryAllocated:         1,
	models.StatusRequestForAllowInventory:   2,
	models.StatusInventoryInTransit:         3,
}

func below(target models.ProductionStatus) []models.ProductionStatus {
	var out []models.ProductionStatus
	for st, r := range rank {
		if r < rank[target] {
			out = append(out, st)
		}
	}
	return out
}

type rawFlag struct {
	target  models.ProductionStatus
	desc    string
	require func(models.BOMRawMaterial) error
	set     func(*models.BOMRawMaterial)
	isSet   func(models.BOMRawMaterial) bool
}

var inventoryApproval = rawFlag{
	target: models.StatusInventoryAllocated,
	desc:   "raw material approved by inventory",
	set: func(rm *models.BOMRawMaterial) {
		rm.ApprovedByInventoryPersonnel = true
		rm.IsInventoryApprovalClicked = true
	},
	isSet: func(rm models.BOMRawMaterial) bool { return rm.ApprovedByInventoryPersonnel },
}

var outForInventory = rawFlag{
	target: models.StatusInventoryInTransit,
	desc:   "raw material marked out for inventory",
	require: func(rm models.BOMRawMaterial) error {
		if !rm.ApprovedByInventoryPersonnel {
			return apperr.Validation("Raw material is not approved by inventory yet")
		}
		return nil
	},
	set:   func(rm *models.BOMRawMaterial) { rm.IsOutForInventoryClicked = true },
	isSet: func(rm models.BOMRawMaterial) bool { return rm.IsOutForInventoryClicked },
}

// toggle sets one raw material flag and, once every line of the BOM carries it,
// advances the BOM's production process to the flag's target status.
func (s *Service) toggle(ctx context.Context, rawMaterialID uint, actor auth.Principal, f rawFlag) (*FlagResult, error) {
	if rawMaterialID == 0 {
		return nil, apperr.Validation("Raw material id not provided")
	}
	if !actor.CanManageInventory() {
		return nil, apperr.Forbidden("You are not allowed to perform this operation")
	}

	var owner models.BOMRawMaterial
	if err := s.db.WithContext(ctx).Select("id", "bom_id").First(&owner, rawMaterialID).Error; err != nil {
		return nil, apperr.NotFoundOr(err, "Raw material not found")
	}
	release, err := s.obtain(ctx, bomKey(owner.BOMID))
	if err != nil {
		return nil, err
	}
	defer release()

	var res FlagResult
	var advanced *models.ProductionProcess
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.BOM
		err := tx.Preload("RawMaterials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
			First(&b, owner.BOMID).Error
		if err != nil {
			return apperr.NotFoundOr(err, "BOM not found")
		}
		if !b.Approved {
			return apperr.Validation("BOM is not approved yet")
		}

		all := true
		for i := range b.RawMaterials {
			rm := &b.RawMaterials[i]
			if rm.ID == rawMaterialID {
				if f.require != nil {
					if err := f.require(*rm); err != nil {
						return err
					}
				}
				f.set(rm)
				err := tx.Model(rm).Updates(map[string]any{
					"approved_by_inventory_personnel": rm.ApprovedByInventoryPersonnel,
					"is_inventory_approval_clicked":   rm.IsInventoryApprovalClicked,
					"is_out_for_inventory_clicked":    rm.IsOutForInventoryClicked,
				}).Error
				if err != nil {
					return fmt.Errorf("updating raw material %d: %w", rm.ID, err)
				}
				res.RawMaterial = *rm
			}
			all = all && f.isSet(*rm)
		}
		if res.RawMaterial.ID == 0 {
			return apperr.NotFound("Raw material not found")
		}
		res.All = all
		res.ProcessID = b.ProductionProcessID

		err = audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "bom_raw_material",
			EntityID:    rawMaterialID,
			Action:      models.AuditActionUpdate,
			Description: f.desc,
			After:       res.RawMaterial,
		})
		if err != nil {
			return err
		}
		if !all || b.ProductionProcessID == nil {
			return nil
		}

		upd := tx.Model(&models.ProductionProcess{}).
			Where("id = ? AND status IN ?", *b.ProductionProcessID, below(f.target)).
			Update("status", f.target)
		if upd.Error != nil {
			return fmt.Errorf("advancing production process: %w", upd.Error)
		}
		if upd.RowsAffected == 0 {
			return nil
		}
		res.Advanced = true
		advanced = &models.ProductionProcess{ID: *b.ProductionProcessID, BOMID: b.ID, Status: f.target}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityProcess,
			EntityID:    advanced.ID,
			Action:      models.AuditActionTransition,
			Description: fmt.Sprintf("status advanced to %s", f.target),
			After:       advanced,
		})
	})
	if err != nil {
		return nil, err
	}

	if f.target == models.StatusInventoryAllocated {
		events.Emit(ctx, s.pub, s.log, events.InventoryApprovalUpdated, events.ApprovalPayload{
			BOMID:         res.RawMaterial.BOMID,
			RawMaterialID: res.RawMaterial.ID,
			Approved:      true,
		})
	} else {
		events.Emit(ctx, s.pub, s.log, events.InventoryOutUpdated, events.OutForInventoryPayload{
			BOMID:         res.RawMaterial.BOMID,
			RawMaterialID: res.RawMaterial.ID,
			Out:           true,
		})
	}
	if advanced != nil {
		s.notifyStatus(ctx, advanced)
	}
	return &res, nil
}

// ApproveRawMaterial records inventory approval of one raw line.
func (s *Service) ApproveRawMaterial(ctx context.Context, rawMaterialID uint, actor auth.Principal) (*FlagResult, error) {
	return s.toggle(ctx, rawMaterialID, actor, inventoryApproval)
}

// MarkOutForInventory records that one raw line has left the store.
func (s *Service) MarkOutForInventory(ctx context.Context, rawMaterialID uint, actor auth.Principal) (*FlagResult, error) {
	return s.toggle(ctx, rawMaterialID, actor, outForInventory)
}

func (s *Service) RequestAllocation(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "allocation requested", func(_ *gorm.DB, p *models.ProductionProcess) error {
		r, ok := rank[p.Status]
		if !ok || r >= rank[models.StatusRequestForAllowInventory] {
			return apperr.Conflict("Allocation can't be requested while status is %q", p.Status)
		}
		p.Status = models.StatusRequestForAllowInventory
		return nil
	})
	return p, err
}

// StartProduction deducts every raw material's reserved quantity from stock.
func (s *Service) StartProduction(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "production started", func(tx *gorm.DB, p *models.ProductionProcess) error {
		if p.Status != models.StatusInventoryInTransit {
			return apperr.Conflict("Production can only start from %q, current status is %q", models.StatusInventoryInTransit, p.Status)
		}
		for _, rm := range p.RawMaterials {
			_, err := s.ledger.Adjust(tx, stock.Movement{
				ProductID: rm.ItemID,
				Delta:     -rm.EstimatedQuantity,
				Reason:    fmt.Sprintf("production process %d started", p.ID),
				Actor:     actor,
			})
			if err != nil {
				return err
			}
		}

		if err := tx.Model(&models.BOM{}).Where("id = ?", p.BOMID).Update("is_production_started", true).Error; err != nil {
			return fmt.Errorf("marking bom started: %w", err)
		}
		if err := tx.Model(&models.BOMRawMaterial{}).Where("bom_id = ?", p.BOMID).Update("in_production", true).Error; err != nil {
			return fmt.Errorf("marking raw materials in production: %w", err)
		}
		if err := tx.Model(&models.BOMScrapMaterial{}).Where("bom_id = ?", p.BOMID).Update("is_production_started", true).Error; err != nil {
			return fmt.Errorf("marking scrap materials started: %w", err)
		}

		now := time.Now()
		p.ProductionStartedAt = &now
		p.Status = models.StatusProductionStarted
		return nil
	})
	return p, err
}

func (s *Service) Pause(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "production paused", func(_ *gorm.DB, p *models.ProductionProcess) error {
		if p.Status != models.StatusProductionStarted && p.Status != models.StatusProductionInProgress {
			return apperr.Conflict("Only running production can be paused")
		}
		p.Status = models.StatusProductionPaused
		return nil
	})
	return p, err
}

func (s *Service) Resume(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "production resumed", func(_ *gorm.DB, p *models.ProductionProcess) error {
		if p.Status != models.StatusProductionPaused {
			return apperr.Conflict("Production is not paused")
		}
		p.Status = models.StatusProductionInProgress
		return nil
	})
	return p, err
}

// MarkDone returns every raw material's unused reservation to stock and
// completes the process.
func (s *Service) MarkDone(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, []Returned, error) {
	var returned []Returned
	p, _, err := s.transition(ctx, id, actor, "production completed", func(tx *gorm.DB, p *models.ProductionProcess) error {
		if p.ProductionStartedAt == nil {
			return apperr.Conflict("Production has not started yet")
		}
		switch p.Status {
		case models.StatusProductionStarted, models.StatusProductionInProgress, models.StatusProductionPaused:
		case models.StatusCompleted:
			return apperr.Conflict("Production process is already completed")
		default:
			return apperr.Conflict("Production can't be completed while status is %q", p.Status)
		}
		for i := range p.RawMaterials {
			rm := &p.RawMaterials[i]
			left := quantity.ClampZero(rm.RemainingQuantity, 0)
			if left == 0 {
				continue
			}
			_, err := s.ledger.Adjust(tx, stock.Movement{
				ProductID: rm.ItemID,
				Delta:     left,
				Reason:    fmt.Sprintf("production process %d completed, unused material returned", p.ID),
				Actor:     actor,
			})
			if err != nil {
				return err
			}
			rm.RemainingQuantity = 0
			returned = append(returned, Returned{ItemID: rm.ItemID, Quantity: left})
		}
		p.Status = models.StatusCompleted
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return p, returned, nil
}

func statusList() string {
	names := make([]string, 0, len(models.ProductionStatuses()))
	for _, st := range models.ProductionStatuses() {
		names = append(names, string(st))
	}
	return strings.Join(names, ", ")
}

// UpdateStatus sets any known status and always publishes it.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.ProductionStatus, actor auth.Principal) (*models.ProductionProcess, error) {
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status %q, expected one of: %s", status, statusList())
	}
	p, changed, err := s.transition(ctx, id, actor, fmt.Sprintf("status set to %s", status), func(_ *gorm.DB, p *models.ProductionProcess) error {
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed || !notifying[p.Status] {
		s.notifyStatus(ctx, p)
	}
	return p, nil
}
