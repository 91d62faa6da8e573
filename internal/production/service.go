package production

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/events"
	"mfg-erp-backend/internal/lock"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/shortage"
	"mfg-erp-backend/internal/stock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	entityProcess  = "production_process"
	defaultProcess = "Pre-production"
)

// Service drives production processes through their lifecycle. Every transition
// runs in one transaction under a per-process lock and publishes after commit.
type Service struct {
	db     *gorm.DB
	ledger *stock.Ledger
	locker lock.Locker
	pub    events.Publisher
	log    logrus.FieldLogger
}

func NewService(db *gorm.DB, ledger *stock.Ledger, locker lock.Locker, pub events.Publisher, log logrus.FieldLogger) *Service {
	return &Service{db: db, ledger: ledger, locker: locker, pub: pub, log: log}
}

func processKey(id uint) string { return "production:" + strconv.FormatUint(uint64(id), 10) }

func bomKey(id uint) string { return "bom:" + strconv.FormatUint(uint64(id), 10) }

func (s *Service) obtain(ctx context.Context, key string) (func(), error) {
	release, err := s.locker.Obtain(ctx, key)
	if errors.Is(err, lock.ErrBusy) {
		return nil, apperr.Conflict("%s", err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("obtaining lock %s: %w", key, err)
	}
	return release, nil
}

// emitted after the status changes into one of these.
var notifying = map[models.ProductionStatus]bool{
	models.StatusInventoryAllocated: true,
	models.StatusInventoryInTransit: true,
	models.StatusProductionStarted:  true,
	models.StatusMovedToInventory:   true,
	models.StatusOutFinishedGoods:   true,
}

func (s *Service) notifyStatus(ctx context.Context, p *models.ProductionProcess) {
	events.Emit(ctx, s.pub, s.log, events.ProcessStatusUpdated, events.StatusPayload{
		ID:     p.ID,
		BOMID:  p.BOMID,
		Status: string(p.Status),
	})
}

func loadProcess(tx *gorm.DB, id uint) (*models.ProductionProcess, error) {
	var p models.ProductionProcess
	err := tx.
		Preload("RawMaterials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("ScrapMaterials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&p, id).Error
	if err != nil {
		return nil, apperr.NotFoundOr(err, "Production Process doesn't exist")
	}
	return &p, nil
}

func snapshot(p *models.ProductionProcess) models.ProductionProcess {
	out := *p
	out.RawMaterials = append([]models.ProductionRawMaterial(nil), p.RawMaterials...)
	out.ScrapMaterials = append([]models.ProductionScrapMaterial(nil), p.ScrapMaterials...)
	out.Processes = append([]models.ProcessStep(nil), p.Processes...)
	return out
}

// transition loads the process under its lock, lets fn mutate it and persists
// the row, its lines and an audit record in one transaction.
func (s *Service) transition(ctx context.Context, id uint, actor auth.Principal, desc string, fn func(tx *gorm.DB, p *models.ProductionProcess) error) (*models.ProductionProcess, bool, error) {
	if id == 0 {
		return nil, false, apperr.Validation("Production process ID is required")
	}
	release, err := s.obtain(ctx, processKey(id))
	if err != nil {
		return nil, false, err
	}
	defer release()

	var p *models.ProductionProcess
	var changed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = loadProcess(tx, id); err != nil {
			return err
		}
		before := snapshot(p)
		if err := fn(tx, p); err != nil {
			return err
		}
		changed = before.Status != p.Status

		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return fmt.Errorf("saving production process %d: %w", p.ID, err)
		}
		for i := range p.RawMaterials {
			if err := tx.Save(&p.RawMaterials[i]).Error; err != nil {
				return fmt.Errorf("saving process raw material: %w", err)
			}
		}
		for i := range p.ScrapMaterials {
			if err := tx.Save(&p.ScrapMaterials[i]).Error; err != nil {
				return fmt.Errorf("saving process scrap material: %w", err)
			}
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityProcess,
			EntityID:    p.ID,
			Action:      models.AuditActionTransition,
			Description: desc,
			Before:      before,
			After:       p,
		})
	})
	if err != nil {
		return nil, false, err
	}
	if changed && notifying[p.Status] {
		s.notifyStatus(ctx, p)
	}
	return p, changed, nil
}

// Create snapshots the BOM into a new process and resets the BOM's inventory
// flags so the new cycle needs fresh approval.
func (s *Service) Create(ctx context.Context, in CreateInput, actor auth.Principal) (*models.ProductionProcess, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	release, err := s.obtain(ctx, bomKey(in.BOM))
	if err != nil {
		return nil, err
	}
	defer release()

	var p models.ProductionProcess
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.BOM
		err := tx.Preload("FinishedGood").
			Preload("RawMaterials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
			Preload("ScrapMaterials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
			First(&b, in.BOM).Error
		if err != nil {
			return apperr.NotFoundOr(err, "BOM doesn't exist")
		}
		if b.FinishedGood == nil {
			return apperr.Validation("Finished good item missing in BOM")
		}
		if b.ProductionProcessID != nil {
			var current models.ProductionProcess
			err := tx.Select("id", "status").First(&current, *b.ProductionProcessID).Error
			if err == nil && active(current.Status) {
				return apperr.Conflict("BOM already has an active production process")
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("loading current production process: %w", err)
			}
		}

		p = newProcess(&b, in, actor)
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("creating production process: %w", err)
		}

		err = tx.Model(&models.BOMRawMaterial{}).Where("bom_id = ?", b.ID).Updates(map[string]any{
			"approved_by_inventory_personnel": false,
			"is_inventory_approval_clicked":   false,
			"is_out_for_inventory_clicked":    false,
			"in_production":                   false,
		}).Error
		if err != nil {
			return fmt.Errorf("resetting raw material flags: %w", err)
		}
		err = tx.Model(&models.BOM{}).Where("id = ?", b.ID).Updates(map[string]any{
			"production_process_id": p.ID,
			"is_production_started": false,
		}).Error
		if err != nil {
			return fmt.Errorf("linking bom to production process: %w", err)
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityProcess,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("production process created from BOM %s", b.BOMCode),
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// active reports whether a process still holds raw materials for its BOM.
func active(st models.ProductionStatus) bool {
	switch st {
	case models.StatusCompleted, models.StatusMovedToInventory, models.StatusAllocatedFinishGoods,
		models.StatusOutFinishedGoods, models.StatusReceived, models.StatusDispatched:
		return false
	}
	return true
}

func newProcess(b *models.BOM, in CreateInput, actor auth.Principal) models.ProductionProcess {
	names := in.Processes
	if len(names) == 0 {
		names = b.Processes
	}
	if len(names) == 0 {
		names = []string{defaultProcess}
	}
	steps := make([]models.ProcessStep, 0, len(names))
	for _, n := range names {
		steps = append(steps, models.ProcessStep{Process: n})
	}

	lines := make([]shortage.Line, 0, len(b.RawMaterials))
	for _, rm := range b.RawMaterials {
		lines = append(lines, shortage.Line{ItemID: rm.ItemID, RawMaterialID: rm.ID, Quantity: rm.Quantity})
	}
	var raws []models.ProductionRawMaterial
	for _, req := range shortage.Group(lines) {
		raws = append(raws, models.ProductionRawMaterial{
			ItemID:            req.ItemID,
			EstimatedQuantity: req.Required,
			RemainingQuantity: req.Required,
		})
	}

	scrapLines := make([]shortage.Line, 0, len(b.ScrapMaterials))
	for _, sm := range b.ScrapMaterials {
		scrapLines = append(scrapLines, shortage.Line{ItemID: sm.ItemID, Quantity: sm.Quantity})
	}
	var scraps []models.ProductionScrapMaterial
	for _, req := range shortage.Group(scrapLines) {
		scraps = append(scraps, models.ProductionScrapMaterial{ItemID: req.ItemID, EstimatedQuantity: req.Required})
	}

	qty := in.Quantity
	if qty == 0 {
		qty = b.FinishedGood.Quantity
	}

	return models.ProductionProcess{
		CreatorID:      actor.UserID,
		ItemID:         b.FinishedGood.ItemID,
		BOMID:          b.ID,
		Quantity:       qty,
		RMStoreID:      in.RMStore,
		FGStoreID:      in.FGStore,
		ScrapStoreID:   in.ScrapStore,
		Status:         models.StatusRawMaterialApprovalPending,
		Approved:       actor.IsSuper,
		Processes:      steps,
		RawMaterials:   raws,
		ScrapMaterials: scraps,
		FinishedGood: models.ProductionFinishedGood{
			ItemID:            b.FinishedGood.ItemID,
			EstimatedQuantity: b.FinishedGood.Quantity,
			RemainingQuantity: b.FinishedGood.Quantity,
		},
	}
}

func (s *Service) Details(ctx context.Context, id uint) (*Detail, error) {
	var p models.ProductionProcess
	err := s.db.WithContext(ctx).
		Preload("Item").
		Preload("BOM.FinishedGood.Item").
		Preload("BOM.RawMaterials.Item").
		Preload("BOM.ScrapMaterials.Item").
		Preload("RawMaterials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("ScrapMaterials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&p, id).Error
	if err != nil {
		return nil, apperr.NotFoundOr(err, "Production Process doesn't exist")
	}
	return &Detail{ProductionProcess: p, ItemDetail: p.Item, BOMDetail: p.BOM}, nil
}

func (s *Service) List(ctx context.Context, page, limit int) ([]models.ProductionProcess, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.ProductionProcess{})
	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting production processes: %w", err)
	}
	var out []models.ProductionProcess
	err := db.Preload("RawMaterials").Preload("ScrapMaterials").
		Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing production processes: %w", err)
	}
	return out, total, nil
}

// ListInventoryProcesses returns processes whose finished goods are with inventory.
func (s *Service) ListInventoryProcesses(ctx context.Context) ([]models.ProductionProcess, error) {
	var out []models.ProductionProcess
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.ProductionStatus{
			models.StatusMovedToInventory,
			models.StatusAllocatedFinishGoods,
			models.StatusOutFinishedGoods,
		}).
		Order("updated_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing inventory processes: %w", err)
	}
	return out, nil
}

func deleteProcesses(tx *gorm.DB, ids []uint) error {
	if err := tx.Where("process_id IN ?", ids).Delete(&models.ProductionRawMaterial{}).Error; err != nil {
		return fmt.Errorf("deleting process raw materials: %w", err)
	}
	if err := tx.Where("process_id IN ?", ids).Delete(&models.ProductionScrapMaterial{}).Error; err != nil {
		return fmt.Errorf("deleting process scrap materials: %w", err)
	}
	err := tx.Model(&models.BOM{}).Where("production_process_id IN ?", ids).
		Update("production_process_id", nil).Error
	if err != nil {
		return fmt.Errorf("unlinking boms: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.ProductionProcess{}).Error; err != nil {
		return fmt.Errorf("deleting production processes: %w", err)
	}
	return nil
}

// Remove deletes a process and its lines. Stock already moved stays moved.
func (s *Service) Remove(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	if id == 0 {
		return nil, apperr.Validation("Production process ID is required")
	}
	release, err := s.obtain(ctx, processKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var p *models.ProductionProcess
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = loadProcess(tx, id); err != nil {
			return err
		}
		if err := deleteProcesses(tx, []uint{id}); err != nil {
			return err
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityProcess,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "production process deleted",
			Before:      p,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) BulkRemove(ctx context.Context, ids []uint, actor auth.Principal) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("No production process IDs provided")
	}
	var found []models.ProductionProcess
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
			return fmt.Errorf("loading production processes: %w", err)
		}
		if len(found) == 0 {
			return apperr.NotFound("No production processes found to delete")
		}
		existing := make([]uint, 0, len(found))
		for _, p := range found {
			existing = append(existing, p.ID)
		}
		if err := deleteProcesses(tx, existing); err != nil {
			return err
		}
		for _, p := range found {
			err := audit.Write(tx, audit.LogOptions{
				UserID:      actor.UserID,
				UserName:    actor.Name,
				EntityType:  entityProcess,
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: "production process deleted in bulk",
				Before:      p,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(found), nil
}
