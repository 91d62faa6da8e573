package bom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/shortage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityBOM = "bom"

type Service struct {
	db         *gorm.DB
	reconciler *shortage.Reconciler
	log        logrus.FieldLogger
}

func NewService(db *gorm.DB, reconciler *shortage.Reconciler, log logrus.FieldLogger) *Service {
	return &Service{db: db, reconciler: reconciler, log: log}
}

func requireProducts(tx *gorm.DB, ids []uint, msg string) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	var count int64
	if err := tx.Model(&models.Product{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return fmt.Errorf("checking products: %w", err)
	}
	if int(count) != len(unique) {
		return apperr.Validation("%s", msg)
	}
	return nil
}

func rawLine(bomID uint, in RawMaterialInput) models.BOMRawMaterial {
	return models.BOMRawMaterial{
		BOMID:           bomID,
		ItemID:          in.Item,
		Description:     in.Description,
		Quantity:        in.Quantity,
		Image:           in.Image,
		AssemblyPhase:   in.AssemblyPhase,
		SupplierID:      in.Supplier,
		SupportingDoc:   in.SupportingDoc,
		Comments:        in.Comments,
		TotalPartCost:   in.TotalPartCost,
		UOMUsedQuantity: in.UOMUsedQuantity,
	}
}

func scrapLine(bomID uint, in ScrapMaterialInput) models.BOMScrapMaterial {
	return models.BOMScrapMaterial{
		BOMID:           bomID,
		ItemID:          in.Item,
		Description:     in.Description,
		Quantity:        in.Quantity,
		UOM:             in.UOM,
		UnitCost:        in.UnitCost,
		TotalPartCost:   in.TotalPartCost,
		UOMUsedQuantity: in.UOMUsedQuantity,
	}
}

// Create stores a BOM with its lines and records shortages for whatever current
// stock cannot cover. Shortages are reported as warnings, never as a failure.
func (s *Service) Create(ctx context.Context, in CreateInput, actor auth.Principal) (*Result, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	var created models.BOM
	var assessed []shortage.Assessment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProducts(tx, []uint{in.FinishedGood.Item}, "Finished good doesn't exist"); err != nil {
			return err
		}
		scrapIDs := make([]uint, 0, len(in.ScrapMaterials))
		for _, sm := range in.ScrapMaterials {
			scrapIDs = append(scrapIDs, sm.Item)
		}
		if err := requireProducts(tx, scrapIDs, "Some scrap material products don't exist"); err != nil {
			return err
		}

		fg := models.BOMFinishedMaterial{
			ItemID:        in.FinishedGood.Item,
			Description:   in.FinishedGood.Description,
			Quantity:      quantity.Add(in.FinishedGood.Quantity, negativeRawTotal(in.RawMaterials)),
			Image:         in.FinishedGood.Image,
			SupportingDoc: in.FinishedGood.SupportingDoc,
			Comments:      in.FinishedGood.Comments,
			Cost:          in.FinishedGood.Cost,
		}
		if err := tx.Create(&fg).Error; err != nil {
			return fmt.Errorf("creating finished good: %w", err)
		}

		code, err := NextCode(tx)
		if err != nil {
			return err
		}

		created = models.BOM{
			BOMCode:        code,
			Name:           normalizeName(in.Name),
			CreatorID:      actor.UserID,
			FinishedGoodID: &fg.ID,
			Processes:      normalizeProcesses(in.Processes),
			Resources:      filterResources(in.Resources),
			Manpower:       in.Manpower,
			PartsCount:     in.PartsCount,
			OtherCharges:   in.OtherCharges.model(),
			TotalCost:      in.TotalCost,
			Remarks:        in.Remarks,
			SaleID:         in.SaleID,
		}
		if actor.CanApprove() {
			now := time.Now()
			id := actor.UserID
			created.Approved = true
			created.ApprovedByID = &id
			created.ApprovalDate = &now
		}
		for _, rm := range in.RawMaterials {
			created.RawMaterials = append(created.RawMaterials, rawLine(0, rm))
		}
		for _, sm := range in.ScrapMaterials {
			created.ScrapMaterials = append(created.ScrapMaterials, scrapLine(0, sm))
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("creating bom: %w", err)
		}
		created.FinishedGood = &fg

		assessed, _, err = s.reconciler.RecreateForBOM(tx, created.ID)
		if err != nil {
			return err
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityBOM,
			EntityID:    created.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("BOM %s created", created.BOMCode),
			After:       created,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Message:  "BOM has been created successfully.",
		BOM:      &created,
		Warnings: warningsFor(assessed),
	}, nil
}

func approvalChanged(line models.BOMRawMaterial, in RawMaterialInput) bool {
	return line.ItemID != in.Item || line.Quantity != in.Quantity
}

func resetApprovals(line *models.BOMRawMaterial) {
	line.ApprovedByAdmin = false
	line.ApprovedByInventoryPersonnel = false
	line.IsInventoryApprovalClicked = false
	line.IsOutForInventoryClicked = false
}

// Update edits a BOM in place. A non-approver asking for approved=true gets the
// BOM saved as unapproved instead of an error.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput, actor auth.Principal) (*Result, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	var b models.BOM
	var assessed []shortage.Assessment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("FinishedGood").Preload("RawMaterials").Preload("ScrapMaterials").First(&b, id).Error
		if err != nil {
			return apperr.NotFoundOr(err, "BOM not found")
		}
		before := b
		before.RawMaterials = append([]models.BOMRawMaterial(nil), b.RawMaterials...)
		before.ScrapMaterials = append([]models.BOMScrapMaterial(nil), b.ScrapMaterials...)
		if b.FinishedGood != nil {
			fg := *b.FinishedGood
			before.FinishedGood = &fg
		}

		if in.FinishedGood != nil {
			if err := requireProducts(tx, []uint{in.FinishedGood.Item}, "Finished good doesn't exist"); err != nil {
				return err
			}
			fg := models.BOMFinishedMaterial{}
			if b.FinishedGood != nil {
				fg = *b.FinishedGood
			}
			fg.ItemID = in.FinishedGood.Item
			fg.Quantity = quantity.Add(in.FinishedGood.Quantity, negativeRawTotal(in.RawMaterials))
			fg.Cost = in.FinishedGood.Cost
			fg.Comments = in.FinishedGood.Comments
			fg.Description = in.FinishedGood.Description
			fg.SupportingDoc = in.FinishedGood.SupportingDoc
			if err := tx.Save(&fg).Error; err != nil {
				return fmt.Errorf("saving finished good: %w", err)
			}
			b.FinishedGoodID = &fg.ID
			b.FinishedGood = &fg
		}

		if len(in.RawMaterials) > 0 {
			if err := s.applyRawLines(tx, &b, in.RawMaterials); err != nil {
				return err
			}
		}
		if len(in.ScrapMaterials) > 0 {
			if err := s.applyScrapLines(tx, &b, in.ScrapMaterials); err != nil {
				return err
			}
		}

		if len(in.Processes) > 0 {
			b.Processes = normalizeProcesses(in.Processes)
		}
		if in.Remarks != nil {
			b.Remarks = strings.TrimSpace(*in.Remarks)
		}
		if in.Manpower != nil {
			b.Manpower = in.Manpower
		}
		if in.Resources != nil {
			b.Resources = filterResources(in.Resources)
		}
		if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
			b.Name = normalizeName(*in.Name)
		}
		if in.PartsCount != nil {
			b.PartsCount = *in.PartsCount
		}
		if in.TotalCost != nil {
			b.TotalCost = *in.TotalCost
		}
		if in.OtherCharges != nil {
			b.OtherCharges = in.OtherCharges.model()
		}
		if in.Approved != nil && *in.Approved {
			if actor.CanApprove() {
				now := time.Now()
				uid := actor.UserID
				b.Approved = true
				b.ApprovedByID = &uid
				b.ApprovalDate = &now
			} else {
				b.Approved = false
			}
		}

		if err := tx.Omit(clause.Associations).Save(&b).Error; err != nil {
			return fmt.Errorf("saving bom %d: %w", b.ID, err)
		}

		if len(in.RawMaterials) > 0 {
			assessed, _, err = s.reconciler.RecreateForBOM(tx, b.ID)
			if err != nil {
				return err
			}
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityBOM,
			EntityID:    b.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("BOM %s updated", b.BOMCode),
			Before:      before,
			After:       b,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Message:  "BOM has been updated successfully",
		BOM:      &b,
		Warnings: warningsFor(assessed),
	}, nil
}

// applyRawLines edits lines that carry an id and appends the rest. Changing the
// item or quantity of a line withdraws its approvals unless production is running.
func (s *Service) applyRawLines(tx *gorm.DB, b *models.BOM, lines []RawMaterialInput) error {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.Item)
	}
	if err := requireProducts(tx, ids, "Some products don't exist"); err != nil {
		return err
	}

	existing := make(map[uint]int, len(b.RawMaterials))
	for i, rm := range b.RawMaterials {
		existing[rm.ID] = i
	}

	for _, in := range lines {
		if in.ID == nil {
			line := rawLine(b.ID, in)
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("adding raw material: %w", err)
			}
			b.RawMaterials = append(b.RawMaterials, line)
			continue
		}

		i, ok := existing[*in.ID]
		if !ok {
			return apperr.Validation("Raw material %d does not belong to this BOM", *in.ID)
		}
		line := &b.RawMaterials[i]
		if approvalChanged(*line, in) && !b.IsProductionStarted {
			resetApprovals(line)
		}
		line.ItemID = in.Item
		line.Description = in.Description
		line.Quantity = in.Quantity
		line.AssemblyPhase = in.AssemblyPhase
		line.SupportingDoc = in.SupportingDoc
		line.Comments = in.Comments
		line.TotalPartCost = in.TotalPartCost
		if err := tx.Omit(clause.Associations).Save(line).Error; err != nil {
			return fmt.Errorf("saving raw material %d: %w", line.ID, err)
		}
	}
	return nil
}

func (s *Service) applyScrapLines(tx *gorm.DB, b *models.BOM, lines []ScrapMaterialInput) error {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.Item)
	}
	if err := requireProducts(tx, ids, "Some scrap material products don't exist"); err != nil {
		return err
	}

	existing := make(map[uint]int, len(b.ScrapMaterials))
	for i, sm := range b.ScrapMaterials {
		existing[sm.ID] = i
	}

	for _, in := range lines {
		if in.ID == nil {
			line := scrapLine(b.ID, in)
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("adding scrap material: %w", err)
			}
			b.ScrapMaterials = append(b.ScrapMaterials, line)
			continue
		}

		i, ok := existing[*in.ID]
		if !ok {
			return apperr.Validation("Scrap material %d does not belong to this BOM", *in.ID)
		}
		line := &b.ScrapMaterials[i]
		line.ItemID = in.Item
		line.Description = in.Description
		line.Quantity = in.Quantity
		line.TotalPartCost = in.TotalPartCost
		if err := tx.Omit(clause.Associations).Save(line).Error; err != nil {
			return fmt.Errorf("saving scrap material %d: %w", line.ID, err)
		}
	}
	return nil
}

func deleteCascade(tx *gorm.DB, boms []models.BOM) error {
	if len(boms) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(boms))
	var fgIDs []uint
	for _, b := range boms {
		ids = append(ids, b.ID)
		if b.FinishedGoodID != nil {
			fgIDs = append(fgIDs, *b.FinishedGoodID)
		}
	}

	steps := []struct {
		what  string
		model any
	}{
		{"shortages", &models.InventoryShortage{}},
		{"raw materials", &models.BOMRawMaterial{}},
		{"scrap materials", &models.BOMScrapMaterial{}},
	}
	for _, step := range steps {
		if err := tx.Where("bom_id IN ?", ids).Delete(step.model).Error; err != nil {
			return fmt.Errorf("deleting %s: %w", step.what, err)
		}
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.BOM{}).Error; err != nil {
		return fmt.Errorf("deleting boms: %w", err)
	}
	if len(fgIDs) > 0 {
		if err := tx.Where("id IN ?", fgIDs).Delete(&models.BOMFinishedMaterial{}).Error; err != nil {
			return fmt.Errorf("deleting finished goods: %w", err)
		}
	}
	return nil
}

// Remove deletes a BOM together with its lines, finished good and shortages.
func (s *Service) Remove(ctx context.Context, id uint, actor auth.Principal) (*models.BOM, error) {
	if id == 0 {
		return nil, apperr.Validation("id not provided")
	}
	var b models.BOM
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, id).Error; err != nil {
			return apperr.NotFoundOr(err, "BOM not found")
		}
		if err := deleteCascade(tx, []models.BOM{b}); err != nil {
			return err
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityBOM,
			EntityID:    b.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("BOM %s deleted", b.BOMCode),
			Before:      b,
		})
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BulkRemove deletes every listed BOM that exists and reports how many went.
func (s *Service) BulkRemove(ctx context.Context, ids []uint, actor auth.Principal) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("No BOM IDs provided for bulk delete")
	}
	var boms []models.BOM
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", ids).Find(&boms).Error; err != nil {
			return fmt.Errorf("loading boms: %w", err)
		}
		if len(boms) == 0 {
			return apperr.NotFound("No BOMs found with the provided IDs")
		}
		if err := deleteCascade(tx, boms); err != nil {
			return err
		}
		for _, b := range boms {
			err := audit.Write(tx, audit.LogOptions{
				UserID:      actor.UserID,
				UserName:    actor.Name,
				EntityType:  entityBOM,
				EntityID:    b.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("BOM %s deleted in bulk", b.BOMCode),
				Before:      b,
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
	return len(boms), nil
}

// AutoBom clones the latest approved BOM for productID, rescaled from its finished
// good quantity to qty. price overrides the product's list price for the finished
// good cost.
func (s *Service) AutoBom(ctx context.Context, productID uint, qty float64, price *float64, actor auth.Principal) (*Result, error) {
	if productID == 0 {
		return nil, apperr.Validation("product id is required")
	}
	if qty <= 0 {
		return nil, apperr.Validation("quantity must be greater than 0")
	}

	var clone models.BOM
	var assessed []shortage.Assessment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fgIDs := tx.Model(&models.BOMFinishedMaterial{}).Select("id").Where("item_id = ?", productID)
		var orig models.BOM
		err := tx.Preload("FinishedGood.Item").Preload("RawMaterials").Preload("ScrapMaterials").
			Where("approved = ? AND finished_good_id IN (?)", true, fgIDs).
			Order("created_at DESC").Order("id DESC").
			First(&orig).Error
		if err != nil {
			return apperr.NotFoundOr(err, "BOM does not exists")
		}
		if orig.FinishedGood == nil || orig.FinishedGood.Quantity == 0 {
			return apperr.Validation("Original BOM has no finished good quantity")
		}
		from := orig.FinishedGood.Quantity

		unitPrice := 0.0
		if orig.FinishedGood.Item != nil {
			unitPrice = orig.FinishedGood.Item.Price
		}
		if price != nil {
			unitPrice = *price
		}
		fg := models.BOMFinishedMaterial{
			ItemID:        orig.FinishedGood.ItemID,
			Description:   orig.FinishedGood.Description,
			Quantity:      qty,
			Image:         orig.FinishedGood.Image,
			SupportingDoc: orig.FinishedGood.SupportingDoc,
			Comments:      orig.FinishedGood.Comments,
			Cost:          quantity.Round2(quantity.Mul(unitPrice, qty)),
		}
		if err := tx.Create(&fg).Error; err != nil {
			return fmt.Errorf("creating finished good: %w", err)
		}

		code, err := NextCode(tx)
		if err != nil {
			return err
		}

		clone = models.BOM{
			BOMCode:        code,
			Name:           orig.Name,
			CreatorID:      actor.UserID,
			FinishedGoodID: &fg.ID,
			Processes:      orig.Processes,
			Resources:      orig.Resources,
			Manpower:       orig.Manpower,
			PartsCount:     orig.PartsCount,
			OtherCharges:   orig.OtherCharges,
			Remarks:        orig.Remarks,
			SaleID:         orig.SaleID,
			Approved:       orig.Approved,
			ApprovedByID:   orig.ApprovedByID,
			ApprovalDate:   orig.ApprovalDate,
		}

		var costs []float64
		for _, rm := range orig.RawMaterials {
			line := rm
			line.ID = 0
			line.BOMID = 0
			line.Item = nil
			line.CreatedAt, line.UpdatedAt = time.Time{}, time.Time{}
			line.InProduction = false
			resetApprovals(&line)
			line.Quantity = quantity.Rescale(rm.Quantity, from, qty)
			line.TotalPartCost = rescaledCost(rm.TotalPartCost, rm.Quantity, from, qty)
			costs = append(costs, line.TotalPartCost)
			clone.RawMaterials = append(clone.RawMaterials, line)
		}
		for _, sm := range orig.ScrapMaterials {
			line := sm
			line.ID = 0
			line.BOMID = 0
			line.Item = nil
			line.CreatedAt, line.UpdatedAt = time.Time{}, time.Time{}
			line.IsProductionStarted = false
			line.Quantity = quantity.Rescale(sm.Quantity, from, qty)
			line.TotalPartCost = rescaledCost(sm.TotalPartCost, sm.Quantity, from, qty)
			clone.ScrapMaterials = append(clone.ScrapMaterials, line)
		}
		clone.TotalCost = quantity.Round2(quantity.Sum(costs...))

		if err := tx.Create(&clone).Error; err != nil {
			return fmt.Errorf("creating bom: %w", err)
		}
		clone.FinishedGood = &fg

		assessed, _, err = s.reconciler.RecreateForBOM(tx, clone.ID)
		if err != nil {
			return err
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  entityBOM,
			EntityID:    clone.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("BOM %s generated from %s for quantity %v", clone.BOMCode, orig.BOMCode, qty),
			After:       clone,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Message:  "BOM has been generated successfully",
		BOM:      &clone,
		Warnings: warningsFor(assessed),
	}, nil
}

// rescaledCost keeps the line's unit price; lines without a positive quantity cost nothing.
func rescaledCost(cost, lineQty, from, to float64) float64 {
	if lineQty <= 0 {
		return 0
	}
	return quantity.Rescale(cost, from, to)
}

func detailQuery(db *gorm.DB) *gorm.DB {
	return db.Preload("FinishedGood.Item").Preload("RawMaterials.Item").Preload("ScrapMaterials.Item")
}

func (s *Service) Details(ctx context.Context, id uint) (*models.BOM, error) {
	var b models.BOM
	if err := detailQuery(s.db.WithContext(ctx)).First(&b, id).Error; err != nil {
		return nil, apperr.NotFoundOr(err, "BOM not found")
	}
	return &b, nil
}

// List pages through approved BOMs, most recently touched first.
func (s *Service) List(ctx context.Context, page, limit int) ([]models.BOM, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	var boms []models.BOM
	err := detailQuery(s.db.WithContext(ctx)).
		Where("approved = ?", true).
		Order("updated_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&boms).Error
	if err != nil {
		return nil, fmt.Errorf("listing boms: %w", err)
	}
	return boms, nil
}

func (s *Service) ListUnapproved(ctx context.Context) ([]models.BOM, error) {
	var boms []models.BOM
	err := detailQuery(s.db.WithContext(ctx)).
		Where("approved = ?", false).
		Order("updated_at DESC").Order("id DESC").
		Find(&boms).Error
	if err != nil {
		return nil, fmt.Errorf("listing unapproved boms: %w", err)
	}
	return boms, nil
}

// FindByFinishedGood returns every BOM producing productID, newest first.
func (s *Service) FindByFinishedGood(ctx context.Context, productID uint) ([]models.BOM, error) {
	db := s.db.WithContext(ctx)
	fgIDs := db.Model(&models.BOMFinishedMaterial{}).Select("id").Where("item_id = ?", productID)
	var boms []models.BOM
	err := detailQuery(db).
		Where("finished_good_id IN (?)", fgIDs).
		Order("created_at DESC").Order("id DESC").
		Find(&boms).Error
	if err != nil {
		return nil, fmt.Errorf("listing boms of product %d: %w", productID, err)
	}
	return boms, nil
}
