package shortage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/stock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Line is one raw material line as seen by reconciliation.
type Line struct {
	ItemID        uint
	RawMaterialID uint
	Quantity      float64
}

// Requirement is the summed need for one item within a BOM.
type Requirement struct {
	ItemID uint
	// RawMaterialID is the first line for the item; shortages link to it.
	RawMaterialID uint
	Required      float64
}

// Group sums lines per item, keeping items in order of first appearance.
func Group(lines []Line) []Requirement {
	index := make(map[uint]int)
	var out []Requirement
	for _, l := range lines {
		if i, ok := index[l.ItemID]; ok {
			out[i].Required = quantity.Add(out[i].Required, l.Quantity)
			continue
		}
		index[l.ItemID] = len(out)
		out = append(out, Requirement{ItemID: l.ItemID, RawMaterialID: l.RawMaterialID, Required: l.Quantity})
	}
	return out
}

// Assessment compares one requirement with on-hand stock.
type Assessment struct {
	Requirement
	ItemName  string
	Available float64
	Shortage  float64
}

func (a Assessment) Message() string {
	return fmt.Sprintf("Insufficient stock of %s (Required: %s, Available: %s)",
		a.ItemName, formatQty(a.Required), formatQty(a.Available))
}

// ShortageView is the warning shape returned to BOM authors.
type ShortageView struct {
	ItemID    uint    `json:"item"`
	ItemName  string  `json:"item_name"`
	Required  float64 `json:"total_required"`
	Available float64 `json:"available_stock"`
	Shortage  float64 `json:"shortage_quantity"`
}

// Deficits filters assessments down to the ones that are short.
func Deficits(all []Assessment) []Assessment {
	var out []Assessment
	for _, a := range all {
		if a.Shortage > 0 {
			out = append(out, a)
		}
	}
	return out
}

// Warning joins the deficit messages, empty when nothing is short.
func Warning(all []Assessment) string {
	var msgs []string
	for _, a := range Deficits(all) {
		msgs = append(msgs, a.Message())
	}
	return strings.Join(msgs, ", ")
}

func Views(all []Assessment) []ShortageView {
	out := make([]ShortageView, 0)
	for _, a := range Deficits(all) {
		out = append(out, ShortageView{
			ItemID:    a.ItemID,
			ItemName:  a.ItemName,
			Required:  a.Required,
			Available: a.Available,
			Shortage:  a.Shortage,
		})
	}
	return out
}

func formatQty(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type Reconciler struct {
	ledger *stock.Ledger
	log    logrus.FieldLogger
}

func NewReconciler(ledger *stock.Ledger, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{ledger: ledger, log: log}
}

// Assess groups lines and diffs each item against current stock read through tx.
func (r *Reconciler) Assess(tx *gorm.DB, lines []Line) ([]Assessment, error) {
	reqs := Group(lines)
	if len(reqs) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ItemID)
	}
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("loading raw material products: %w", err)
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]Assessment, 0, len(reqs))
	for _, req := range reqs {
		p, ok := byID[req.ItemID]
		if !ok {
			return nil, apperr.Validation("Raw material doesn't exist")
		}
		out = append(out, Assessment{
			Requirement: req,
			ItemName:    p.Name,
			Available:   p.CurrentStock,
			Shortage:    quantity.ClampZero(req.Required, p.CurrentStock),
		})
	}
	return out, nil
}

// ReplaceForBOM swaps the BOM's shortages for the freshly assessed set.
// Resolved shortages that may not be recreated are kept as long as the item's
// required quantity is unchanged and no deficit has reopened for the item since.
// New rows inherit the original quantity and the
// recreate flag of the previous row for the same item.
func (r *Reconciler) ReplaceForBOM(tx *gorm.DB, bomID uint, assessed []Assessment) ([]models.InventoryShortage, error) {
	var existing []models.InventoryShortage
	if err := tx.Where("bom_id = ?", bomID).Order("id").Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("loading shortages of bom %d: %w", bomID, err)
	}

	byItem := make(map[uint]Assessment, len(assessed))
	for _, a := range assessed {
		byItem[a.ItemID] = a
	}

	open := make(map[uint]bool)
	for _, s := range existing {
		if !s.IsResolved {
			open[s.ItemID] = true
		}
	}

	previous := make(map[uint]models.InventoryShortage)
	kept := make(map[uint]bool)
	var drop []uint
	for _, s := range existing {
		previous[s.ItemID] = s
		a, ok := byItem[s.ItemID]
		sticky := s.IsResolved && !s.ShouldRecreateOnEdit && !open[s.ItemID]
		if sticky && (!ok || a.Required == s.TotalRequired) {
			kept[s.ItemID] = true
			continue
		}
		drop = append(drop, s.ID)
	}

	if len(drop) > 0 {
		if err := tx.Where("id IN ?", drop).Delete(&models.InventoryShortage{}).Error; err != nil {
			return nil, fmt.Errorf("deleting shortages of bom %d: %w", bomID, err)
		}
	}

	var created []models.InventoryShortage
	for _, a := range assessed {
		if a.Shortage <= 0 || kept[a.ItemID] {
			continue
		}
		row := models.InventoryShortage{
			BOMID:                    bomID,
			RawMaterialID:            a.RawMaterialID,
			ItemID:                   a.ItemID,
			ShortageQuantity:         a.Shortage,
			OriginalShortageQuantity: a.Shortage,
			TotalRequired:            a.Required,
			AvailableStock:           a.Available,
			ShouldRecreateOnEdit:     true,
		}
		if prev, ok := previous[a.ItemID]; ok {
			row.OriginalShortageQuantity = prev.OriginalShortageQuantity
			row.ShouldRecreateOnEdit = prev.ShouldRecreateOnEdit
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("creating shortage for item %d: %w", a.ItemID, err)
		}
		created = append(created, row)
	}
	return created, nil
}

// RecreateForBOM re-runs reconciliation for a stored BOM against current stock.
func (r *Reconciler) RecreateForBOM(tx *gorm.DB, bomID uint) ([]Assessment, []models.InventoryShortage, error) {
	var bom models.BOM
	if err := tx.Preload("RawMaterials").First(&bom, bomID).Error; err != nil {
		return nil, nil, apperr.NotFoundOr(err, "BOM not found")
	}
	lines := make([]Line, 0, len(bom.RawMaterials))
	for _, rm := range bom.RawMaterials {
		lines = append(lines, Line{ItemID: rm.ItemID, RawMaterialID: rm.ID, Quantity: rm.Quantity})
	}
	assessed, err := r.Assess(tx, lines)
	if err != nil {
		return nil, nil, err
	}
	rows, err := r.ReplaceForBOM(tx, bomID, assessed)
	if err != nil {
		return nil, nil, err
	}
	return assessed, rows, nil
}

// StockDeltaResult reports what a direct stock edit did to shortages.
type StockDeltaResult struct {
	Updated  []models.InventoryShortage `json:"updated"`
	Resolved int                        `json:"resolved"`
	Created  []models.InventoryShortage `json:"created"`
}

// ApplyStockDelta re-diffs open shortages of an item after its stock moved by delta.
// Open shortages absorb the delta in even shares (remainder to the last); a positive
// delta reduces them and resolves at zero, a negative one grows them. With no open
// shortages a negative delta opens one per BOM that uses the item.
func (r *Reconciler) ApplyStockDelta(tx *gorm.DB, productID uint, delta float64, actor auth.Principal) (*StockDeltaResult, error) {
	res := &StockDeltaResult{}
	if delta == 0 {
		return res, nil
	}

	var open []models.InventoryShortage
	if err := tx.Where("item_id = ? AND is_resolved = ?", productID, false).Order("id").Find(&open).Error; err != nil {
		return nil, fmt.Errorf("loading open shortages of item %d: %w", productID, err)
	}

	if len(open) > 0 {
		magnitude := delta
		if magnitude < 0 {
			magnitude = -magnitude
		}
		shares := quantity.SplitEven(magnitude, len(open))
		now := time.Now()
		for i := range open {
			s := &open[i]
			if delta > 0 {
				s.ShortageQuantity = quantity.ClampZero(s.ShortageQuantity, shares[i])
			} else {
				s.ShortageQuantity = quantity.Add(s.ShortageQuantity, shares[i])
			}
			if s.ShortageQuantity == 0 {
				markResolved(s, actor, now)
				s.ShouldRecreateOnEdit = true
				res.Resolved++
			}
			if err := tx.Save(s).Error; err != nil {
				return nil, fmt.Errorf("updating shortage %d: %w", s.ID, err)
			}
			res.Updated = append(res.Updated, *s)
		}
		return res, nil
	}

	if delta > 0 {
		return res, nil
	}

	product, err := r.ledger.Get(tx, productID)
	if err != nil {
		return nil, err
	}

	var lines []models.BOMRawMaterial
	if err := tx.Where("item_id = ?", productID).Order("id").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("loading boms using item %d: %w", productID, err)
	}
	firstLine := make(map[uint]uint)
	required := make(map[uint]float64)
	var bomIDs []uint
	for _, l := range lines {
		if _, ok := firstLine[l.BOMID]; !ok {
			firstLine[l.BOMID] = l.ID
			bomIDs = append(bomIDs, l.BOMID)
		}
		required[l.BOMID] = quantity.Add(required[l.BOMID], l.Quantity)
	}

	for _, bomID := range bomIDs {
		row := models.InventoryShortage{
			BOMID:                    bomID,
			RawMaterialID:            firstLine[bomID],
			ItemID:                   productID,
			ShortageQuantity:         -delta,
			OriginalShortageQuantity: -delta,
			TotalRequired:            required[bomID],
			AvailableStock:           product.CurrentStock,
			ShouldRecreateOnEdit:     true,
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("creating shortage for bom %d: %w", bomID, err)
		}
		res.Created = append(res.Created, row)
	}
	return res, nil
}

func markResolved(s *models.InventoryShortage, actor auth.Principal, at time.Time) {
	s.ShortageQuantity = 0
	s.IsResolved = true
	s.ResolvedAt = &at
	if actor.UserID != 0 {
		id := actor.UserID
		s.ResolvedByID = &id
	}
}
