package production_test

import (
	"context"
	"strings"
	"testing"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/events"
	"mfg-erp-backend/internal/lock"
	"mfg-erp-backend/internal/logging"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/production"
	"mfg-erp-backend/internal/stock"
	"mfg-erp-backend/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *production.Service
	rec    *events.Recorder
	steel  *models.Product
	bolts  *models.Product
	chair  *models.Product
	offcut *models.Product
	bom    *models.BOM
}

// newFixture builds a BOM for 10 chairs needing 50 steel and 20 bolts, with
// 100 steel and 40 bolts on hand.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := logging.Discard()
	rec := &events.Recorder{}
	f := &fixture{
		db:     db,
		svc:    production.NewService(db, stock.NewLedger(log), lock.NewLocalLocker(), rec, log),
		rec:    rec,
		steel:  testutil.CreateProduct(t, db, "Steel", 100),
		bolts:  testutil.CreateProduct(t, db, "Bolts", 40),
		chair:  testutil.CreateProduct(t, db, "Chair", 0),
		offcut: testutil.CreateProduct(t, db, "Offcut", 0),
	}
	f.bom = testutil.CreateBOM(t, db, f.chair, 10,
		models.BOMRawMaterial{ItemID: f.steel.ID, Quantity: 50},
		models.BOMRawMaterial{ItemID: f.bolts.ID, Quantity: 20},
	)
	scrap := models.BOMScrapMaterial{BOMID: f.bom.ID, ItemID: f.offcut.ID, Quantity: 5}
	if err := db.Create(&scrap).Error; err != nil {
		t.Fatalf("creating scrap line: %v", err)
	}
	return f
}

func (f *fixture) create(t *testing.T) *models.ProductionProcess {
	t.Helper()
	p, err := f.svc.Create(context.Background(), production.CreateInput{BOM: f.bom.ID, RMStore: 1, FGStore: 2}, testutil.Super())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func (f *fixture) reload(t *testing.T, id uint) *models.ProductionProcess {
	t.Helper()
	var p models.ProductionProcess
	if err := f.db.Preload("RawMaterials").Preload("ScrapMaterials").First(&p, id).Error; err != nil {
		t.Fatalf("reloading process %d: %v", id, err)
	}
	return &p
}

// started walks a new process through approval, allocation and transit into production.
func (f *fixture) started(t *testing.T) *models.ProductionProcess {
	t.Helper()
	ctx := context.Background()
	p := f.create(t)
	for _, rm := range f.bom.RawMaterials {
		if _, err := f.svc.ApproveRawMaterial(ctx, rm.ID, testutil.Clerk()); err != nil {
			t.Fatalf("ApproveRawMaterial: %v", err)
		}
	}
	if _, err := f.svc.RequestAllocation(ctx, p.ID, testutil.Clerk()); err != nil {
		t.Fatalf("RequestAllocation: %v", err)
	}
	for _, rm := range f.bom.RawMaterials {
		if _, err := f.svc.MarkOutForInventory(ctx, rm.ID, testutil.Clerk()); err != nil {
			t.Fatalf("MarkOutForInventory: %v", err)
		}
	}
	p, err := f.svc.StartProduction(ctx, p.ID, testutil.Super())
	if err != nil {
		t.Fatalf("StartProduction: %v", err)
	}
	return p
}

func rawUsed(item uint, used float64) *production.Progress {
	return &production.Progress{RawMaterials: []production.RawMaterialProgress{{Item: item, UsedQuantity: used}}}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots the bom", func(t *testing.T) {
		f := newFixture(t)
		f.db.Model(&models.BOMRawMaterial{}).Where("bom_id = ?", f.bom.ID).
			Updates(map[string]any{"approved_by_inventory_personnel": true, "is_out_for_inventory_clicked": true})

		p := f.create(t)
		if p.Status != models.StatusRawMaterialApprovalPending {
			t.Errorf("expected pending status, got %q", p.Status)
		}
		if !p.Approved {
			t.Errorf("expected super admin's process to be approved")
		}
		if len(p.Processes) != 1 || p.Processes[0].Process != "Pre-production" {
			t.Errorf("expected default process, got %+v", p.Processes)
		}
		if p.FinishedGood.EstimatedQuantity != 10 || p.FinishedGood.RemainingQuantity != 10 {
			t.Errorf("expected finished good estimate 10, got %+v", p.FinishedGood)
		}
		if p.Quantity != 10 || p.ItemID != f.chair.ID {
			t.Errorf("expected quantity 10 of chair, got %v of %d", p.Quantity, p.ItemID)
		}

		got := f.reload(t, p.ID)
		if len(got.RawMaterials) != 2 || got.RawMaterials[0].EstimatedQuantity != 50 || got.RawMaterials[1].EstimatedQuantity != 20 {
			t.Errorf("expected raw snapshot 50/20, got %+v", got.RawMaterials)
		}
		if len(got.ScrapMaterials) != 1 || got.ScrapMaterials[0].EstimatedQuantity != 5 {
			t.Errorf("expected scrap snapshot 5, got %+v", got.ScrapMaterials)
		}

		var lines []models.BOMRawMaterial
		f.db.Where("bom_id = ?", f.bom.ID).Find(&lines)
		for _, l := range lines {
			if l.ApprovedByInventoryPersonnel || l.IsOutForInventoryClicked {
				t.Errorf("expected flags of line %d to be reset", l.ID)
			}
		}
		var b models.BOM
		f.db.First(&b, f.bom.ID)
		if b.ProductionProcessID == nil || *b.ProductionProcessID != p.ID {
			t.Errorf("expected bom to point at process %d, got %v", p.ID, b.ProductionProcessID)
		}
	})

	t.Run("duplicate lines are merged and processes copied", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		log := logging.Discard()
		svc := production.NewService(db, stock.NewLedger(log), lock.NewLocalLocker(), &events.Recorder{}, log)
		steel := testutil.CreateProduct(t, db, "Steel", 100)
		desk := testutil.CreateProduct(t, db, "Desk", 0)
		b := testutil.CreateBOM(t, db, desk, 4,
			models.BOMRawMaterial{ItemID: steel.ID, Quantity: 30},
			models.BOMRawMaterial{ItemID: steel.ID, Quantity: 20},
		)
		db.Model(b).Select("processes").Updates(&models.BOM{Processes: []string{"Cutting", "Welding"}})

		p, err := svc.Create(ctx, production.CreateInput{BOM: b.ID, RMStore: 1, FGStore: 1}, testutil.Clerk())
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if p.Approved {
			t.Errorf("expected clerk's process to be unapproved")
		}
		if len(p.RawMaterials) != 1 || p.RawMaterials[0].EstimatedQuantity != 50 {
			t.Errorf("expected one merged line of 50, got %+v", p.RawMaterials)
		}
		if len(p.Processes) != 2 || p.Processes[1].Process != "Welding" {
			t.Errorf("expected bom processes, got %+v", p.Processes)
		}
	})

	t.Run("one active process per bom", func(t *testing.T) {
		f := newFixture(t)
		f.create(t)
		_, err := f.svc.Create(ctx, production.CreateInput{BOM: f.bom.ID, RMStore: 1, FGStore: 1}, testutil.Super())
		if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("missing bom", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, production.CreateInput{BOM: 999, RMStore: 1, FGStore: 1}, testutil.Super())
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestAutoAdvance(t *testing.T) {
	ctx := context.Background()

	t.Run("allocated only once every line is approved", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t)
		first, second := f.bom.RawMaterials[0], f.bom.RawMaterials[1]

		res, err := f.svc.ApproveRawMaterial(ctx, first.ID, testutil.Clerk())
		if err != nil {
			t.Fatalf("ApproveRawMaterial: %v", err)
		}
		if res.All || res.Advanced {
			t.Errorf("expected no advance after the first line")
		}
		if got := f.reload(t, p.ID).Status; got != models.StatusRawMaterialApprovalPending {
			t.Errorf("expected pending, got %q", got)
		}

		res, err = f.svc.ApproveRawMaterial(ctx, second.ID, testutil.Clerk())
		if err != nil {
			t.Fatalf("ApproveRawMaterial: %v", err)
		}
		if !res.All || !res.Advanced {
			t.Errorf("expected advance after the last line, got %+v", res)
		}
		if got := f.reload(t, p.ID).Status; got != models.StatusInventoryAllocated {
			t.Errorf("expected Inventory Allocated, got %q", got)
		}

		if n := len(f.rec.Named(events.InventoryApprovalUpdated)); n != 2 {
			t.Errorf("expected 2 approval events, got %d", n)
		}
		statuses := f.rec.Named(events.ProcessStatusUpdated)
		if len(statuses) != 1 {
			t.Fatalf("expected 1 status event, got %d", len(statuses))
		}
		if ev := statuses[0].(events.StatusPayload); ev.ID != p.ID || ev.Status != string(models.StatusInventoryAllocated) {
			t.Errorf("unexpected status event %+v", ev)
		}
	})

	t.Run("in transit only once every line is out", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t)
		for _, rm := range f.bom.RawMaterials {
			f.svc.ApproveRawMaterial(ctx, rm.ID, testutil.Clerk())
		}
		if _, err := f.svc.RequestAllocation(ctx, p.ID, testutil.Clerk()); err != nil {
			t.Fatalf("RequestAllocation: %v", err)
		}
		// Approving again must not move the process backwards.
		f.svc.ApproveRawMaterial(ctx, f.bom.RawMaterials[0].ID, testutil.Clerk())
		if got := f.reload(t, p.ID).Status; got != models.StatusRequestForAllowInventory {
			t.Errorf("expected request for allow inventory, got %q", got)
		}

		f.svc.MarkOutForInventory(ctx, f.bom.RawMaterials[0].ID, testutil.Clerk())
		if got := f.reload(t, p.ID).Status; got != models.StatusRequestForAllowInventory {
			t.Errorf("expected no advance after the first line, got %q", got)
		}
		res, err := f.svc.MarkOutForInventory(ctx, f.bom.RawMaterials[1].ID, testutil.Clerk())
		if err != nil {
			t.Fatalf("MarkOutForInventory: %v", err)
		}
		if !res.Advanced {
			t.Errorf("expected advance")
		}
		if got := f.reload(t, p.ID).Status; got != models.StatusInventoryInTransit {
			t.Errorf("expected inventory in transit, got %q", got)
		}
		if n := len(f.rec.Named(events.InventoryOutUpdated)); n != 2 {
			t.Errorf("expected 2 out events, got %d", n)
		}
	})

	t.Run("guards", func(t *testing.T) {
		f := newFixture(t)
		f.create(t)
		rm := f.bom.RawMaterials[0]

		if _, err := f.svc.MarkOutForInventory(ctx, rm.ID, testutil.Clerk()); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected unapproved line to be rejected, got %v", err)
		}
		if _, err := f.svc.ApproveRawMaterial(ctx, rm.ID, testutil.Approver()); !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("expected forbidden without inventory permission, got %v", err)
		}
		if _, err := f.svc.ApproveRawMaterial(ctx, 999, testutil.Clerk()); !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}

		f.db.Model(f.bom).Update("approved", false)
		if _, err := f.svc.ApproveRawMaterial(ctx, rm.ID, testutil.Clerk()); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected unapproved bom to be rejected, got %v", err)
		}
	})
}

func TestStartProduction(t *testing.T) {
	ctx := context.Background()

	t.Run("only from inventory in transit", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t)
		if _, err := f.svc.StartProduction(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
		if got := testutil.Stock(t, f.db, f.steel.ID); got != 100 {
			t.Errorf("expected untouched stock, got %v", got)
		}
	})

	t.Run("deducts the full bom quantities", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)

		if p.Status != models.StatusProductionStarted || p.ProductionStartedAt == nil {
			t.Errorf("expected started process, got %q", p.Status)
		}
		statuses := f.rec.Named(events.ProcessStatusUpdated)
		if last := statuses[len(statuses)-1].(events.StatusPayload); last.Status != string(models.StatusProductionStarted) {
			t.Errorf("expected a production started event, got %+v", last)
		}
		if got := testutil.Stock(t, f.db, f.steel.ID); got != 50 {
			t.Errorf("expected steel 50, got %v", got)
		}
		if got := testutil.Stock(t, f.db, f.bolts.ID); got != 20 {
			t.Errorf("expected bolts 20, got %v", got)
		}
		var b models.BOM
		f.db.Preload("RawMaterials").First(&b, f.bom.ID)
		if !b.IsProductionStarted {
			t.Errorf("expected bom to be marked started")
		}
		for _, rm := range b.RawMaterials {
			if !rm.InProduction {
				t.Errorf("expected line %d in production", rm.ID)
			}
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("usage within the reservation moves no stock", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)

		p, err := f.svc.Update(ctx, p.ID, production.UpdateInput{BOM: rawUsed(f.steel.ID, 45)}, testutil.Super())
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if p.Status != models.StatusProductionInProgress {
			t.Errorf("expected production in progress, got %q", p.Status)
		}
		if p.RawMaterials[0].RemainingQuantity != 5 {
			t.Errorf("expected remaining 5, got %v", p.RawMaterials[0].RemainingQuantity)
		}
		if got := testutil.Stock(t, f.db, f.steel.ID); got != 50 {
			t.Errorf("expected steel 50, got %v", got)
		}
	})

	t.Run("overage is deducted and given back", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)

		f.svc.Update(ctx, p.ID, production.UpdateInput{BOM: rawUsed(f.steel.ID, 60)}, testutil.Super())
		if got := testutil.Stock(t, f.db, f.steel.ID); got != 40 {
			t.Errorf("expected steel 40, got %v", got)
		}
		f.svc.Update(ctx, p.ID, production.UpdateInput{BOM: rawUsed(f.steel.ID, 55)}, testutil.Super())
		if got := testutil.Stock(t, f.db, f.steel.ID); got != 45 {
			t.Errorf("expected steel 45, got %v", got)
		}
		if got := f.reload(t, p.ID).RawMaterials[0].RemainingQuantity; got != -5 {
			t.Errorf("expected remaining -5, got %v", got)
		}
	})

	t.Run("scrap output is added to stock", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		in := production.UpdateInput{BOM: &production.Progress{
			ScrapMaterials: []production.ScrapMaterialProgress{{Item: f.offcut.ID, ProducedQuantity: 3, UOMProducedQuantity: "kg"}},
		}}
		if _, err := f.svc.Update(ctx, p.ID, in, testutil.Super()); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got := testutil.Stock(t, f.db, f.offcut.ID); got != 3 {
			t.Errorf("expected offcut 3, got %v", got)
		}
		var line models.BOMScrapMaterial
		f.db.Where("bom_id = ?", f.bom.ID).First(&line)
		if line.UOMUsedQuantity != "kg" {
			t.Errorf("expected uom to be copied to the bom, got %q", line.UOMUsedQuantity)
		}
	})

	t.Run("finished output waits for inventory", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		in := production.UpdateInput{BOM: &production.Progress{FinishedGood: &production.FinishedGoodProgress{ProducedQuantity: 4}}}
		p, err := f.svc.Update(ctx, p.ID, in, testutil.Super())
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if p.FinishedGood.FinalProduceQuantity != 4 || p.FinishedGood.RemainingQuantity != 6 {
			t.Errorf("expected final 4 remaining 6, got %+v", p.FinishedGood)
		}
		if got := testutil.Stock(t, f.db, f.chair.ID); got != 0 {
			t.Errorf("expected chair stock untouched, got %v", got)
		}
	})

	t.Run("received output taken back", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		produced := func(q float64) production.UpdateInput {
			return production.UpdateInput{BOM: &production.Progress{FinishedGood: &production.FinishedGoodProgress{ProducedQuantity: q}}}
		}
		f.svc.Update(ctx, p.ID, produced(10), testutil.Super())
		if _, err := f.svc.ReceiveByInventory(ctx, p.ID, testutil.Clerk()); err != nil {
			t.Fatalf("ReceiveByInventory: %v", err)
		}

		p, err := f.svc.Update(ctx, p.ID, produced(6), testutil.Super())
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if p.Status != models.StatusProductionInProgress {
			t.Errorf("expected received process back in progress, got %q", p.Status)
		}
		if got := testutil.Stock(t, f.db, f.chair.ID); got != 6 {
			t.Errorf("expected chair 6, got %v", got)
		}
		if p.FinishedGood.FinalProduceQuantity != 0 || p.FinishedGood.InventoryLastChangesQuantity != 6 {
			t.Errorf("unexpected finished good %+v", p.FinishedGood)
		}
	})

	t.Run("explicit status", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		f.svc.Update(ctx, p.ID, production.UpdateInput{BOM: rawUsed(f.steel.ID, 1)}, testutil.Super())

		paused := models.StatusProductionPaused
		p, err := f.svc.Update(ctx, p.ID, production.UpdateInput{Status: &paused}, testutil.Super())
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if p.Status != paused {
			t.Errorf("expected paused, got %q", p.Status)
		}

		bogus := models.ProductionStatus("exploded")
		if _, err := f.svc.Update(ctx, p.ID, production.UpdateInput{Status: &bogus}, testutil.Super()); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected invalid status to be rejected, got %v", err)
		}
	})

	t.Run("process steps", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		steps := []models.ProcessStep{{Process: "Pre-production", Start: true, WorkDone: "50%"}}
		p, err := f.svc.Update(ctx, p.ID, production.UpdateInput{Processes: steps}, testutil.Super())
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if p.Status != models.StatusProductionInProgress || !f.reload(t, p.ID).Processes[0].Start {
			t.Errorf("expected step change to be saved and move to in progress")
		}
	})

	t.Run("errors", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t)
		if _, err := f.svc.Update(ctx, p.ID, production.UpdateInput{BOM: rawUsed(f.steel.ID, 1)}, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected usage before start to be rejected, got %v", err)
		}
		f.svc.Remove(ctx, p.ID, testutil.Super())

		p = f.started(t)
		if _, err := f.svc.Update(ctx, p.ID, production.UpdateInput{BOM: rawUsed(f.chair.ID, 1)}, testutil.Super()); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected unknown item to be rejected, got %v", err)
		}
		if _, err := f.svc.Update(ctx, 999, production.UpdateInput{}, testutil.Super()); !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestMarkDone(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the remaining quantity", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		f.svc.Update(ctx, p.ID, production.UpdateInput{BOM: rawUsed(f.steel.ID, 45)}, testutil.Super())

		p, returned, err := f.svc.MarkDone(ctx, p.ID, testutil.Super())
		if err != nil {
			t.Fatalf("MarkDone: %v", err)
		}
		if p.Status != models.StatusCompleted {
			t.Errorf("expected completed, got %q", p.Status)
		}
		if len(returned) != 2 || returned[0].Quantity != 5 || returned[1].Quantity != 20 {
			t.Errorf("expected 5 steel and 20 bolts returned, got %+v", returned)
		}
		if got := testutil.Stock(t, f.db, f.steel.ID); got != 55 {
			t.Errorf("expected steel 55, got %v", got)
		}
		if got := testutil.Stock(t, f.db, f.bolts.ID); got != 40 {
			t.Errorf("expected bolts 40, got %v", got)
		}

		if _, _, err := f.svc.MarkDone(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected second mark done to be rejected, got %v", err)
		}
	})

	t.Run("requires a started process", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t)
		if _, _, err := f.svc.MarkDone(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})
	t.Run("refuses a dispatched process", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		if _, err := f.svc.ReceiveByInventory(ctx, p.ID, testutil.Super()); err != nil {
			t.Fatalf("ReceiveByInventory: %v", err)
		}
		if _, err := f.svc.Dispatch(ctx, p.ID, testutil.Super()); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		if _, _, err := f.svc.MarkDone(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
		if got := f.reload(t, p.ID).Status; got != models.StatusDispatched {
			t.Errorf("expected dispatched, got %q", got)
		}
	})
}

func TestFullCycleConservesStock(t *testing.T) {
	ctx := context.Background()
	for _, used := range []float64{0, 30} {
		f := newFixture(t)
		p := f.started(t)

		in := production.UpdateInput{BOM: &production.Progress{
			FinishedGood: &production.FinishedGoodProgress{ProducedQuantity: 8},
			RawMaterials: []production.RawMaterialProgress{{Item: f.steel.ID, UsedQuantity: used}},
		}}
		if _, err := f.svc.Update(ctx, p.ID, in, testutil.Super()); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if _, _, err := f.svc.MarkDone(ctx, p.ID, testutil.Super()); err != nil {
			t.Fatalf("MarkDone: %v", err)
		}
		p, err := f.svc.ReceiveByInventory(ctx, p.ID, testutil.Clerk())
		if err != nil {
			t.Fatalf("ReceiveByInventory: %v", err)
		}

		if got, want := testutil.Stock(t, f.db, f.steel.ID), 100-used; got != want {
			t.Errorf("used %v: expected steel %v, got %v", used, want, got)
		}
		if got := testutil.Stock(t, f.db, f.bolts.ID); got != 40 {
			t.Errorf("used %v: expected bolts 40, got %v", used, got)
		}
		if got := testutil.Stock(t, f.db, f.chair.ID); got != 8 {
			t.Errorf("used %v: expected chair 8, got %v", used, got)
		}
		if p.Status != models.StatusReceived || p.FinishedGood.FinalProduceQuantity != 0 || p.FinishedGood.InventoryLastChangesQuantity != 8 {
			t.Errorf("used %v: unexpected process after receipt %q %+v", used, p.Status, p.FinishedGood)
		}
	}
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.create(t)
	if _, err := f.svc.Pause(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected pause before start to be rejected, got %v", err)
	}
	if _, err := f.svc.Resume(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected resume of an unpaused process to be rejected, got %v", err)
	}
	f.svc.Remove(ctx, p.ID, testutil.Super())

	p = f.started(t)
	p, err := f.svc.Pause(ctx, p.ID, testutil.Super())
	if err != nil || p.Status != models.StatusProductionPaused {
		t.Fatalf("expected paused, got %v %v", p, err)
	}
	p, err = f.svc.Resume(ctx, p.ID, testutil.Super())
	if err != nil || p.Status != models.StatusProductionInProgress {
		t.Fatalf("expected in progress, got %v %v", p, err)
	}
}

func TestFinishedGoodsTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("handoff", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t)
		if _, err := f.svc.MoveToInventory(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected move before start to be rejected, got %v", err)
		}
		f.svc.Remove(ctx, p.ID, testutil.Super())

		p = f.started(t)
		if _, err := f.svc.Dispatch(ctx, p.ID, testutil.Super()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected dispatch of running production to be rejected, got %v", err)
		}
		if _, err := f.svc.MoveToInventory(ctx, p.ID, testutil.Super()); err != nil {
			t.Fatalf("MoveToInventory: %v", err)
		}
		if _, err := f.svc.OutFinishedGoods(ctx, p.ID, testutil.Super()); err != nil {
			t.Fatalf("OutFinishedGoods: %v", err)
		}

		listed, err := f.svc.ListInventoryProcesses(ctx)
		if err != nil || len(listed) != 1 {
			t.Fatalf("expected the process in the inventory list, got %d %v", len(listed), err)
		}

		var got []models.ProductionStatus
		for _, ev := range f.rec.Named(events.ProcessStatusUpdated) {
			got = append(got, models.ProductionStatus(ev.(events.StatusPayload).Status))
		}
		n := len(got)
		if n < 2 || got[n-2] != models.StatusMovedToInventory || got[n-1] != models.StatusOutFinishedGoods {
			t.Errorf("expected moved and out events last, got %v", got)
		}

		p, err = f.svc.Dispatch(ctx, p.ID, testutil.Super())
		if err != nil || p.Status != models.StatusDispatched {
			t.Fatalf("expected dispatched, got %v", err)
		}
	})

	t.Run("inventory status", func(t *testing.T) {
		f := newFixture(t)
		p := f.started(t)
		before := len(f.rec.Named(events.ProcessStatusUpdated))

		if _, err := f.svc.UpdateInventoryStatus(ctx, p.ID, models.StatusCompleted, testutil.Clerk()); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected invalid inventory status to be rejected, got %v", err)
		}
		if _, err := f.svc.UpdateInventoryStatus(ctx, p.ID, models.StatusAllocatedFinishGoods, testutil.Clerk()); err != nil {
			t.Fatalf("UpdateInventoryStatus: %v", err)
		}
		if _, err := f.svc.UpdateInventoryStatus(ctx, p.ID, models.StatusReceived, testutil.Clerk()); err != nil {
			t.Fatalf("UpdateInventoryStatus: %v", err)
		}
		if _, err := f.svc.UpdateInventoryStatus(ctx, p.ID, models.StatusAllocatedFinishGoods, testutil.Clerk()); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected received to allocated to be rejected, got %v", err)
		}

		evs := f.rec.Named(events.ProcessStatusUpdated)[before:]
		if len(evs) != 2 {
			t.Fatalf("expected 2 status events, got %d", len(evs))
		}
		if evs[0].(events.StatusPayload).Status != string(models.StatusAllocatedFinishGoods) ||
			evs[1].(events.StatusPayload).Status != string(models.StatusReceived) {
			t.Errorf("expected allocated then received, got %+v", evs)
		}
	})

	t.Run("explicit status always publishes", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t)
		_, err := f.svc.UpdateStatus(ctx, p.ID, "nonsense", testutil.Super())
		if !apperr.Is(err, apperr.KindValidation) || !strings.Contains(err.Error(), string(models.StatusProductionStarted)) {
			t.Errorf("expected invalid status to be rejected with the valid list, got %v", err)
		}
		if _, err := f.svc.UpdateStatus(ctx, p.ID, models.StatusProductionPaused, testutil.Super()); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if _, err := f.svc.UpdateStatus(ctx, p.ID, models.StatusInventoryAllocated, testutil.Super()); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if n := len(f.rec.Named(events.ProcessStatusUpdated)); n != 2 {
			t.Errorf("expected one event per explicit set, got %d", n)
		}
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.create(t)

	if _, err := f.svc.Remove(ctx, p.ID, testutil.Super()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	var count int64
	f.db.Model(&models.ProductionRawMaterial{}).Where("process_id = ?", p.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected raw lines to be deleted, got %d", count)
	}
	var b models.BOM
	f.db.First(&b, f.bom.ID)
	if b.ProductionProcessID != nil {
		t.Errorf("expected bom to be unlinked")
	}

	if _, err := f.svc.BulkRemove(ctx, nil, testutil.Super()); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := f.svc.BulkRemove(ctx, []uint{p.ID}, testutil.Super()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	p = f.create(t)
	n, err := f.svc.BulkRemove(ctx, []uint{p.ID, 999}, testutil.Super())
	if err != nil || n != 1 {
		t.Errorf("expected 1 deleted, got %d %v", n, err)
	}
}
