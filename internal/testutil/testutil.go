package testutil

import (
	"fmt"
	"testing"

	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/database"
	"mfg-erp-backend/internal/logging"
	"mfg-erp-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated in-memory database that lives for the duration of the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(logging.Discard()))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	// Every connection to :memory: is a fresh database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func Super() auth.Principal {
	return auth.Principal{UserID: 1, Name: "Admin", IsSuper: true}
}

func Approver() auth.Principal {
	return auth.Principal{UserID: 2, Name: "Approver", Permissions: []models.Permission{models.PermissionApproval}}
}

func Clerk() auth.Principal {
	return auth.Principal{UserID: 3, Name: "Clerk", Permissions: []models.Permission{models.PermissionInventory, models.PermissionBOM}}
}

var productSeq int

// CreateProduct inserts a product with the given stock.
func CreateProduct(t *testing.T, db *gorm.DB, name string, stock float64) *models.Product {
	t.Helper()
	productSeq++
	p := &models.Product{
		ProductCode:       fmt.Sprintf("P%04d", productSeq),
		Name:              name,
		UOM:               "pcs",
		InventoryCategory: models.InventoryDirect,
		CurrentStock:      stock,
		Price:             10,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("creating product %s: %v", name, err)
	}
	return p
}

// Stock re-reads a product's current stock.
func Stock(t *testing.T, db *gorm.DB, productID uint) float64 {
	t.Helper()
	var p models.Product
	if err := db.First(&p, productID).Error; err != nil {
		t.Fatalf("loading product %d: %v", productID, err)
	}
	return p.CurrentStock
}

// Shortages returns all shortages for a BOM ordered by id.
func Shortages(t *testing.T, db *gorm.DB, bomID uint) []models.InventoryShortage {
	t.Helper()
	var out []models.InventoryShortage
	if err := db.Where("bom_id = ?", bomID).Order("id").Find(&out).Error; err != nil {
		t.Fatalf("loading shortages: %v", err)
	}
	return out
}

var bomSeq int

// CreateBOM inserts an approved BOM with a finished good and the given raw lines,
// bypassing reconciliation.
func CreateBOM(t *testing.T, db *gorm.DB, fg *models.Product, fgQty float64, raws ...models.BOMRawMaterial) *models.BOM {
	t.Helper()
	bomSeq++
	finished := &models.BOMFinishedMaterial{ItemID: fg.ID, Quantity: fgQty}
	if err := db.Create(finished).Error; err != nil {
		t.Fatalf("creating finished good: %v", err)
	}
	b := &models.BOM{
		BOMCode:        fmt.Sprintf("TBOM%03d", bomSeq),
		Name:           fmt.Sprintf("Fixture %d", bomSeq),
		CreatorID:      1,
		FinishedGoodID: &finished.ID,
		PartsCount:     len(raws),
		Approved:       true,
		RawMaterials:   raws,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("creating bom: %v", err)
	}
	return b
}
