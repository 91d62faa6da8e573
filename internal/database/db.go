package database

import (
	"fmt"
	"time"

	"mfg-erp-backend/internal/config"
	"mfg-erp-backend/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config, log *logrus.Logger) {
	db, err := Open(cfg, log)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
	DB = db
	log.Info("database connected, migrations applied")
}

// GormConfig is shared by production and tests so both translate errors the same way.
func GormConfig(log *logrus.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		// Shortages and processes may outlive the BOM rows they point at.
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func Open(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DatabaseDSN)
	default:
		dialector = postgres.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, GormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.DatabaseDriver, err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if cfg.DBMaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		}
		if cfg.DBMaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.WithError(err).Warn("db connected but failed to install otelgorm plugin")
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Product{},
		&models.BOMFinishedMaterial{},
		&models.BOM{},
		&models.BOMRawMaterial{},
		&models.BOMScrapMaterial{},
		&models.InventoryShortage{},
		&models.ProductionProcess{},
		&models.ProductionRawMaterial{},
		&models.ProductionScrapMaterial{},
		&models.Counter{},
		&models.AuditLog{},
	)
}
