package main

import (
	"context"
	"strings"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/audit"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/bom"
	"mfg-erp-backend/internal/config"
	"mfg-erp-backend/internal/database"
	"mfg-erp-backend/internal/events"
	"mfg-erp-backend/internal/inventory"
	"mfg-erp-backend/internal/lock"
	"mfg-erp-backend/internal/logging"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/production"
	"mfg-erp-backend/internal/shortage"
	"mfg-erp-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	database.Init(cfg, logger)
	db := database.DB

	ctx := context.Background()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("could not connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
	}

	var locker lock.Locker
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process locks")
		locker = lock.NewLocalLocker()
	}

	var pub events.Publisher
	switch cfg.EventsBackend {
	case "redis":
		pub = events.NewRedisPublisher(rdb, cfg.EventsChannel)
	case "pubsub":
		ps, err := events.NewPubSubPublisher(ctx, cfg.PubSubProjectID, cfg.PubSubTopic, cfg.PubSubCredentialsJSON)
		if err != nil {
			logger.Fatalf("could not start pubsub publisher: %v", err)
		}
		defer ps.Close()
		pub = ps
	default:
		pub = events.LogPublisher{Log: logger}
	}
	logger.WithField("backend", cfg.EventsBackend).Info("events publisher ready")

	ledger := stock.NewLedger(logger)
	reconciler := shortage.NewReconciler(ledger, logger)
	bomSvc := bom.NewService(db, reconciler, logger)
	prodSvc := production.NewService(db, ledger, locker, pub, logger)
	stockSvc := inventory.NewStockService(db, ledger, reconciler, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.Handler(logger),
	})
	app.Use(recover.New())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(logging.RequestLogger(logger))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(cfg.JWTSecret, db))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler(db))

	adminRoutes := protected.Group("/admin", auth.RequireSuper())
	adminRoutes.Post("/roles", auth.CreateRoleHandler(db))
	adminRoutes.Post("/users", auth.CreateUserHandler(db))

	protected.Get("/audit-logs", auth.RequireSuper(), audit.ListAuditLogsHandler(db))

	registerProductRoutes(protected, db, ledger, stockSvc)
	registerBOMRoutes(protected, db, bomSvc, prodSvc, reconciler)
	registerProductionRoutes(protected, prodSvc)

	logger.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func registerProductRoutes(r fiber.Router, db *gorm.DB, ledger *stock.Ledger, svc *inventory.StockService) {
	products := r.Group("/products")
	inv := auth.RequirePermission(models.PermissionInventory)

	products.Get("/", inventory.ListProductsHandler(db))
	products.Post("/", auth.RequireSuper(), inventory.CreateProductHandler(db, ledger))
	products.Put("/update-stock-and-shortages", inv, inventory.SetStockHandler(svc))
	products.Post("/update-inventory", inv, inventory.ReceivePurchaseHandler(svc))
	products.Get("/:id", inventory.GetProductHandler(db))
	products.Put("/:id", inv, inventory.UpdateProductHandler(db))
	products.Put("/:id/price", inv, inventory.StagePriceHandler(svc))
	products.Put("/:id/clear-updated-price", inv, inventory.ClearUpdatedPriceHandler(svc))
	products.Put("/:id/clear-updated-stock", inv, inventory.ClearUpdatedStockHandler(svc))
}

func registerBOMRoutes(r fiber.Router, db *gorm.DB, svc *bom.Service, prod *production.Service, rec *shortage.Reconciler) {
	b := r.Group("/bom")
	edit := auth.RequirePermission(models.PermissionBOM)
	inv := auth.RequirePermission(models.PermissionInventory)

	b.Get("/all", bom.ListHandler(svc))
	b.Get("/unapproved", bom.ListUnapprovedHandler(svc))
	b.Get("/autobom", auth.RequireSuper(), bom.AutoBomHandler(svc))
	b.Get("/finished-good/:productId", bom.FindByFinishedGoodHandler(svc))
	b.Delete("/bulk", auth.RequireSuper(), bom.BulkRemoveHandler(svc))

	b.Get("/inventory-shortages", inv, shortage.ListHandler(db))
	b.Get("/inventory-shortages/export", inv, shortage.ExportHandler(db))
	b.Patch("/inventory-shortages/:id", inv, shortage.PatchHandler(db, rec))

	b.Get("/unapproved/raw-materials", auth.RequireSuper(), bom.UnapprovedRawMaterialsHandler(svc, bom.AdminView))
	b.Get("/unapproved/inventory/raw-materials", inv, bom.UnapprovedRawMaterialsHandler(svc, bom.InventoryView))
	b.Post("/approve/raw-materials", auth.RequireSuper(), bom.ApproveRawMaterialForAdminHandler(svc))
	b.Post("/approve/inventory/raw-materials", inv, production.ApproveRawMaterialHandler(prod))

	b.Post("/", edit, bom.CreateHandler(svc))
	b.Get("/:id", bom.DetailsHandler(svc))
	b.Put("/:id", edit, bom.UpdateHandler(svc))
	b.Delete("/:id", edit, bom.RemoveHandler(svc))
	b.Get("/:id/shortages", shortage.ForBOMHandler(db))
	b.Post("/:id/shortages/recreate", inv, shortage.RecreateHandler(db, rec))
}

func registerProductionRoutes(r fiber.Router, svc *production.Service) {
	p := r.Group("/production-process")
	prod := auth.RequirePermission(models.PermissionProduction)
	inv := auth.RequirePermission(models.PermissionInventory)

	p.Get("/all", production.ListHandler(svc))
	p.Get("/inventory", inv, production.ListInventoryHandler(svc))
	p.Delete("/bulk", prod, production.BulkRemoveHandler(svc))
	p.Get("/done/:id", prod, production.MarkDoneHandler(svc))

	p.Put("/inventory-in-transit", inv, production.InventoryInTransitHandler(svc))
	p.Put("/request-allocation", prod, production.RequestAllocationHandler(svc))
	p.Put("/start-production", prod, production.StartProductionHandler(svc))
	p.Put("/pause", prod, production.PauseHandler(svc))
	p.Put("/resume", prod, production.ResumeHandler(svc))
	p.Put("/update-status", prod, production.UpdateStatusHandler(svc))

	p.Post("/move-to-inventory", prod, production.MoveToInventoryHandler(svc))
	p.Post("/out-finish-goods", inv, production.OutFinishedGoodsHandler(svc))
	p.Post("/update-inventory-status", inv, production.UpdateInventoryStatusHandler(svc))
	p.Post("/receive-by-inventory", inv, production.ReceiveByInventoryHandler(svc))
	p.Post("/dispatch", inv, production.DispatchHandler(svc))

	p.Post("/", prod, production.CreateHandler(svc))
	p.Get("/:id", production.DetailsHandler(svc))
	p.Put("/:id", prod, production.UpdateHandler(svc))
	p.Delete("/:id", prod, production.RemoveHandler(svc))
}
