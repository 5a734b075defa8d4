package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-inventory-uom/internal/config"
	"go-inventory-uom/internal/handler"
	"go-inventory-uom/internal/middleware"
	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
	"go-inventory-uom/internal/repository/mongodb"
	"go-inventory-uom/internal/scheduler"
	"go-inventory-uom/internal/service"
	"go-inventory-uom/internal/storage/gormstore"
	"go-inventory-uom/internal/ws"
	"go-inventory-uom/pkg/clients/webhook"
	"go-inventory-uom/pkg/database"
	"go-inventory-uom/pkg/jwt"
	"go-inventory-uom/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load Env
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	log := logger.Must(logger.New(cfg.LogLevel))
	defer log.Sync()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close(db)

	store, err := gormstore.New(db)
	if err != nil {
		log.Fatal("failed to migrate key-value store", zap.Error(err))
	}

	// 3. Repositories
	itemRepo := repository.NewItemRepo(store)
	ratioRepo := repository.NewRatioRepo(store)
	backupRepo := repository.NewBackupRepo(store)
	auditRepo, closeAudit := setupAudit(ctx, cfg.Audit, db, log)
	defer closeAudit()

	if cfg.Seed.DemoData {
		seedDemoData(ctx, itemRepo, ratioRepo, log)
	}

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(logger.Named(log, "ws"))
	go wsHub.Run(ctx)

	notifiers := service.Notifiers{wsHub}
	if hook := webhook.NewClient(cfg.Webhook); hook != nil {
		notifiers = append(notifiers, hook)
		log.Info("transformation webhook enabled", zap.String("url", cfg.Webhook.URL))
	}

	// 5. Dependency Injection (Wiring Layers)
	calc, err := service.NewConversionCalculator(ctx, ratioRepo, logger.Named(log, "calculator"))
	if err != nil {
		log.Fatal("failed to load conversion ratios", zap.Error(err))
	}
	stock, err := service.NewStockManager(itemRepo, service.StockManagerOptions{
		CacheTTL:          cfg.Stock.CacheTTL,
		LowStockThreshold: cfg.Stock.LowStockThreshold,
		Logger:            logger.Named(log, "stock"),
	})
	if err != nil {
		log.Fatal("failed to build stock manager", zap.Error(err))
	}
	engine, err := service.NewValidationEngine(calc)
	if err != nil {
		log.Fatal("failed to build validation engine", zap.Error(err))
	}
	manager, err := service.NewTransformationManager(service.TransformationManagerDeps{
		Calculator: calc,
		Stock:      stock,
		Validator:  engine,
		Audit:      auditRepo,
		Notifier:   notifiers,
		Logger:     logger.Named(log, "transformation"),
	})
	if err != nil {
		log.Fatal("failed to build transformation manager", zap.Error(err))
	}

	backupScheduler := scheduler.NewScheduler(cfg.Backup, stock, backupRepo, logger.Named(log, "scheduler"))
	if err := backupScheduler.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	signer := jwt.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.Server.AppName,
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(503).JSON(fiber.Map{"status": "down", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})

	// 7. Routes
	api := app.Group("/api/v1", middleware.RequireAuth(signer))
	handler.Register(api,
		handler.NewTransformationHandler(manager),
		handler.NewStockHandler(stock, backupRepo, backupScheduler, wsHub, logger.Named(log, "http")),
		handler.NewMasterDataHandler(stock, calc),
	)

	// WebSocket Route
	ws.Mount(app, wsHub, middleware.RequireStreamAuth(signer))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Panic("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	backupScheduler.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	cancel()

	log.Info("server exited")
}

// setupAudit picks the audit sink named by cfg and returns its cleanup.
func setupAudit(ctx context.Context, cfg config.AuditConfig, db *gorm.DB, log *zap.Logger) (repository.AuditRepository, func()) {
	switch cfg.Backend {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := mongodb.NewAuditRepository(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to connect audit mongodb", zap.Error(err))
		}
		log.Info("audit log on mongodb", zap.String("db", cfg.MongoDB))
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				log.Warn("failed to close audit mongodb", zap.Error(err))
			}
		}
	default:
		if err := db.AutoMigrate(&model.TransformationLog{}); err != nil {
			log.Fatal("failed to migrate transformation_logs", zap.Error(err))
		}
		return repository.NewAuditRepo(db), func() {}
	}
}

// seedDemoData writes the AQUA-1L example when the item collection is empty.
func seedDemoData(ctx context.Context, items repository.ItemRepository, ratios repository.RatioRepository, log *zap.Logger) {
	existing, err := items.FindAll(ctx)
	if err != nil {
		log.Warn("failed to read items for seeding", zap.Error(err))
		return
	}
	if len(existing) > 0 {
		return
	}

	demoItems := []model.Item{
		{Code: "AQUA-DUS", Name: "Aqua 1L (Dus isi 12)", Unit: "dus", Stock: 10, BaseProduct: "AQUA-1L"},
		{Code: "AQUA-PCS", Name: "Aqua 1L (Pcs)", Unit: "pcs", Stock: 50, BaseProduct: "AQUA-1L"},
	}
	demoRatios := []model.ConversionRatio{
		{BaseProduct: "AQUA-1L", Conversions: []model.Conversion{
			{From: "dus", To: "pcs", Ratio: 12},
			{From: "pcs", To: "dus", Ratio: 1.0 / 12},
		}},
	}

	if err := items.SaveAll(ctx, demoItems); err != nil {
		log.Warn("failed to seed items", zap.Error(err))
		return
	}
	if err := ratios.SaveAll(ctx, demoRatios); err != nil {
		log.Warn("failed to seed conversion ratios", zap.Error(err))
		return
	}
	log.Info("demo data seeded", zap.Int("items", len(demoItems)))
}
