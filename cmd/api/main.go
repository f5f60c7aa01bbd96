package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pilotopos/internal/export"
	"pilotopos/internal/handler"
	"pilotopos/internal/metrics"
	"pilotopos/internal/middleware"
	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/internal/service"
	"pilotopos/internal/ws"
	"pilotopos/pkg/config"
	"pilotopos/pkg/database"
	"pilotopos/pkg/jwt"
	"pilotopos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()
	zl.Info("starting", cfg.LogFields()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Setup Database
	db, err := database.Connect(cfg.Database())
	if err != nil {
		zl.Fatal("connect database", zap.Error(err))
	}
	tenant := cfg.Tenant()
	if err := db.Migrate(ctx, tenant, model.All()...); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer, cfg.ServiceName)

	// 3. Setup WebSocket Hub
	hub := ws.NewHub(zl.Named("ws"), m)
	go hub.Run(ctx)

	// 4. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo()
	supplierRepo := repository.NewSupplierRepo()
	saleRepo := repository.NewSaleRepo()
	userRepo := repository.NewUserRepo()

	var mirror service.Mirror
	if cfg.ExportEnabled {
		mirror = export.NewMirror(cfg.ExportDir(), db, productRepo, saleRepo, zl.Named("export"), m)
		mirror.RefreshQuietly(ctx, tenant)
	}

	issuer := jwt.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour, cfg.ServiceName)

	catalogService := service.NewCatalogService(db, productRepo, supplierRepo, saleRepo, mirror, zl)
	cartService := service.NewCartService(db, productRepo)
	saleService := service.NewSaleService(db, productRepo, saleRepo, mirror, hub, m, cfg.Location(), zl)
	historyService := service.NewHistoryService(db, saleRepo, mirror, zl)
	authService := service.NewAuthService(db, userRepo, issuer, m, zl)

	if cfg.AdminPassword != "" {
		created, err := authService.EnsureAdmin(ctx, tenant, cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			zl.Fatal("seed admin", zap.Error(err))
		}
		zl.Info("admin account ready", zap.String("username", cfg.AdminUser), zap.Bool("created", created))
	}

	store := session.New(session.Config{
		Expiration:     cfg.SessionTTL,
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})
	sessions := handler.NewSessions(store)
	auth := middleware.NewAuth(store, authService)

	router := &handler.Router{
		Auth:    auth,
		Sale:    handler.NewSaleHandler(sessions, cartService, saleService, catalogService),
		Catalog: handler.NewCatalogHandler(catalogService),
		History: handler.NewHistoryHandler(sessions, historyService),
		Login:   handler.NewAuthHandler(sessions, auth, authService),
		WS:      handler.NewWSHandler(hub, zl),
		DB:      db,
		Metrics: adaptor.HTTPHandler(promhttp.Handler()),
	}

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "PilotoPOS",
		ErrorHandler: handler.ErrorHandler,
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.Middleware(zl))
	app.Use(m.Middleware())
	app.Use(middleware.WithTenant(tenant))

	// 6. Routes
	router.Mount(app)

	// 7. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Panic("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		zl.Error("close database", zap.Error(err))
	}
	zl.Info("server exited")
}
