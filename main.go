package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/utils"

	"tuitionhub_backend/internals/configs"
	database "tuitionhub_backend/internals/databases"
	auditService "tuitionhub_backend/internals/features/audit/service"
	"tuitionhub_backend/internals/features/billing/gateway"
	invoiceService "tuitionhub_backend/internals/features/billing/invoices/service"
	paymentService "tuitionhub_backend/internals/features/billing/payments/service"
	receiptService "tuitionhub_backend/internals/features/billing/receipts/service"
	helper "tuitionhub_backend/internals/helpers"
	"tuitionhub_backend/internals/helpers/storage"
	"tuitionhub_backend/internals/helpers/worker"
	middlewares "tuitionhub_backend/internals/middlewares"
	routes "tuitionhub_backend/internals/route"
	routeDetails "tuitionhub_backend/internals/route/details"
)

func main() {
	configs.LoadEnv()

	cfg, err := configs.LoadBillingConfig()
	if err != nil {
		log.Fatalf("[ERROR] billing config: %v", err)
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		ErrorHandler:            helper.ErrorHandler,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// Request-ID + HTTP timeout guard (above statement_timeout in the DSN)
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUIDv4()
		}
		c.Set("X-Request-ID", id)
		c.Locals("requestid", id)
		ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})

	middlewares.SetupMiddlewares(app)

	// DB connect + pool + warm-up
	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	database.TunePool(db)
	if configs.GetEnvBool("AUTO_MIGRATE", true) {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("[ERROR] migrate: %v", err)
		}
	}
	database.WarmUpQueries(db)

	store, err := storage.NewFromConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[ERROR] receipt storage: %v", err)
	}
	gw, err := gateway.FromConfig(cfg)
	if err != nil {
		log.Fatalf("[ERROR] gateway: %v", err)
	}
	log.Printf("[INFO] gateway=%s storage=%s", gw.Name(), cfg.ReceiptStorage)

	pool := worker.New(cfg.WorkerConcurrency, 2*time.Minute)
	audit := auditService.NewRecorder(db, pool)
	receipts := receiptService.NewGenerator(db, store, pool)
	reconciler := paymentService.NewReconciler(db, gw, receipts, audit)
	feePlans := invoiceService.NewFeePlanService(db, audit)

	sweepCron, err := receiptService.StartSweepCron(receipts, cfg.ReceiptSweepCron, cfg.ReceiptSweepGrace)
	if err != nil {
		log.Fatalf("[ERROR] receipt sweep cron: %v", err)
	}
	feeCron, err := invoiceService.StartFeePlanCron(feePlans, cfg.FeePlanCron)
	if err != nil {
		log.Fatalf("[ERROR] fee plan cron: %v", err)
	}

	routes.SetupRoutes(app, routeDetails.BillingDeps{
		DB:         db,
		Reconciler: reconciler,
		Receipts:   receipts,
		FeePlans:   feePlans,
		Audit:      audit,
	}, configs.JWTSecret)

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := configs.GetEnv("PORT", "3000")

	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: stop intake, drain crons and jobs, then close the pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")

	_ = app.ShutdownWithTimeout(10 * time.Second)
	<-sweepCron.Stop().Done()
	<-feeCron.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		log.Printf("[WARN] worker pool: %v", err)
	}
	database.Close(db)
}
