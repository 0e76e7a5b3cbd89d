package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"audit-trail-service/internal/config"
	"audit-trail-service/internal/db"
	"audit-trail-service/internal/metrics"
	"audit-trail-service/internal/publisher"
	"audit-trail-service/internal/repository"
	"audit-trail-service/internal/server"
	"audit-trail-service/internal/service"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func auditOptions(cfg config.Audit) service.Options {
	opts := service.DefaultOptions()
	opts.IgnoredAttributes = cfg.IgnoredAttributes
	opts.LogInsert = cfg.LogInsert
	opts.LogUpdate = cfg.LogUpdate
	opts.LogDelete = cfg.LogDelete
	opts.PersistValuesOnInsert = cfg.PersistValuesOnInsert
	opts.EmptyStringIsNull = cfg.EmptyStringIsNull
	opts.CaseSensitive = cfg.CaseSensitive
	if cfg.SystemActorID != 0 {
		id := cfg.SystemActorID
		opts.SystemActorID = &id
	}
	return opts
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Could not load configuration")
	}
	level, _ := cfg.Log.ParseLevel()
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to the database")
	}
	defer database.Close()
	log.Info("Successfully connected to the PostgreSQL database.")

	log.Info("Starting database migration...")
	if err := db.RunMigrations(database); err != nil {
		log.WithError(err).Fatal("Could not apply migration")
	}

	m := metrics.New()

	var entryPublisher service.EntryPublisher
	if cfg.Kafka.Enabled {
		p, err := publisher.NewAuditPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.DeliveryTimeout)
		if err != nil {
			log.WithError(err).Fatal("Could not create audit publisher")
		}
		defer p.Close()
		entryPublisher = p
	}

	// Create repositories
	auditEntries := repository.NewPostgresAuditEntryRepository(database)

	// Create services
	recorder := service.NewRecorder(auditEntries, auditOptions(cfg.Audit)).WithMetrics(m)
	auditService := service.NewAuditTrailService(auditEntries)
	productService := service.NewProductService(database, recorder, auditEntries, entryPublisher, m)
	categoryService := service.NewProductCategoryService(database, recorder, auditEntries, entryPublisher, m)

	// Create servers
	srv := server.NewServer(auditService, database)
	productSrv := server.NewProductServer(productService)
	categorySrv := server.NewProductCategoryServer(categoryService)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", srv.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	entries := api.Group("/audit-entries")
	entries.GET("", srv.SearchEntries)
	entries.GET("/stats", srv.EntryStats)
	entries.GET("/:id", srv.GetEntry)

	products := api.Group("/products")
	products.GET("", productSrv.ListProducts)
	products.POST("", productSrv.CreateProduct)
	products.GET("/slug/:slug", productSrv.GetProductBySlug)
	products.GET("/:id", productSrv.GetProductByID)
	products.PUT("/:id", productSrv.UpdateProduct)
	products.DELETE("/:id", productSrv.DeleteProduct)
	products.GET("/:id/audit-trail", productSrv.ProductAuditTrail)

	categories := api.Group("/categories")
	categories.GET("", categorySrv.ListCategories)
	categories.POST("", categorySrv.CreateCategory)
	categories.GET("/slug/:slug", categorySrv.GetCategoryBySlug)
	categories.GET("/:id", categorySrv.GetCategoryByID)
	categories.PUT("/:id", categorySrv.UpdateCategory)
	categories.DELETE("/:id", categorySrv.DeleteCategory)
	categories.GET("/:id/audit-trail", categorySrv.CategoryAuditTrail)

	go func() {
		log.WithField("port", cfg.HTTP.Port).Info("Audit trail service is starting with Echo")
		if err := e.Start(":" + cfg.HTTP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Echo server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Echo server shutdown failed")
	}
}
