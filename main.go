package main

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"vaccine-tracker-server/internal/config"
	"vaccine-tracker-server/internal/logger"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/routes"
	"vaccine-tracker-server/internal/scheduling"
	"vaccine-tracker-server/internal/store"
)

func main() {
	// Load environment variables; a missing .env is fine outside development
	if err := godotenv.Load(); err != nil {
		logger.Log.WithError(err).Debug("no .env file loaded")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("error loading config")
	}
	logger.Init()

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		logger.Log.WithError(err).Fatal("error connecting to database")
	}

	// Seed the fixed doctor roster and vaccine catalogue
	if err := models.SeedReferenceData(db, cfg.DoctorSeedPassword); err != nil {
		logger.Log.WithError(err).Fatal("error seeding reference data")
	}

	st := buildStore(cfg, db)
	scheduler := scheduling.NewService(st, logger.WithField("component", "scheduling"), cfg.NextDoseOffsetMonths)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Set up routes - passing the store and scheduler to let routes.go create the handlers
	routes.SetupRoutes(router, db, st, scheduler, cfg)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.Log.WithField("port", cfg.Port).Info("server starting")
	if err := router.Run(serverAddr); err != nil {
		logger.Log.WithError(err).Fatal("failed to start server")
	}
}

// buildStore assembles the persistence stack: the relational store is
// authoritative; when Redis is enabled it becomes the local fallback cache
// behind the reconciling decorator. Demo mode serves everything from an
// in-process store seeded with the reference data.
func buildStore(cfg *config.Config, db *gorm.DB) store.Store {
	if cfg.DemoMode {
		return buildDemoStore(db)
	}

	primary := store.NewGorm(db)
	if !cfg.Redis.Enabled {
		return primary
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cache := store.NewCache(client)
	return store.NewFallback(primary, cache, logger.WithField("component", "store"))
}

// buildDemoStore mirrors the seeded roster and catalogue into a Memory store
// so the API can be exercised without touching the database again.
func buildDemoStore(db *gorm.DB) store.Store {
	ctx := context.Background()
	src := store.NewGorm(db)
	mem := store.NewMemory()

	doctors, err := src.ListDoctors(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("error loading doctor roster for demo store")
	}
	for i := range doctors {
		mem.PutDoctor(doctors[i])
	}

	vaccines, err := src.ListVaccines(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("error loading vaccine catalogue for demo store")
	}
	for i := range vaccines {
		if err := mem.CreateVaccine(ctx, &vaccines[i]); err != nil {
			logger.Log.WithError(err).Fatal("error seeding demo store")
		}
	}
	return mem
}
