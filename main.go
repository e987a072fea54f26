package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"segment-engine/config"
	"segment-engine/handlers"
	"segment-engine/middleware"
	"segment-engine/models"
	"segment-engine/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	// Initialize structured logger
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(logHandler))

	// Load configuration
	cfg := config.LoadConfig()
	handlers.Init(cfg)

	// Initialize MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := services.InitMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer db.Disconnect(ctx)

	// Initialize services
	services.InitServices(db, cfg.DatabaseName)

	// Rebuild the in-memory campaign log from storage
	if err := services.LoadCampaignLog(ctx); err != nil {
		slog.Error("Failed to load campaign log", "error", err)
		os.Exit(1)
	}

	// Initialize snapshot cache (optional, disabled when no address is set)
	if err := services.InitCache(cfg.RedisAddr, cfg.RedisPassword, cfg.SnapshotCacheTTL); err != nil {
		slog.Error("Failed to connect to Redis, snapshot caching disabled", "error", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("Request error", "error", err, "status", code)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:5173, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path}\n",
	}))

	// Auth routes (public)
	auth := app.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)
	auth.Post("/logout", handlers.Logout)

	// Protected API
	api := app.Group("/api", middleware.RequireAuth)

	// Data ingestion and lookup
	api.Post("/customers", middleware.RequireRole(models.RoleAdmin, models.RoleAnalyst), handlers.IngestData)
	api.Get("/customers", handlers.GetCustomers)
	api.Get("/customers/:id", handlers.GetCustomerProfile)
	api.Get("/sales/summary", handlers.GetSalesSummary)

	// Engine operations over inline payloads
	api.Post("/engine/metrics", handlers.ComputeMetrics)
	api.Post("/engine/classify", handlers.ClassifyCustomers)
	api.Post("/engine/segment-tree", handlers.BuildSegmentTree)
	api.Post("/engine/coverage", handlers.BuildCoverage)
	api.Get("/engine/snapshot", handlers.GetSnapshot)

	// Campaign log
	api.Post("/campaigns", middleware.RequireRole(models.RoleAdmin, models.RoleAnalyst), handlers.IngestCampaign)
	api.Get("/campaigns", handlers.GetCampaigns)

	// Similarity flags and suggestions
	api.Get("/similarity", handlers.GetSimilarity)
	api.Post("/similarity/resolve", middleware.RequireRole(models.RoleAdmin, models.RoleAnalyst), handlers.ResolveSimilarity)
	api.Get("/suggestions", handlers.GetSuggestions)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "segment-engine",
		})
	})

	slog.Info("Server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
