package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"skillbridge/recommender/internal/config"
	"skillbridge/recommender/internal/handlers"
	"skillbridge/recommender/internal/repositories"
	"skillbridge/recommender/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	runRepo := repositories.NewRunRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	ingestService := services.NewIngestService(cfg.Upload.AllowedExtensions, cfg.Upload.MaxFileSize)
	gateway := services.NewRecommenderGateway(cfg.Recommender.BaseURL, cfg.Recommender.Timeout)
	profileClient := services.NewProfileClient(cfg.Profile.BaseURL, cfg.Profile.ServiceToken, cfg.Profile.Timeout)
	log.Println("✅ Services initialized successfully")

	// Persistence bridge: primary backend upload with an optional
	// object-store fallback.
	var bridge services.PersistenceBridge
	if cfg.Upload.PersistResume {
		primary := services.NewBackendUploader(cfg.Profile.BaseURL, cfg.Profile.ServiceToken, cfg.Profile.Timeout)

		var fallback services.ResumeUploader
		if cfg.ObjectStore.Configured() {
			store, err := services.NewObjectStore(cfg.ObjectStore)
			if err != nil {
				log.Fatalf("❌ Failed to initialize object store: %v", err)
			}
			fallback = services.NewStoreUploader(store)
			log.Println("✅ Object store fallback configured")
		} else {
			log.Println("⚠️  No object store credentials; fallback upload path disabled")
		}

		bridge = services.NewPersistenceBridge(primary, fallback, profileClient)
	} else {
		log.Println("⚠️  Resume persistence disabled by configuration")
	}

	// Optional learning-plan advisor
	var advisor services.AdvisorService
	if cfg.Gemini.APIKey != "" {
		advisor, err = services.NewAdvisorService(cfg.Gemini.APIKey)
		if err != nil {
			log.Fatalf("❌ Failed to initialize advisor: %v", err)
		}
		log.Println("✅ Learning-plan advisor initialized")
	}

	// Initialize orchestrator
	orchestrator := services.NewOrchestrator(gateway, bridge, profileClient, advisor, runRepo)
	log.Println("✅ Orchestrator initialized")

	// Initialize and start worker
	worker := services.NewWorker(orchestrator, cfg.Worker.Concurrency)
	worker.Start()
	log.Println("✅ Worker started successfully")

	// Initialize handlers
	resumeHandler := handlers.NewResumeHandler(ingestService, orchestrator, worker)
	recommendationHandler := handlers.NewRecommendationHandler(orchestrator, runRepo)
	titlesHandler := handlers.NewTitlesHandler(orchestrator)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SkillBridge Recommender API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Upload.MaxFileSize) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/resume", resumeHandler.HandleUpload)
	api.Get("/runs/:id", recommendationHandler.HandleGetRun)
	api.Get("/recommendations", recommendationHandler.HandleSnapshot)
	api.Post("/recommendations/clear", recommendationHandler.HandleClear)
	api.Get("/job-titles", titlesHandler.HandleListTitles)
	api.Post("/job-titles/refresh", titlesHandler.HandleRefreshTitles)
	api.Post("/job-titles/techstack", titlesHandler.HandleTechStack)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "SkillBridge Recommender API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/resume",
				"GET /api/v1/runs/:id",
				"GET /api/v1/recommendations",
				"POST /api/v1/recommendations/clear",
				"GET /api/v1/job-titles",
				"POST /api/v1/job-titles/techstack",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
