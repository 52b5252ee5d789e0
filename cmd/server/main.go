package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitcoach/internal/config"
	"fitcoach/internal/database"
	"fitcoach/internal/handlers"
	"fitcoach/internal/jobs"
	"fitcoach/internal/llm"
	"fitcoach/internal/logging"
	"fitcoach/internal/middleware"
	"fitcoach/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting FitCoach Server...")

	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Connect to MongoDB
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Initialize(initCtx); err != nil {
		cancelInit()
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	cancelInit()
	log.Println("✅ MongoDB connected and indexes ensured")

	// Redis-backed engagement counters are optional; the chat path works
	// without them.
	var engagement *services.EngagementService
	if cfg.RedisURL != "" {
		engagement, err = services.NewEngagementService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, engagement counters disabled: %v", err)
			engagement = nil
		} else {
			log.Println("✅ Redis connected, engagement counters enabled")
		}
	} else {
		log.Println("⚠️  REDIS_URL not set, engagement counters disabled")
	}

	// Initialize metrics
	metrics := services.InitMetrics()

	// Model provider client
	if cfg.LLMAPIKey == "" {
		log.Println("⚠️  LLM_API_KEY not set, model calls will likely fail")
	}
	model := llm.NewClient(llm.Options{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
		MaxRPS:  cfg.LLMMaxRPS,
	})
	log.Printf("🤖 Model provider: %s (%s)", cfg.LLMBaseURL, cfg.LLMModel)

	// Initialize services
	userService := services.NewUserService(db)
	messageService := services.NewMessageService(db)
	chatService := services.NewChatService(userService, messageService, model, metrics, engagement, cfg.HistoryWindow, cfg.HistoryKeep)

	// Nightly retention sweep backs up the per-request trim
	retentionSweep := jobs.NewRetentionSweep(messageService, metrics, cfg.HistoryKeep)
	if err := retentionSweep.Start(); err != nil {
		log.Fatalf("❌ Failed to start retention sweep: %v", err)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "FitCoach v1.0",
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second, // a chat turn waits on one model call, up to its 60s deadline
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB is plenty for a chat message plus lifestyle data
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("fitcoach")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Rate limiting
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Chat=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.ChatMax)
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, engagement)
	chatHandler := handlers.NewChatHandler(chatService)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/chat", middleware.ChatRateLimiter(rateLimitConfig), chatHandler.Send)
	api.Get("/chat/history/:userId", chatHandler.History)

	log.Printf("💬 Chat endpoint: http://localhost:%s/api/chat", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Println("🕐 Background jobs: history retention sweep (daily 2 AM UTC)")

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		// Stop background jobs first so a running sweep finishes cleanly
		retentionSweep.Stop()

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}

		// Close external connections
		if engagement != nil {
			if err := engagement.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			log.Printf("⚠️ Error closing MongoDB: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
