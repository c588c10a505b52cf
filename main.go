package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/LovationAdmin/ledger-api/config"
	"github.com/LovationAdmin/ledger-api/handlers"
	"github.com/LovationAdmin/ledger-api/middleware"
	"github.com/LovationAdmin/ledger-api/routes"
	"github.com/LovationAdmin/ledger-api/services"
	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	store, closeStore := openStore()
	defer closeStore()

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	wsHandler := handlers.NewWSHandler()
	emailService := services.NewEmailService(os.Getenv("RESEND_API_KEY"), os.Getenv("RESEND_FROM"), frontendURL)

	checkService := services.NewCheckService(store, emailService, wsHandler)
	ledgerService := services.NewLedgerService(store, checkService, wsHandler)
	billService := services.NewBillService(store, checkService, wsHandler)
	budgetService := services.NewBudgetService(store, emailService)
	sweeper := services.NewSweeper(ledgerService, checkService, budgetService)

	h := handlers.NewHandler(ledgerService, billService, checkService, budgetService)

	router := gin.New()
	router.Use(gin.Recovery())

	allowedOrigins := []string{frontendURL}
	log.Printf("🌍 CORS: Allowing origins:")
	for _, origin := range allowedOrigins {
		log.Printf("   - %s", origin)
	}

	corsConfig := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.RequestLogger())

	limiter := middleware.NewRateLimiter(envInt("RATE_LIMIT_PER_MINUTE", 100), time.Minute)
	go scheduleLimiterCleanup(limiter)

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		protected.Use(limiter.Middleware())
		routes.Setup(protected, h, wsHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": version,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	go scheduleSweep(sweeper, envDuration("SWEEP_INTERVAL", 15*time.Minute))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	utils.LogStartup("ledger-api", version, port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// openStore picks the persistence backend from LEDGER_STORE.
func openStore() (services.Store, func()) {
	if os.Getenv("LEDGER_STORE") == "memory" {
		log.Println("⚠️ Using in-memory store, data is lost on restart")
		return services.NewMemoryStore(), func() {}
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	log.Println("✅ Database connected successfully")

	if err := config.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	return services.NewPostgresStore(db), func() { db.Close() }
}

func scheduleSweep(sweeper *services.Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	runSweep(sweeper)
	for range ticker.C {
		runSweep(sweeper)
	}
}

func runSweep(sweeper *services.Sweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := sweeper.Run(ctx); err != nil {
		log.Printf("❌ Sweep failed: %v", err)
	}
}

func scheduleLimiterCleanup(limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		limiter.Cleanup()
	}
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
