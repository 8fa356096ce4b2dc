package main

import (
	"log"
	"os"
	"time"
	"uolink/internal/db"
	"uolink/internal/handlers"
	"uolink/internal/middleware"
	"uolink/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	// Services
	indexes := services.NewIndexService(db.DB)
	trending := services.NewTrendingService(db.DB)
	trending.StartScheduledSweep()
	reputation := services.NewReputationService(db.DB)
	votes := services.NewVoteService(db.DB, indexes, trending, reputation)

	var blobs services.BlobDeleter
	if bs := services.NewBlobStoreFromEnv(); bs != nil {
		blobs = bs
	}
	deletion := services.NewDeletionService(db.DB, indexes, blobs)

	// 周期对账：计数器漂移自动回填（可通过 REPAIR_INTERVAL 调整，0 关闭）
	repairInterval := 6 * time.Hour
	if v := os.Getenv("REPAIR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid REPAIR_INTERVAL: %v", err)
		}
		repairInterval = d
	}
	if repairInterval > 0 {
		services.NewRepairService(db.DB, indexes).StartScheduled(repairInterval)
	}

	// Initialize Gin
	r := gin.Default()

	// CORS
	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*" // Default to allow all for local dev
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))

	// Middleware
	r.Use(middleware.LoadUser())
	limiter := middleware.NewIPRateLimiter(rate.Limit(5), 10)

	// Handlers
	itemHandler := handlers.NewItemHandler(deletion, trending)
	voteHandler := handlers.NewVoteHandler(votes)
	saveHandler := handlers.NewSaveHandler(votes)
	indexHandler := handlers.NewIndexHandler(indexes)
	commentHandler := handlers.NewCommentHandler(trending)

	api := r.Group("/api")

	// Public Routes
	api.GET("/items", itemHandler.List)
	api.GET("/items/:pid", itemHandler.Get)
	api.GET("/items/:pid/comments", commentHandler.ListByItem)

	// Protected Routes
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/items", itemHandler.Create)
		authorized.PATCH("/items/:pid", itemHandler.Patch)
		authorized.DELETE("/items/:pid", itemHandler.Delete)

		authorized.POST("/items/:pid/vote", middleware.RateLimit(limiter), voteHandler.Cast)
		authorized.POST("/items/:pid/save", middleware.RateLimit(limiter), saveHandler.Toggle)
		authorized.POST("/items/:pid/report", voteHandler.Report)
		authorized.POST("/items/:pid/comments", commentHandler.Create)

		authorized.GET("/me/index", indexHandler.Me)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("UoLink engine starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
