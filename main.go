package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"portfolio-rebalancer/advisor"
	"portfolio-rebalancer/config"
	"portfolio-rebalancer/database"
	"portfolio-rebalancer/handlers"
	"portfolio-rebalancer/jobs"
	"portfolio-rebalancer/middleware"
	"portfolio-rebalancer/models"
	"portfolio-rebalancer/pricing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on the environment")
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance: ", err)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&models.User{}, &models.Portfolio{}, &models.PerformanceSnapshot{}, &models.StockPrice{}); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}

	// Redis only backs the price cache and refresh tokens; run without it
	// if it is not reachable.
	rdb, err := config.InitRedis()
	if err != nil {
		log.Println("Redis unavailable, caching disabled:", err)
		rdb = nil
	}

	store := database.NewStore(db)
	prices := pricing.FromEnv(rdb, store)

	portfolioHandler := &handlers.PortfolioHandler{Store: store, Prices: prices}
	marketHandler := &handlers.MarketHandler{Prices: prices, Store: store, Cache: rdb}
	authHandler := &handlers.AuthHandler{DB: db, Rdb: rdb}

	var suggester advisor.Suggester
	if os.Getenv("GEMINI_API_KEY") != "" {
		gemini, err := advisor.NewGemini(context.Background())
		if err != nil {
			log.Fatal("Failed to init advisor: ", err)
		}
		suggester = gemini
	} else {
		suggester = advisor.NewStatic()
	}
	advisorHandler := &handlers.AdvisorHandler{Suggester: suggester}

	if spec := os.Getenv("REVALUE_CRON"); spec != "" {
		revaluer := jobs.NewRevaluer(store, prices)
		if err := revaluer.Start(spec); err != nil {
			log.Fatal("Failed to schedule revaluation: ", err)
		}
		defer revaluer.Stop()
	}

	router := gin.Default()
	router.Use(middleware.CORS())

	// Public routes
	router.POST("/signup", authHandler.Signup)
	router.POST("/login", authHandler.Login)

	// Rebalance API; authentication is optional and only binds ownership.
	api := router.Group("/", middleware.OptionalJWT())
	{
		api.POST("/rebalance", portfolioHandler.Rebalance)
		api.PUT("/portfolios/:id", portfolioHandler.UpdatePortfolio)
		api.GET("/portfolios", portfolioHandler.ListPortfolios)
		api.GET("/portfolios/:id/performance", portfolioHandler.GetPerformance)
		api.GET("/users/:user_id/portfolios", portfolioHandler.ListByUser)
		api.GET("/prices/:symbol", marketHandler.GetStockPrice)
		api.GET("/history/:symbol", marketHandler.GetHistoricalData)
		api.GET("/suggest_targets", advisorHandler.SuggestTargets)
	}

	// Protected routes
	auth := router.Group("/", middleware.JWTAuth())
	{
		auth.GET("/my/portfolios", portfolioHandler.ListMine)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	router.Run(":" + port)
}
