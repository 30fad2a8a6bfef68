package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"helpdesk-app/internal/config"
	"helpdesk-app/internal/handler"
	"helpdesk-app/internal/repository"
	"helpdesk-app/internal/services"
	"helpdesk-app/internal/utils"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Mongo connection failed:", err)
	}
	db := mongoClient.Database(cfg.MongoDB)

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})

	// Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis connection failed:", err)
	}

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis connection...")
		return redisClient.Close()
	})

	storage, err := utils.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		log.Fatal("Upload directory init failed:", err)
	}

	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, 72*time.Hour)
	notifier := services.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	authService := services.NewAuthService(userRepo, jwtUtil, redisClient)
	userService := services.NewUserService(userRepo, ticketRepo)
	categoryService := services.NewCategoryService(categoryRepo, ticketRepo, redisClient)
	ticketService := services.NewTicketService(ticketRepo, categoryRepo, userRepo, notifier)
	dashboardService := services.NewDashboardService(ticketRepo, userRepo, categoryRepo)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	ticketHandler := handler.NewTicketHandler(ticketService, storage)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := utils.AuthMiddleware(jwtUtil, redisClient, authService.IsActive)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authMiddleware, authHandler.Logout)
			auth.GET("/profile", authMiddleware, authHandler.GetProfile)
			auth.PUT("/profile", authMiddleware, authHandler.UpdateProfile)
			auth.PUT("/password", authMiddleware, authHandler.ChangePassword)
		}

		tickets := api.Group("/tickets", authMiddleware)
		{
			tickets.POST("/", ticketHandler.Create)
			tickets.GET("/", ticketHandler.List)
			tickets.GET("/:id", ticketHandler.Get)
			tickets.PUT("/:id", ticketHandler.Update)
			tickets.POST("/:id/comments", ticketHandler.AddComment)
			tickets.POST("/:id/vote", ticketHandler.Vote)

			adminTickets := tickets.Group("/")
			adminTickets.Use(utils.RequireRoles("admin"))
			{
				adminTickets.DELETE("/:id", ticketHandler.Delete)
			}
		}

		categories := api.Group("/categories", authMiddleware)
		{
			categories.GET("/", categoryHandler.List)

			adminCategories := categories.Group("/")
			adminCategories.Use(utils.RequireRoles("admin"))
			{
				adminCategories.POST("/", categoryHandler.Create)
				adminCategories.PUT("/:id", categoryHandler.Update)
				adminCategories.DELETE("/:id", categoryHandler.Delete)
			}
		}

		users := api.Group("/users", authMiddleware, utils.RequireRoles("admin"))
		{
			users.GET("/", userHandler.List)
			users.POST("/", userHandler.Create)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		dashboard := api.Group("/dashboard", authMiddleware, utils.RequireRoles("admin"))
		{
			dashboard.GET("/stats", dashboardHandler.GetStats)
		}
	}

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Println("Helpdesk API running on port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Registered last so it runs first: the server drains before the stores
	// behind it are closed.
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	if err := shutdownManager.Wait(15 * time.Second); err != nil {
		log.Printf("[SHUTDOWN] Completed with errors: %v", err)
	}
}
