package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/config"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/handler"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/identity"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/middleware"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/repository"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/service"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/ws"
	"github.com/Dave-code-creater/chiropractor-sub000/migrations"
	"github.com/Dave-code-creater/chiropractor-sub000/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Clinic Messaging API
// @version         1.0
// @description     Healthcare clinic conversation & messaging backend with role-based access and long-poll message retrieval.

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting Clinic Messaging API [env=%s]", cfg.App.Env)

	// ==================== Logger ====================
	var logger *zap.Logger
	var err error
	if cfg.App.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// ==================== Database (PostgreSQL) ====================
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.App.Env == "production" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := db.AutoMigrate(
			&model.User{},
			&model.Patient{},
			&model.Doctor{},
			&model.Conversation{},
			&model.Message{},
			&model.MessageReceipt{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	// Identity resolution + authorization
	resolver := identity.NewResolver(userRepo)
	authorizer := service.NewAuthorizer(convRepo, resolver, logger)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, rdb, logger)
	convService := service.NewConversationService(convRepo, userRepo, msgRepo, resolver, authorizer, logger)
	msgService := service.NewMessageService(msgRepo, convRepo, userRepo, authorizer, logger)
	poller := service.NewPoller(msgRepo, authorizer, service.PollLimits{
		MaxTimeout: cfg.Poll.MaxTimeout,
		Cadence:    cfg.Poll.Cadence,
		MaxBatch:   cfg.Poll.MaxBatch,
	}, logger)

	// WebSocket hub (advisory broadcast path, Redis Pub/Sub for scaling)
	hub := ws.NewHub(rdb, logger, nil)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	convHandler := handler.NewConversationHandler(convService)
	msgHandler := handler.NewMessageHandler(msgService, poller, hub)
	wsHandler := handler.NewWSHandler(hub, msgService, jwtManager, logger)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger: static spec + UI
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	swaggerURL := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, swaggerURL))

	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "clinic-messaging-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, rdb))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/profile", authHandler.Profile)

			// Conversations
			protected.GET("/conversations", convHandler.List)
			protected.POST("/conversations", convHandler.Create)
			protected.GET("/conversations/:id", convHandler.Get)
			protected.PATCH("/conversations/:id/status", convHandler.UpdateStatus)
			protected.DELETE("/conversations/:id", convHandler.Purge)

			// Messages
			protected.POST("/conversations/:id/messages", msgHandler.Send)
			protected.GET("/conversations/:id/messages", msgHandler.History)
			protected.GET("/conversations/:id/messages/poll", msgHandler.Poll)
			protected.POST("/conversations/:id/read", msgHandler.MarkRead)
		}
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 Clinic Messaging API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Long-polls get up to the poll ceiling to drain before the hard stop.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Poll.MaxTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	hubCancel()
	log.Println("✅ Server exited gracefully")
}
