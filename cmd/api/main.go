package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/auth-api/internal/config"
	"github.com/yourusername/auth-api/internal/handler"
	"github.com/yourusername/auth-api/internal/middleware"
	"github.com/yourusername/auth-api/internal/provider"
	pgRepo "github.com/yourusername/auth-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/auth-api/internal/repository/redis"
	"github.com/yourusername/auth-api/internal/service"
	"github.com/yourusername/auth-api/pkg/auth"
	"github.com/yourusername/auth-api/pkg/auth/manager"
	"github.com/yourusername/auth-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Repositories
	userRepo := pgRepo.NewUserRepo(db)
	identityRepo := pgRepo.NewUserIdentityRepo(db)
	refreshTokenRepo, err := pgRepo.NewRefreshTokenRepo(db)
	if err != nil {
		log.Printf("Failed to initialize RefreshTokenRepo: %v", err)
		os.Exit(1)
	}
	cacheRepo := redisRepo.NewCacheRepo(redisClient)

	// Token services
	jwtService, err := auth.NewJWTService(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpiryMin)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpiryDays)*24*time.Hour,
	)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}
	tokenManager, err := manager.NewTokenManager(jwtService, refreshTokenRepo)
	if err != nil {
		log.Printf("Failed to initialize TokenManager: %v", err)
		os.Exit(1)
	}

	// OAuth providers: only the configured ones are registered.
	var providers []provider.Provider
	if cfg.OAuth.Google.Configured() {
		providers = append(providers, provider.NewGoogle(cfg.OAuth.Google))
	}
	if cfg.OAuth.Kakao.Configured() {
		providers = append(providers, provider.NewKakao(cfg.OAuth.Kakao))
	}
	if cfg.OAuth.Naver.Configured() {
		providers = append(providers, provider.NewNaver(cfg.OAuth.Naver))
	}
	registry := provider.NewRegistry(providers...)
	log.Printf("Registered OAuth providers: %s", strings.Join(registry.Names(), ", "))

	// Email
	var emailService service.EmailService
	if cfg.Email.ResendAPIKey != "" {
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.FromAddress, cfg.Email.FromName)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("Email is not configured, welcome emails are disabled")
		emailService = &service.NoopEmailService{}
	}

	// Services
	linker := service.NewIdentityLinker(userRepo, identityRepo)
	authService := service.NewAuthService(linker, tokenManager, jwtService, userRepo, identityRepo, emailService)

	// Handlers and middleware
	authHandler := handler.NewAuthHandler(
		authService,
		registry,
		cacheRepo,
		time.Duration(cfg.OAuth.StateExpirySec)*time.Second,
		cfg.Frontend.SuccessURL,
		cfg.Frontend.ErrorURL,
	)
	userHandler := handler.NewUserHandler(authService)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	isProduction := gin.Mode() == gin.ReleaseMode

	router := gin.Default()

	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Frontend.SuccessURL, "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/:provider/login", authHandler.Login)
			authGroup.GET("/:provider/callback", authHandler.Callback)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
		}

		userGroup := api.Group("/users")
		userGroup.Use(authMiddleware.RequireAuth())
		{
			userGroup.GET("/me", userHandler.Me)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
