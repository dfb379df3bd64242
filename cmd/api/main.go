package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/attempt-runtime/internal/config"
	"github.com/yourusername/attempt-runtime/internal/handler"
	"github.com/yourusername/attempt-runtime/internal/middleware"
	pgRepo "github.com/yourusername/attempt-runtime/internal/repository/postgres"
	redisRepo "github.com/yourusername/attempt-runtime/internal/repository/redis"
	"github.com/yourusername/attempt-runtime/internal/service/attemptruntime"
	"github.com/yourusername/attempt-runtime/internal/upstream"
	ws "github.com/yourusername/attempt-runtime/internal/websocket"
	"github.com/yourusername/attempt-runtime/pkg/auth"
	"github.com/yourusername/attempt-runtime/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}
	receiptRepo := pgRepo.NewReceiptRepo(db)

	// Клиент вышестоящего API платформы
	quizGateway := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout())

	// JWT сервис для проверки токенов платформы
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// WebSocket хаб для пуша тиков и событий попыток
	wsHub := ws.NewHub()
	go wsHub.Run()

	// Менеджер рантаймов попыток
	runtimeCfg := &attemptruntime.Config{
		TickInterval:   cfg.Runtime.TickInterval(),
		StateRetention: cfg.Runtime.StateRetention(),
		GuardRetention: cfg.Runtime.GuardRetention(),
		LeaseTTL:       cfg.Runtime.LeaseTTL(),
		PersistAnswers: cfg.Runtime.PersistAnswers,
	}
	runtimeManager := attemptruntime.NewManager(runtimeCfg, &attemptruntime.Dependencies{
		CacheRepo:   cacheRepo,
		ReceiptRepo: receiptRepo,
		QuizGateway: quizGateway,
		Notifier:    wsHub,
	})

	// Инициализируем обработчики
	attemptHandler := handler.NewAttemptHandler(runtimeManager)
	wsHandler := handler.NewWSHandler(wsHub, runtimeManager)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		attempts := api.Group("/attempts")
		attempts.Use(authMiddleware.RequireAuth())
		{
			attempts.POST("/enter", attemptHandler.Enter)

			attemptWithID := attempts.Group("/:id")
			attemptWithID.Use(middleware.ExtractIDParam("id", "attemptID"))
			{
				attemptWithID.GET("/state", attemptHandler.GetState)
				attemptWithID.GET("/page/:n", attemptHandler.GetPage)
				attemptWithID.POST("/goto", attemptHandler.GoTo)
				attemptWithID.POST("/next", attemptHandler.Next)
				attemptWithID.POST("/previous", attemptHandler.Previous)
				attemptWithID.PUT("/answers/:questionID",
					middleware.ExtractIDParam("questionID", "questionID"),
					attemptHandler.Answer)
				attemptWithID.POST("/submit", attemptHandler.Submit)
				attemptWithID.POST("/close", attemptHandler.Close)
				attemptWithID.GET("/ws", wsHandler.Subscribe)
			}
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
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

	// Останавливаем рантаймы: таймеры гаснут, лизинги освобождаются,
	// остатки времени остаются в Redis и переживают рестарт
	runtimeManager.Shutdown()
	wsHub.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
