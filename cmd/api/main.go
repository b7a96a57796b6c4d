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

	"github.com/yourusername/examsim-api/internal/config"
	"github.com/yourusername/examsim-api/internal/handler"
	"github.com/yourusername/examsim-api/internal/middleware"
	pgRepo "github.com/yourusername/examsim-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/examsim-api/internal/repository/redis"
	"github.com/yourusername/examsim-api/internal/service"
	"github.com/yourusername/examsim-api/pkg/auth"
	"github.com/yourusername/examsim-api/pkg/database"
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
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	itemRepo := pgRepo.NewItemRepo(db)
	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to create cache repository: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	examService := service.NewExamService(itemRepo, cacheRepo, cfg.Engine, cfg.Simulation)
	adaptiveService := service.NewAdaptiveService(itemRepo, cacheRepo, cfg.Engine, cfg.Adaptive)

	// Инициализируем обработчики
	examHandler := handler.NewExamHandler(examService)
	adaptiveHandler := handler.NewAdaptiveHandler(adaptiveService)
	itemHandler := handler.NewItemHandler(examService)

	// Rate limiting для сборки экзаменов и адаптивных сессий
	rateLimiter := middleware.NewRateLimiter(cacheRepo)
	buildLimit := rateLimiter.Limit(middleware.BuildRateLimitConfig(cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds))

	// Административные маршруты закрыты JWT с ролью admin
	adminTokens := auth.NewAdminTokens(cfg.Auth.AdminSecret)
	if !adminTokens.Enabled() {
		log.Printf("Warning: ADMIN_JWT_SECRET не задан, импорт банков недоступен")
	}
	adminMiddleware := middleware.NewAdminMiddleware(adminTokens)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	// В production (GIN_MODE=release): не доверяем прокси (защита от IP spoofing)
	if gin.Mode() == gin.ReleaseMode {
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
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8000", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Экзамены
		exams := api.Group("/exams")
		{
			exams.POST("", buildLimit, examHandler.BuildExam)
			exams.POST("/simulation", buildLimit, examHandler.BuildSimulation)

			examByID := exams.Group("/:id")
			examByID.Use(middleware.ExtractExamIDParam("id", "examID"))
			{
				examByID.GET("", examHandler.GetExam)
				examByID.POST("/grade", examHandler.GradeExam)
				examByID.GET("/export", examHandler.ExportExam)
			}
		}

		// Адаптивные сессии
		adaptive := api.Group("/adaptive")
		{
			adaptive.POST("", buildLimit, adaptiveHandler.Start)
			adaptive.POST("/:id/answer", middleware.ExtractUUIDParam("id", "sessionID"), adaptiveHandler.Answer)
		}

		// Банк вопросов
		items := api.Group("/items")
		{
			items.GET("/stats", itemHandler.GetPoolStats)
			items.GET("/:id", middleware.ExtractUintParam("id", "itemID"), itemHandler.GetItem)
		}

		// Загрузка банков
		admin := api.Group("/admin")
		admin.Use(adminMiddleware.RequireAdmin())
		{
			admin.POST("/items/import", itemHandler.ImportBank)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

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

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := database.GetSQLDB(db); err != nil {
		log.Printf("Error getting sql.DB: %v", err)
	} else if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Server exited properly")
}
