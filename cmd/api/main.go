package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "portal/api/swagger" // swagger docs
	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/documents"
	"portal/internal/handler"
	"portal/internal/middleware"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/internal/session"
	"portal/internal/storeclient"
	"portal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Opportunity Portal API
// @version         1.0
// @description     Portal service in front of the institutional opportunity store: drafts, lifecycle actions, program approvals and reference lookups.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := storeclient.NewClient(cfg.StoreURL, cfg.StoreTimeout, nil)

	// Sessions and intent logs live in postgres when it is configured
	var (
		sessionStorage session.Storage = session.NewMemoryStorage()
		intentRepo     repository.IntentLogRepository
	)
	if cfg.DatabaseDSN != "" {
		db, err := database.NewConnection(cfg.DatabaseDSN)
		if err != nil {
			log.Printf("Database connection failed, keeping sessions in memory: %v", err)
		} else {
			log.Println("Connected to PostgreSQL successfully.")
			sessionStorage = repository.NewSessionRepository(db)
			intentRepo = repository.NewIntentLogRepository(db)
		}
	}

	// Drafts and the reference cache live in redis when it is configured
	var (
		draftStore     repository.DraftStore = repository.NewMemoryDraftStore()
		referenceCache repository.ReferenceCache
	)
	memoryCache := repository.NewMemoryReferenceCache()
	referenceCache = memoryCache
	if cfg.RedisURL != "" {
		if client, err := connectRedis(ctx, cfg.RedisURL); err != nil {
			log.Printf("Redis unavailable, keeping drafts in memory: %v", err)
		} else {
			log.Println("Connected to Redis successfully.")
			defer client.Close()
			draftStore = repository.NewRedisDraftStore(client)
			referenceCache = repository.NewRedisReferenceCache(client, "portal:ref")
		}
	}

	var stager documents.Stager = documents.NewMemoryStager()
	if cfg.S3Bucket != "" {
		s3Stager, err := documents.NewS3Stager(ctx, documents.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
		if err != nil {
			log.Printf("S3 staging unavailable, staging documents in memory: %v", err)
		} else {
			stager = s3Stager
		}
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()

	// Repository -> Service -> Handler
	sessions := session.NewManager(sessionStorage)
	defer sessions.Teardown()
	authService := service.NewAuthService(store, sessions, nil)
	intentLogService := service.NewIntentLogService(intentRepo)
	lifecycleService := service.NewLifecycleService(store, intentLogService, wsHub)
	draftService := service.NewDraftService(draftStore, stager, lifecycleService, cfg.InstitutionalCompanyID, cfg.DraftTTL)
	referenceService := service.NewReferenceService(store, referenceCache, cfg.ReferenceTTL)

	lookupLimiter := middleware.NewClientRateLimiter(cfg.LookupRPS, cfg.LookupBurst)
	go lookupLimiter.RunCleanup(time.Minute, ctx.Done())
	go cleanCache(ctx, memoryCache, time.Minute)

	authHandler := handler.NewAuthHandler(authService)
	opportunityHandler := handler.NewOpportunityHandler(lifecycleService, draftService, authService)
	draftHandler := handler.NewDraftHandler(draftService, authService)
	referenceHandler := handler.NewReferenceHandler(referenceService, authService, lookupLimiter)
	intentLogHandler := handler.NewIntentLogHandler(intentLogService, authService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.SessionHeader}
	corsConfig.ExposeHeaders = []string{middleware.SessionHeader, "Refresh"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "sessions": wsHub.Len()})
	})

	wsDeps := websocket.Dependencies{
		Sessions:       authService,
		Opportunities:  lifecycleService,
		Drafts:         draftService,
		References:     referenceService,
		AllowedOrigins: cfg.CORSOrigins,
	}
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, wsDeps, c)
	})

	authHandler.RegisterRoutes(router.Group(""))
	opportunityHandler.RegisterRoutes(router.Group(""))
	draftHandler.RegisterRoutes(router.Group(""))
	referenceHandler.RegisterRoutes(router.Group(""))
	intentLogHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func cleanCache(ctx context.Context, cache *repository.MemoryReferenceCache, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cache.CleanExpired()
		case <-ctx.Done():
			return
		}
	}
}
