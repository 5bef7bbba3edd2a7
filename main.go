// File: parkwise/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkwise/config"
	"parkwise/cron"
	"parkwise/database"
	chatRepo "parkwise/database/repository/chat"
	"parkwise/handlers"
	"parkwise/middleware"
	"parkwise/routes"
	"parkwise/services/booking"
	"parkwise/services/intelligence"
	"parkwise/services/recorder"
	"parkwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	// Persistence: the durable store, optionally fronted by a Redis cache
	// for hot thread state.
	var store chatRepo.Persistence
	switch config.AppConfig.PersistenceBackend {
	case "mongo":
		database.InitDB()
		store = chatRepo.NewMongoStore()
	default:
		store = chatRepo.NewInMemoryStore()
	}

	var asynqClient *asynq.Client
	if config.AppConfig.RedisAddr != "" {
		utils.InitCache()
		ttl := time.Duration(config.AppConfig.ThreadStateTTLMin) * time.Minute
		store = chatRepo.NewThreadCacheStore(store, utils.GetCacheClient(), ttl)

		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		})
		defer asynqClient.Close()

		cron.InitApprovalWorker(store)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// services.
	infoService := intelligence.NewInfoService(store,
		config.AppConfig.WorkingHours,
		config.AppConfig.Pricing,
		config.AppConfig.TotalSpots,
	)

	engine := &booking.Engine{
		Store:                 store,
		Info:                  infoService,
		RestartRequiresCancel: config.AppConfig.RestartRequiresCancel,
	}
	if rec := recorder.NewHTTPRecorder(config.AppConfig.RecorderEndpoint, config.AppConfig.RecorderAPIToken); rec != nil {
		engine.Recorder = rec
	}

	chatHandler := handlers.NewChatHandler(engine, store, asynqClient, logger)
	adminHandler := handlers.NewAdminHandler(store, infoService, logger)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		ChatMessageHandler: chatHandler.MessageHandler,
		ChatStatusHandler:  chatHandler.StatusHandler,

		AdminListPendingHandler: adminHandler.ListPendingHandler,
		AdminDecisionHandler:    adminHandler.DecisionHandler,
		AdminGetDecisionHandler: adminHandler.GetDecisionHandler,
		AdminBoardHandler:       adminHandler.BoardHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
