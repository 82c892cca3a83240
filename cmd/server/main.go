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

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/mkorchagin/product-catalog/internal/cache"
	"github.com/mkorchagin/product-catalog/internal/config"
	"github.com/mkorchagin/product-catalog/internal/es"
	"github.com/mkorchagin/product-catalog/internal/handlers"
	"github.com/mkorchagin/product-catalog/internal/logging"
	"github.com/mkorchagin/product-catalog/internal/mykafka"
	httpserver "github.com/mkorchagin/product-catalog/internal/transport/http"
)

const taskQueue = "default"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := os.MkdirAll(configuration.UPLOAD_DIR, 0o755); err != nil {
		log.Fatalf("upload dir error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	redisCache := cache.NewRedis(configuration.REDIS_ADDR)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(ctx); err != nil {
		log.Fatalf("redis connect error: %v", err)
	}
	cancel()

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: configuration.REDIS_ADDR}
	taskClient := asynq.NewClient(redisOpt)
	taskInspector := asynq.NewInspector(redisOpt)

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), logger)))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		DB: db,
		AuthHandler: &handlers.AuthHandler{
			DB:        db,
			JWTSecret: jwtSecret,
			Producer:  prod,
		},
		ProductHandler: &handlers.ProductHandler{
			DB:        db,
			Cache:     redisCache,
			Producer:  prod,
			ES:        esClient,
			Index:     "product",
			UploadDir: configuration.UPLOAD_DIR,
		},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: "product"},
		TaskHandler: &handlers.TaskHandler{
			Client:    taskClient,
			Inspector: taskInspector,
			Queue:     taskQueue,
		},
		JWTSecret: jwtSecret,
		UploadDir: configuration.UPLOAD_DIR,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", configuration.HTTP_ADDR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}
	if err := taskClient.Close(); err != nil {
		log.Printf("task client close error: %v", err)
	}
	if err := taskInspector.Close(); err != nil {
		log.Printf("task inspector close error: %v", err)
	}
	if err := redisCache.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	logger.Info("shutdown complete")
}
