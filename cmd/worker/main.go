package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"github.com/mkorchagin/product-catalog/internal/config"
	"github.com/mkorchagin/product-catalog/internal/logging"
	"github.com/mkorchagin/product-catalog/internal/tasks"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: configuration.REDIS_ADDR},
		asynq.Config{Concurrency: 4},
	)

	mux := asynq.NewServeMux()
	mux.Use(func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			return next.ProcessTask(logging.IntoContext(ctx, logger), t)
		})
	})
	mux.HandleFunc(tasks.TypeLongRunning, tasks.HandleLongRunningTask)

	logger.Info("task worker starting", "redis", configuration.REDIS_ADDR)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("task worker error: %v", err)
	}
}
