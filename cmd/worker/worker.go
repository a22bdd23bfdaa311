package main

import (
	"context"
	"log"

	"notevault-backend/internal/ai"
	"notevault-backend/internal/config"
	"notevault-backend/internal/logger"
	"notevault-backend/internal/queue"
	"notevault-backend/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize Gemini client
	geminiClient, err := ai.NewGeminiClient(cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	db := mongoClient.Database(cfg.DBName)
	store := services.NewMongoNoteStore(db)
	enrichment := services.NewEnrichmentService(cfg, store, geminiClient)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(enrichment)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskEnrichNote, processor.HandleEnrichNote)

	logger.Info("Starting worker", "concurrency", 10, "redis", cfg.RedisURL)
	if err := server.Run(mux); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}
