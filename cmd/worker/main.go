package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/ai"
	"github.com/chattrix/chattrix/internal/chat"
	"github.com/chattrix/chattrix/internal/config"
	"github.com/chattrix/chattrix/internal/history"
	"github.com/chattrix/chattrix/internal/kv"
	"github.com/chattrix/chattrix/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func newKVStore(cfg config.Config, logger *zap.Logger) kv.Store {
	switch strings.ToLower(cfg.StoreBackend) {
	case "memory":
		// in-memory makes no sense across processes, but keep the
		// worker startable for local experiments
		return kv.NewMemoryStore()
	case "redis":
		return kv.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "chattrix:")
	case "", "file":
		store, err := kv.NewFileStore(cfg.StorePath)
		if err != nil {
			logger.Fatal("open file store", zap.String("path", cfg.StorePath), zap.Error(err))
		}
		return store
	default:
		logger.Fatal("unknown store backend", zap.String("backend", cfg.StoreBackend))
		return nil
	}
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	reg := ai.NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.GeminiModel
		}
		return ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, m), nil
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	var mirror *history.Mirror
	if cfg.HistoryDSN != "" {
		if repo, err := history.Open(cfg.HistoryDSN); err != nil {
			logger.Warn("history backend unavailable, continuing without it", zap.Error(err))
		} else {
			mirror = history.NewMirror(repo, logger)
		}
	}

	store := chat.NewStore(newKVStore(cfg, logger), logger)
	svc := chat.NewService(store, reg, cfg.AIProvider, "", cfg.CompletionTimeout, mirror, logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.Fatal("rabbit dial", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("rabbit channel", zap.Error(err))
	}
	defer ch.Close()

	top := rabbitmq.NewTopology(cfg.RabbitQueue)
	if err := top.Declare(ch); err != nil {
		logger.Fatal("declare queues", zap.Error(err))
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		logger.Fatal("qos", zap.Error(err))
	}

	msgs, err := ch.Consume(top.Main, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started",
		zap.String("queue", cfg.RabbitQueue),
		zap.Int("concurrency", concurrency),
	)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.JobMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					logger.Warn("bad message", zap.Int("worker", workerID), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := svc.RunJob(ctx, m.JobID); err != nil {
					logger.Warn("job failed",
						zap.Int("worker", workerID),
						zap.String("job", m.JobID),
						zap.String("session", m.SessionID),
						zap.Duration("cost", time.Since(start)),
						zap.Error(err),
					)
					_ = d.Nack(false, false)
					continue
				}

				logger.Info("job done",
					zap.Int("worker", workerID),
					zap.String("job", m.JobID),
					zap.Duration("cost", time.Since(start)),
				)
				if err := d.Ack(false); err != nil {
					logger.Warn("ack failed", zap.String("job", m.JobID), zap.Error(err))
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, open := <-msgs:
			if !open {
				logger.Warn("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
