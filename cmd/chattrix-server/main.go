package main

import (
	"context"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/ai"
	"github.com/chattrix/chattrix/internal/chat"
	"github.com/chattrix/chattrix/internal/config"
	"github.com/chattrix/chattrix/internal/history"
	"github.com/chattrix/chattrix/internal/httpapi"
	"github.com/chattrix/chattrix/internal/kv"
	"github.com/chattrix/chattrix/internal/share"
	"github.com/chattrix/chattrix/internal/store/rabbitmq"
)

func newKVStore(cfg config.Config, logger *zap.Logger) kv.Store {
	switch strings.ToLower(cfg.StoreBackend) {
	case "memory":
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

func newRegistry(cfg config.Config) *ai.Registry {
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
	return reg
}

func newMirror(cfg config.Config, logger *zap.Logger) *history.Mirror {
	if cfg.HistoryDSN == "" {
		return nil
	}
	repo, err := history.Open(cfg.HistoryDSN)
	if err != nil {
		logger.Warn("history backend unavailable, continuing without it", zap.Error(err))
		return nil
	}
	return history.NewMirror(repo, logger)
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	kvStore := newKVStore(cfg, logger)
	store := chat.NewStore(kvStore, logger)
	svc := chat.NewService(store, newRegistry(cfg), cfg.AIProvider, "", cfg.CompletionTimeout, newMirror(cfg, logger), logger)
	shareSvc := share.NewService(kvStore, logger)

	var pub *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		pub, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.Warn("job queue unavailable, async jobs disabled", zap.Error(err))
			pub = nil
		} else {
			defer pub.Close()
		}
	}

	r := httpapi.NewRouter(cfg, svc, shareSvc, pub, logger)

	logger.Info("server starting", zap.String("addr", cfg.ListenAddr))
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
