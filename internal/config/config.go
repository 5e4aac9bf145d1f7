package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// Local key-value store. Backend is "file", "memory" or "redis".
	StoreBackend string `yaml:"store_backend"`
	StorePath    string `yaml:"store_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Remote history backend (optional durability layer). Empty DSN disables it.
	HistoryDSN string `yaml:"history_dsn"`

	// Completion provider
	AIProvider        string        `yaml:"ai_provider"`
	GeminiBaseURL     string        `yaml:"gemini_base_url"`
	GeminiAPIKey      string        `yaml:"gemini_api_key"`
	GeminiModel       string        `yaml:"gemini_model"`
	OllamaBaseURL     string        `yaml:"ollama_base_url"`
	OllamaModel       string        `yaml:"ollama_model"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`

	// rabbitMQ
	RabbitURL   string `yaml:"rabbit_url"`
	RabbitQueue string `yaml:"rabbit_queue"`

	MaxSessions int `yaml:"max_sessions"`
}

func defaults() Config {
	return Config{
		ListenAddr:        ":8080",
		StoreBackend:      "file",
		StorePath:         "chattrix-data",
		RedisAddr:         "127.0.0.1:6379",
		AIProvider:        "gemini",
		GeminiBaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		GeminiModel:       "gemini-2.0-flash-exp",
		OllamaBaseURL:     "http://localhost:11434",
		OllamaModel:       "llama3:latest",
		CompletionTimeout: 60 * time.Second,
		RabbitQueue:       "chattrix.jobs",
		MaxSessions:       50,
	}
}

// Load builds the config with precedence defaults -> yaml file -> environment.
func Load() Config {
	cfg := defaults()

	file := os.Getenv("CHATTRIX_CONFIG_FILE")
	if file == "" {
		file = "chattrix.yaml"
	}
	if data, err := os.ReadFile(file); err == nil {
		_ = yaml.Unmarshal(data, &cfg)
	}

	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setStr(&cfg.ListenAddr, "LISTEN_ADDR")
	setStr(&cfg.StoreBackend, "STORE_BACKEND")
	setStr(&cfg.StorePath, "STORE_PATH")
	setStr(&cfg.RedisAddr, "REDIS_ADDR")
	setStr(&cfg.RedisPassword, "REDIS_PASSWORD")
	setStr(&cfg.HistoryDSN, "HISTORY_DSN")
	setStr(&cfg.AIProvider, "AI_PROVIDER")
	setStr(&cfg.GeminiBaseURL, "GEMINI_BASE_URL")
	setStr(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setStr(&cfg.GeminiModel, "GEMINI_MODEL")
	setStr(&cfg.OllamaBaseURL, "OLLAMA_BASE_URL")
	setStr(&cfg.OllamaModel, "OLLAMA_MODEL")
	setStr(&cfg.RabbitURL, "RABBIT_URL")
	setStr(&cfg.RabbitQueue, "RABBIT_QUEUE")

	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}
	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSessions = n
		}
	}
	if v := os.Getenv("COMPLETION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CompletionTimeout = d
		}
	}
}
