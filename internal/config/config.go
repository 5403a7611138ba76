package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	LLM       LLMConfig
	Index     IndexConfig
	Search    SearchConfig
	Retrieval RetrievalConfig
	Prompt    PromptConfig
	Memory    MemoryConfig
	Timeouts  TimeoutConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig enables the asynchronous write-back path when URL is set.
type NATSConfig struct {
	URL string
}

type LLMConfig struct {
	Provider        string // openai, ollama, gemini
	APIKey          string
	BaseURL         string
	ChatModel       string
	EmbeddingModel  string
	OllamaHost      string
	Temperature     float32
	MaxAnswerTokens int
}

type IndexConfig struct {
	Backend   string // postgres, memory
	Dimension    int
	Table        string
	CompanyTable string
}

type SearchConfig struct {
	SerperAPIKey string
	Endpoint     string
	NumResults   int
	CacheTTL     time.Duration
}

type RetrievalConfig struct {
	TopK       int
	Threshold  float64
	MaxQueries int
}

type PromptConfig struct {
	MaxTokens int
	Encoding  string
}

type MemoryConfig struct {
	Backend       string // redis, memory
	Capacity      int
	SummaryTokens int
	TTL           time.Duration
}

type TimeoutConfig struct {
	Embed      time.Duration
	Completion time.Duration
	Search     time.Duration
}

type RateLimitConfig struct {
	ChatRequests  int
	WindowSeconds int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Environment variables override .env
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		LLM: LLMConfig{
			Provider:        strings.ToLower(k.String("llm.provider")),
			APIKey:          k.String("llm.api.key"),
			BaseURL:         k.String("llm.base.url"),
			ChatModel:       k.String("llm.chat.model"),
			EmbeddingModel:  k.String("llm.embedding.model"),
			OllamaHost:      k.String("ollama.host"),
			Temperature:     float32(k.Float64("llm.temperature")),
			MaxAnswerTokens: k.Int("llm.max.answer.tokens"),
		},
		Index: IndexConfig{
			Backend:   strings.ToLower(k.String("index.backend")),
			Dimension: k.Int("embedding.dimension"),
			Table:     k.String("index.table"),

			CompanyTable: k.String("index.company.table"),
		},
		Search: SearchConfig{
			SerperAPIKey: k.String("serper.api.key"),
			Endpoint:     k.String("search.endpoint"),
			NumResults:   k.Int("search.num.results"),
		},
		Retrieval: RetrievalConfig{
			TopK:       k.Int("retrieval.top.k"),
			Threshold:  k.Float64("retrieval.threshold"),
			MaxQueries: k.Int("retrieval.max.queries"),
		},
		Prompt: PromptConfig{
			MaxTokens: k.Int("prompt.max.tokens"),
			Encoding:  k.String("prompt.encoding"),
		},
		Memory: MemoryConfig{
			Backend:       strings.ToLower(k.String("memory.backend")),
			Capacity:      k.Int("memory.capacity"),
			SummaryTokens: k.Int("memory.summary.tokens"),
		},
		RateLimit: RateLimitConfig{
			ChatRequests:  k.Int("ratelimit.chat.requests"),
			WindowSeconds: k.Int("ratelimit.window.seconds"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	applyDefaults(cfg)

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"search.cache.ttl", "10m", &cfg.Search.CacheTTL},
		{"memory.ttl", "24h", &cfg.Memory.TTL},
		{"timeout.embed", "10s", &cfg.Timeouts.Embed},
		{"timeout.completion", "60s", &cfg.Timeouts.Completion},
		{"timeout.search", "10s", &cfg.Timeouts.Search},
	}
	for _, d := range durations {
		raw := k.String(d.key)
		if raw == "" {
			raw = d.def
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
		*d.dest = v
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "jiwoo"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "jiwoo"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.ChatModel == "" {
		switch cfg.LLM.Provider {
		case "ollama":
			cfg.LLM.ChatModel = "llama3.2"
		case "gemini":
			cfg.LLM.ChatModel = "gemini-1.5-flash"
		default:
			cfg.LLM.ChatModel = "gpt-4o-mini"
		}
	}
	if cfg.LLM.EmbeddingModel == "" {
		switch cfg.LLM.Provider {
		case "ollama":
			cfg.LLM.EmbeddingModel = "nomic-embed-text"
		case "gemini":
			cfg.LLM.EmbeddingModel = "text-embedding-004"
		default:
			cfg.LLM.EmbeddingModel = "text-embedding-3-small"
		}
	}
	if cfg.LLM.OllamaHost == "" {
		cfg.LLM.OllamaHost = "http://localhost:11434"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxAnswerTokens == 0 {
		cfg.LLM.MaxAnswerTokens = 1024
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "postgres"
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = 768
	}
	if cfg.Index.Table == "" {
		cfg.Index.Table = "search_records"
	}
	if cfg.Index.CompanyTable == "" {
		cfg.Index.CompanyTable = "company_records"
	}
	if cfg.Search.Endpoint == "" {
		cfg.Search.Endpoint = "https://google.serper.dev/search"
	}
	if cfg.Search.NumResults == 0 {
		cfg.Search.NumResults = 10
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Threshold == 0 {
		cfg.Retrieval.Threshold = 0.4
	}
	if cfg.Retrieval.MaxQueries == 0 {
		cfg.Retrieval.MaxQueries = 5
	}
	if cfg.Prompt.MaxTokens == 0 {
		cfg.Prompt.MaxTokens = 14000
	}
	if cfg.Prompt.Encoding == "" {
		cfg.Prompt.Encoding = "cl100k_base"
	}
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "redis"
	}
	if cfg.Memory.Capacity == 0 {
		cfg.Memory.Capacity = 10
	}
	if cfg.Memory.SummaryTokens == 0 {
		cfg.Memory.SummaryTokens = 500
	}
	if cfg.RateLimit.ChatRequests == 0 {
		cfg.RateLimit.ChatRequests = 30
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
