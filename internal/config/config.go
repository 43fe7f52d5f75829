package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	DB        DatabaseConfig   `json:"db"`
	LogConfig logger.LogConfig `json:"log_config"`
	AI        AIConfig         `json:"ai"`
	Router    RouterConfig     `json:"router"`
	CORS      []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	DSN      string `json:"dsn"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Chat      ProviderConfig   `json:"chat"`
	Embed     ProviderConfig   `json:"embed"`
	Fallbacks []ProviderConfig `json:"chat_fallbacks"`
	// Timeout, in seconds, applied to each model call.
	Timeout int `json:"timeout"`
}

type RouterConfig struct {
	// Mode selects the orchestrator: "pipeline" runs the fixed
	// lookup/rank/select/write sequence, "agent" lets the chat model
	// decide whether to invoke the assignment tool at all.
	Mode string `json:"mode"`
	// Threshold is a pointer so an explicit 0 ("accept everything") is
	// distinguishable from an absent field.
	Threshold *float64 `json:"threshold"`
	TopK      int      `json:"top_k"`
	// In-process embedding cache in front of the db cache.
	EmbedCacheSize   int `json:"embed_cache_size"`
	EmbedCacheTTLMin int `json:"embed_cache_ttl_minutes"`
	// Cron spec for the department embedding warm job.
	WarmCron        string `json:"warm_cron"`
	CacheMaxAgeDays int    `json:"cache_max_age_days"`
	// Minimum interval between department imports from one client.
	ImportRateLimitSeconds int `json:"import_rate_limit_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DB.DSN == "" && cfg.DB.Host == "" {
		return nil, fmt.Errorf("db.host or db.dsn is required")
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.AI.Chat.Provider == "" {
		return nil, fmt.Errorf("ai.chat.provider is required")
	}
	if cfg.AI.Chat.Model == "" {
		return nil, fmt.Errorf("ai.chat.model is required")
	}
	if cfg.AI.Embed.Provider == "" {
		return nil, fmt.Errorf("ai.embed.provider is required")
	}
	if cfg.AI.Embed.Model == "" {
		return nil, fmt.Errorf("ai.embed.model is required")
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	switch cfg.Router.Mode {
	case "":
		cfg.Router.Mode = "pipeline"
	case "pipeline", "agent":
	default:
		return nil, fmt.Errorf("router.mode must be pipeline or agent")
	}
	if cfg.Router.Threshold == nil {
		def := 0.7
		cfg.Router.Threshold = &def
	}
	if *cfg.Router.Threshold < 0 || *cfg.Router.Threshold > 1 {
		return nil, fmt.Errorf("router.threshold must be in [0,1]")
	}
	if cfg.Router.TopK <= 0 {
		cfg.Router.TopK = 5
	}
	if cfg.Router.EmbedCacheSize == 0 {
		cfg.Router.EmbedCacheSize = 4096
	}
	if cfg.Router.EmbedCacheTTLMin == 0 {
		cfg.Router.EmbedCacheTTLMin = 120
	}
	if cfg.Router.CacheMaxAgeDays == 0 {
		cfg.Router.CacheMaxAgeDays = 30
	}
	return &cfg, nil
}
