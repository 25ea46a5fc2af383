package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Bot front-end configuration
	Bot BotConfig

	// Mirror session configuration
	Mirror MirrorConfig

	// Cache configuration
	Cache CacheConfig

	// Session / pending-request configuration
	Session SessionConfig

	// Suggestion LLM configuration (optional)
	Suggest SuggestConfig

	// Debug mode
	Debug bool
}

// BotConfig contains bot front-end configuration
type BotConfig struct {
	Token   string
	AdminID int64
}

// MirrorConfig contains mirror session configuration
type MirrorConfig struct {
	APIID       int
	APIHash     string
	SessionFile string
	TargetBot   string
	ProxyAddr   string
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	DBPath        string
	TTLDays       int
	SweepInterval time.Duration
}

// SessionConfig contains session and correlation configuration
type SessionConfig struct {
	IdleMinutes    int
	FreshnessSecs  int
	MaxPages       int
	PageDelaySecs  int
	HistoryMaxTurn int
}

// SuggestConfig contains suggestion LLM configuration
type SuggestConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Cache DB path
	cacheDBPath := os.Getenv("CACHE_DB_PATH")
	if cacheDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		cacheDBPath = filepath.Join(homeDir, ".search-mirror", "cache.db")
	}

	// Mirror session file
	sessionFile := os.Getenv("MIRROR_SESSION_FILE")
	if sessionFile == "" {
		homeDir, _ := os.UserHomeDir()
		sessionFile = filepath.Join(homeDir, ".search-mirror", "mirror.session")
	}

	targetBot := os.Getenv("TARGET_BOT")
	if targetBot == "" {
		targetBot = "openaiw_bot"
	}

	return &Config{
		Bot: BotConfig{
			Token:   os.Getenv("BOT_TOKEN"),
			AdminID: envInt64("ADMIN_ID", 0),
		},
		Mirror: MirrorConfig{
			APIID:       envInt("TG_API_ID", 0),
			APIHash:     os.Getenv("TG_API_HASH"),
			SessionFile: sessionFile,
			TargetBot:   targetBot,
			ProxyAddr:   os.Getenv("SOCKS5_PROXY"),
		},
		Cache: CacheConfig{
			DBPath:        cacheDBPath,
			TTLDays:       envInt("CACHE_TTL_DAYS", 30),
			SweepInterval: time.Duration(envInt("CACHE_SWEEP_MINUTES", 60)) * time.Minute,
		},
		Session: SessionConfig{
			IdleMinutes:    envInt("SESSION_IDLE_MINUTES", 30),
			FreshnessSecs:  envInt("PENDING_WINDOW_SECONDS", 10),
			MaxPages:       envInt("MAX_PAGES", 10),
			PageDelaySecs:  envInt("PAGE_DELAY_SECONDS", 2),
			HistoryMaxTurn: envInt("MAX_HISTORY_TURNS", 8),
		},
		Suggest: SuggestConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_MODEL"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// ToSessionConfig converts to domain session configuration
func (c *SessionConfig) ToSessionConfig() domain.SessionConfig {
	return domain.SessionConfig{
		IdleTimeout: time.Duration(c.IdleMinutes) * time.Minute,
	}
}

// ToPaginationConfig converts to pagination configuration
func (c *Config) ToPaginationConfig() usecase.PaginationConfig {
	cfg := usecase.DefaultPaginationConfig()
	cfg.MaxPages = c.Session.MaxPages
	cfg.ClickDelay = time.Duration(c.Session.PageDelaySecs) * time.Second
	cfg.CacheTTL = time.Duration(c.Cache.TTLDays) * 24 * time.Hour
	return cfg
}

// FreshnessWindow returns the pending-request freshness window
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Session.FreshnessSecs) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return &ConfigError{Field: "BOT_TOKEN", Message: "required"}
	}
	if c.Bot.AdminID == 0 {
		return &ConfigError{Field: "ADMIN_ID", Message: "required"}
	}
	if c.Mirror.APIID == 0 || c.Mirror.APIHash == "" {
		return &ConfigError{Field: "TG_API_ID/TG_API_HASH", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}
