package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Token store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// TokenStore selects where console sessions keep their bearer token.
	TokenStore string `env:"TOKEN_STORE, default=memory"`

	API     APIConfig
	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Audit   AuditConfig
}

type APIConfig struct {
	URL     string        `env:"DARZIFLOW_API_URL, default=http://localhost:5000/api"`
	Timeout time.Duration `env:"API_TIMEOUT,       default=15s"`
}

type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE,     default=darziflow_session"`
	HashKey    string        `env:"SESSION_HASH_KEY"`
	BlockKey   string        `env:"SESSION_BLOCK_KEY"`
	TTL        time.Duration `env:"SESSION_TTL,        default=12h"`
	CacheSize  int           `env:"SESSION_CACHE_SIZE, default=1024"`
	Secure     bool          `env:"SESSION_SECURE,     default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=darziflow_console"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Prefix   string `env:"REDIS_PREFIX,   default=darziflow:session:"`
}

type AuditConfig struct {
	Enabled bool `env:"AUDIT_ENABLED, default=true"`
	Workers int  `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads and validates configuration from l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// MongoEnabled reports whether a MongoDB URI was configured.
func (c *Config) MongoEnabled() bool { return c.Mongo.URI != "" }

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.TokenStore {
	case StoreMemory, StoreRedis:
	case StoreMongo:
		if !c.MongoEnabled() {
			return fmt.Errorf("config: TOKEN_STORE=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("config: unknown TOKEN_STORE %q", c.TokenStore)
	}

	u, err := url.Parse(c.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid DARZIFLOW_API_URL %q", c.API.URL)
	}

	if c.IsProduction() && len(c.Session.HashKey) < 32 {
		return fmt.Errorf("config: SESSION_HASH_KEY must be at least 32 bytes in production")
	}
	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("config: SESSION_BLOCK_KEY must be 16, 24 or 32 bytes")
	}
	if c.Session.CacheSize <= 0 {
		return fmt.Errorf("config: SESSION_CACHE_SIZE must be positive")
	}
	return nil
}
