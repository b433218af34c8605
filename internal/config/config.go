package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

type Config struct {
	App    AppConfig
	Ledger LedgerConfig
	MySQL  MySQLConfig
	Redis  RedisConfig
	SQL    SQLConfig
}

// Load reads configuration from KITCHEN_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"KITCHEN_APP_ENV" default:"development"`
	HTTPAddr        string        `envconfig:"KITCHEN_HTTP_ADDR" default:":8080"`
	GRPCAddr        string        `envconfig:"KITCHEN_GRPC_ADDR" default:":50051"`
	LogLevel        string        `envconfig:"KITCHEN_LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"KITCHEN_LOG_FORMAT"`
	ShutdownTimeout time.Duration `envconfig:"KITCHEN_SHUTDOWN_TIMEOUT" default:"5s"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, "production")
}

// LogOutputFormat returns the configured log format, falling back to json in
// production and console everywhere else.
func (a AppConfig) LogOutputFormat() string {
	if f := strings.TrimSpace(a.LogFormat); f != "" {
		return strings.ToLower(f)
	}
	if a.IsProd() {
		return "json"
	}
	return "console"
}

type LedgerConfig struct {
	Backend     string        `envconfig:"KITCHEN_LEDGER_BACKEND" default:"file"`
	FilePath    string        `envconfig:"KITCHEN_LEDGER_FILE" default:"data/ledger.jsonl"`
	Timeout     time.Duration `envconfig:"KITCHEN_LEDGER_TIMEOUT" default:"5s"`
	Idempotency bool          `envconfig:"KITCHEN_IDEMPOTENCY" default:"false"`
}

type MySQLConfig struct {
	DSN             string        `envconfig:"KITCHEN_MYSQL_DSN"`
	MaxOpenConns    int           `envconfig:"KITCHEN_MYSQL_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KITCHEN_MYSQL_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KITCHEN_MYSQL_CONN_MAX_LIFETIME" default:"5m"`
}

type RedisConfig struct {
	Addr           string        `envconfig:"KITCHEN_REDIS_ADDR" default:"localhost:6379"`
	LedgerKey      string        `envconfig:"KITCHEN_REDIS_LEDGER_KEY" default:"ledger:transactions"`
	IdempotencyTTL time.Duration `envconfig:"KITCHEN_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

type SQLConfig struct {
	Driver string `envconfig:"KITCHEN_SQL_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"KITCHEN_SQL_DSN" default:"file:data/ledger.db?_busy_timeout=5000"`
}

func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if c.Ledger.FilePath == "" {
			return fmt.Errorf("KITCHEN_LEDGER_FILE is required for the file backend")
		}
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("KITCHEN_MYSQL_DSN is required for the mysql backend")
		}
	case BackendSQL:
		if c.SQL.DSN == "" {
			return fmt.Errorf("KITCHEN_SQL_DSN is required for the sql backend")
		}
		if c.SQL.Driver != "sqlite" && c.SQL.Driver != "postgres" {
			return fmt.Errorf("unsupported KITCHEN_SQL_DRIVER %q", c.SQL.Driver)
		}
	default:
		return fmt.Errorf("unsupported KITCHEN_LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	return nil
}

// UsesRedis reports whether a Redis client is needed at all.
func (c *Config) UsesRedis() bool {
	return c.Ledger.Backend == BackendRedis || c.Ledger.Idempotency
}
