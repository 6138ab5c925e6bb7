package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Db      DbConfig      `koanf:"db"`
	Sql     SqlConfig     `koanf:"sql"`
	S3      S3Config      `koanf:"s3"`
	Redis   RedisConfig   `koanf:"redis"`
	Api     ApiConfig     `koanf:"api"`
	Migrate MigrateConfig `koanf:"migrate"`
	Log     LogConfig     `koanf:"log"`
	Lang    string        `koanf:"lang"`
	Output  string        `koanf:"output"`
}

type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// DbConfig holds database-related configuration.
type DbConfig struct {
	Dialect          string        `koanf:"dialect"`
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port"`
	Name             string        `koanf:"name"`
	User             string        `koanf:"user"`
	Password         string        `koanf:"password"`
	DSN              string        `koanf:"dsn"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
	LockTimeout      time.Duration `koanf:"lock_timeout"`
	IdleTimeout      time.Duration `koanf:"idle_timeout"`
}

// SqlConfig points at the scripts directory holding schema.sql, seed.sql and the catalog.
type SqlConfig struct {
	Dir     string `koanf:"dir"`
	Catalog string `koanf:"catalog"`
	Source  string `koanf:"source"`
	Watch   bool   `koanf:"watch"`
}

type S3Config struct {
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"path_style"`

	// Static credentials. Empty means the default AWS credential chain.
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type ApiConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

type MigrateConfig struct {
	Retries int           `koanf:"retries"`
	Delay   time.Duration `koanf:"delay"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

const (
	DefaultAPIURL  = "http://localhost:8000"
	DefaultAddr    = ":8000"
	DefaultCatalog = "queries.sql"
)

// Defaults mirrors the values the demo stack ships with.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":            DefaultAddr,
		"server.request_timeout": "30s",
		"db.dialect":             "postgres",
		"db.host":                "localhost",
		"db.port":                5432,
		"db.name":                "bda_class",
		"db.user":                "postgres",
		"db.password":            "postgres",
		"db.statement_timeout":   "5s",
		"db.lock_timeout":        "2s",
		"db.idle_timeout":        "10s",
		"sql.dir":                "sql",
		"sql.catalog":            DefaultCatalog,
		"sql.source":             "file",
		"sql.watch":              true,
		"s3.region":              "us-east-1",
		"redis.ttl":              "1m",
		"api.url":                DefaultAPIURL,
		"api.timeout":            "0s",
		"migrate.retries":        30,
		"migrate.delay":          "2s",
		"log.level":              "info",
		"log.format":             "text",
		"lang":                   "en",
		"output":                 "auto",
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file, the
// environment and explicitly set flags, in increasing order of precedence.
// DB_* variables map onto db.* keys and SQLLAB_* variables onto the rest
// (SQLLAB_API_URL -> api.url).
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider("DB_", ".", func(s string) string {
		return "db." + strings.ToLower(strings.TrimPrefix(s, "DB_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Load(env.Provider("SQLLAB_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns SQLLAB_LOG_LEVEL into log.level and SQLLAB_LANG into lang.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "SQLLAB_"))
	return strings.Replace(key, "_", ".", 1)
}

// flagKey turns --api-url into api.url. Flags without a section keep their name.
func flagKey(name string) string {
	switch name {
	case "lang", "output":
		return name
	}
	return strings.Replace(name, "-", ".", 1)
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Db.Dialect) {
	case "postgres", "mssql", "hana", "sqlite":
	default:
		return fmt.Errorf("unsupported db dialect: %s", c.Db.Dialect)
	}
	switch c.Sql.Source {
	case "file":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when sql.source is s3")
		}
	default:
		return fmt.Errorf("unsupported sql source: %s", c.Sql.Source)
	}
	if c.Sql.Catalog == "" {
		return fmt.Errorf("sql.catalog is required")
	}
	if c.Api.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	switch c.Lang {
	case "en", "es":
	default:
		return fmt.Errorf("unsupported lang: %s", c.Lang)
	}
	return nil
}
