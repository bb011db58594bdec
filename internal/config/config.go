// Package config handles loading and validating the domus configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// Config is the root configuration for the domus daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Fallback   FallbackConfig   `mapstructure:"fallback"`
	Devices    DevicesConfig    `mapstructure:"devices"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	NLP        NLPConfig        `mapstructure:"nlp"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// FallbackConfig selects and configures the language-model fallback.
type FallbackConfig struct {
	Backend string `mapstructure:"backend"` // "ollama", "openai" or "none"

	// Timeout bounds one completion call.
	Timeout time.Duration `mapstructure:"timeout"`

	// PingTimeout bounds one availability check.
	PingTimeout time.Duration `mapstructure:"ping_timeout"`

	// HealthInterval is how often availability is refreshed; 0 checks once at startup.
	HealthInterval time.Duration `mapstructure:"health_interval"`

	Ollama OllamaConfig `mapstructure:"ollama"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OllamaConfig holds the Ollama server settings.
type OllamaConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIConfig holds settings for any OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"` // empty means api.openai.com
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// DevicesConfig selects where the device snapshot comes from.
type DevicesConfig struct {
	Source   string         `mapstructure:"source"` // "file" or "database"
	File     string         `mapstructure:"file"`
	Watch    bool           `mapstructure:"watch"`
	Debounce time.Duration  `mapstructure:"debounce"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig configures the SQL device repository.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig configures the fallback answer cache.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend"` // "none", "memory" or "redis"
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ExecutorConfig configures the IoT backend used by execute.
type ExecutorConfig struct {
	BackendURL string        `mapstructure:"backend_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// NLPConfig toggles the optional normalization steps.
type NLPConfig struct {
	RemoveAccents    bool `mapstructure:"remove_accents"`
	FixTypos         bool `mapstructure:"fix_typos"`
	ExpandColloquial bool `mapstructure:"expand_colloquial"`
	PreserveNumbers  bool `mapstructure:"preserve_numbers"`
}

// Options converts the section into normalizer options.
func (c NLPConfig) Options() normalize.Options {
	return normalize.Options{
		RemoveAccents:    c.RemoveAccents,
		FixTypos:         c.FixTypos,
		ExpandColloquial: c.ExpandColloquial,
		PreserveNumbers:  c.PreserveNumbers,
	}
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string        `mapstructure:"level"`  // debug, info, warn, error
	Format string        `mapstructure:"format"` // json, text
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotating log file next to stdout.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./domus.yaml, ./configs/domus.yaml, /etc/domus/domus.yaml.
// A .env file in the working directory is loaded into the environment first.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("domus")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/domus")
	}

	// Environment variables: DOMUS_FALLBACK_BACKEND, DOMUS_DEVICES_FILE, etc.
	v.SetEnvPrefix("DOMUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Fallback.OpenAI.APIKey = resolveEnvRef(cfg.Fallback.OpenAI.APIKey)
	cfg.Cache.Redis.Password = resolveEnvRef(cfg.Cache.Redis.Password)
	cfg.Devices.Database.DSN = resolveEnvRef(cfg.Devices.Database.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("fallback.backend", "ollama")
	v.SetDefault("fallback.timeout", 60*time.Second)
	v.SetDefault("fallback.ping_timeout", 5*time.Second)
	v.SetDefault("fallback.health_interval", 30*time.Second)
	v.SetDefault("fallback.ollama.url", "http://localhost:11434")
	v.SetDefault("fallback.ollama.model", "phi3")
	v.SetDefault("fallback.openai.model", "gpt-4o-mini")
	v.SetDefault("fallback.openai.max_retries", 2)
	v.SetDefault("devices.source", "file")
	v.SetDefault("devices.file", "data/devices.json")
	v.SetDefault("devices.watch", false)
	v.SetDefault("devices.debounce", 500*time.Millisecond)
	v.SetDefault("devices.database.driver", "sqlite")
	v.SetDefault("devices.database.dsn", "data/domus.db")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.capacity", 512)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("executor.timeout", 10*time.Second)
	v.SetDefault("nlp.remove_accents", true)
	v.SetDefault("nlp.fix_typos", true)
	v.SetDefault("nlp.expand_colloquial", true)
	v.SetDefault("nlp.preserve_numbers", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.max_size_mb", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age_days", 7)
	v.SetDefault("logging.file.compress", true)
}

// Validate rejects unknown backend selectors.
func (c *Config) Validate() error {
	switch c.Fallback.Backend {
	case "ollama", "openai", "none", "":
	default:
		return fmt.Errorf("invalid fallback.backend %q", c.Fallback.Backend)
	}
	switch c.Devices.Source {
	case "file", "database":
	default:
		return fmt.Errorf("invalid devices.source %q", c.Devices.Source)
	}
	switch c.Devices.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid devices.database.driver %q", c.Devices.Database.Driver)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis", "":
	default:
		return fmt.Errorf("invalid cache.backend %q", c.Cache.Backend)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
// The returned closer releases the rotating log file, if any.
func SetupLogging(cfg LoggingConfig) io.Closer {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File.Path != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			LocalTime:  true,
			Compress:   cfg.File.Compress,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxAge:     cfg.File.MaxAgeDays,
			MaxBackups: cfg.File.MaxBackups,
		}
		out = io.MultiWriter(os.Stdout, fileWriter)
		closer = fileWriter
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
