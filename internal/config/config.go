package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"
)

// Config is the process configuration.
// Values come from defaults, then an optional YAML file, then the environment.
type Config struct {
	Port string `yaml:"port"`

	// Shared secret used to verify webhook signatures.
	SigningKey      string `yaml:"signing_key"`
	SignatureHeader string `yaml:"signature_header"`

	Store StoreConfig `yaml:"store"`
	Mail  MailConfig  `yaml:"mail"`
	Log   LogConfig   `yaml:"log"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type StoreConfig struct {
	// sqlite, postgres, file or redis.
	Driver      string `yaml:"driver"`
	DBPath      string `yaml:"db_path"`
	DatabaseURL string `yaml:"database_url"`
	DataPath    string `yaml:"data_path"`
	RedisURL    string `yaml:"redis_url"`
	RedisKey    string `yaml:"redis_key"`
	SeedPath    string `yaml:"seed_path"`
	SeedOnStart bool   `yaml:"seed_on_start"`
}

type MailConfig struct {
	// gmail or log.
	Driver         string        `yaml:"driver"`
	GmailTokenPath string        `yaml:"gmail_token_path"`
	Timeout        time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		SignatureHeader: "X-Retell-Signature",
		Store: StoreConfig{
			Driver:   "sqlite",
			DBPath:   "data/app.db",
			DataPath: "data/data.json",
			RedisKey: "delivery:state",
			SeedPath: "data/seeds/data.json",
		},
		Mail: MailConfig{
			Driver:         "log",
			GmailTokenPath: "token.json",
			Timeout:        10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimitBurst: 10,
	}
}

// Load reads .env (if present), the optional YAML file at path, and the
// environment, in that order of increasing precedence, and validates the result.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation, for tools that only need part of the config.
func Read(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config: parse %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.SigningKey) == "" {
		return errors.New("RETELL_API_KEY is required")
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}

	switch c.Mail.Driver {
	case "log", "gmail":
	default:
		return fmt.Errorf("unknown mail driver %q", c.Mail.Driver)
	}

	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}

	return nil
}

func (c StoreConfig) Validate() error {
	switch c.Driver {
	case "sqlite", "file":
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.SigningKey, "RETELL_API_KEY")
	setString(&cfg.SignatureHeader, "SIGNATURE_HEADER")

	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.DBPath, "DB_PATH")
	setString(&cfg.Store.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Store.DataPath, "DATA_PATH")
	setString(&cfg.Store.RedisURL, "REDIS_URL")
	setString(&cfg.Store.RedisKey, "REDIS_KEY")
	setString(&cfg.Store.SeedPath, "SEED_PATH")

	setString(&cfg.Mail.Driver, "MAIL_DRIVER")
	setString(&cfg.Mail.GmailTokenPath, "GMAIL_TOKEN_PATH")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v, ok := lookup("SEED_ON_START"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED_ON_START: %w", err)
		}
		cfg.Store.SeedOnStart = b
	}

	if v, ok := lookup("MAIL_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MAIL_TIMEOUT: %w", err)
		}
		cfg.Mail.Timeout = d
	}

	if v, ok := lookup("RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}

	if v, ok := lookup("RATE_LIMIT_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = n
	}

	return nil
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}
