package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/habedi/storekeeper/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STOREKEEPER_API_BASE_URL.
const EnvPrefix = "STOREKEEPER"

// Storage backends for the credential pair.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type APIConfig struct {
	BaseURL   url.URL       `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type AuthConfig struct {
	RenewalTimeout time.Duration `mapstructure:"renewal_timeout"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
}

type RedisConfig struct {
	Address  string         `mapstructure:"address"`
	Password RedactedString `mapstructure:"password"`
	DBIndex  int            `mapstructure:"db"`
	Key      string         `mapstructure:"key"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type CatalogueConfig struct {
	Workers int `mapstructure:"workers"`
}

type InvoiceConfig struct {
	Language  string `mapstructure:"language"`
	Format    string `mapstructure:"format"`
	OutputDir string `mapstructure:"output_dir"`
	FontPath  string `mapstructure:"font_path"`
	Supplier  string `mapstructure:"supplier"`
	Warehouse string `mapstructure:"warehouse"`
}

// Config is the complete client configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Catalogue CatalogueConfig `mapstructure:"catalogue"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
}

var defaults = map[string]any{
	"api.base_url":           "http://localhost:3000",
	"api.timeout":            "30s",
	"api.user_agent":         "storekeeper",
	"auth.renewal_timeout":   "15s",
	"auth.access_ttl":        "1h",
	"auth.refresh_ttl":       "168h",
	"storage.backend":        BackendSQLite,
	"storage.redis.address":  "localhost:6379",
	"storage.redis.password": "",
	"storage.redis.db":       0,
	"storage.redis.key":      "storekeeper:session",
	"catalogue.workers":      5,
	"invoice.language":       "en",
	"invoice.format":         "pdf",
	"invoice.output_dir":     ".",
	"invoice.font_path":      "",
	"invoice.supplier":       "",
	"invoice.warehouse":      "",
}

// SearchPaths lists the directories config.yaml is looked up in, most preferred first.
func SearchPaths() []string {
	var paths []string
	if home := os.Getenv("STOREKEEPER_HOME"); home != "" {
		paths = append(paths, home)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "storekeeper"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".storekeeper"))
	}
	return append(paths, ".")
}

// Load reads config.yaml (if any), a .env file in the working directory (if any) and STOREKEEPER_*
// environment variables, in increasing order of precedence, on top of the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	for _, p := range SearchPaths() {
		v.AddConfigPath(p)
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug().Msg("No config file found, using defaults and environment")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			parseStringAsURL(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	))
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise only fail later at use.
func (c Config) Validate() error {
	if c.API.BaseURL.Scheme != "http" && c.API.BaseURL.Scheme != "https" {
		return fmt.Errorf("api.base_url must be an http or https URL, got %q", c.API.BaseURL.String())
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Auth.RenewalTimeout <= 0 {
		return fmt.Errorf("auth.renewal_timeout must be positive, got %s", c.Auth.RenewalTimeout)
	}
	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Storage.Redis.Address == "" {
			return errors.New("storage.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendSQLite, BackendRedis, c.Storage.Backend)
	}
	if err := validation.ValidateThreadCount(c.Catalogue.Workers); err != nil {
		return fmt.Errorf("catalogue.workers: %w", err)
	}
	if err := validation.ValidateLanguage(c.Invoice.Language); err != nil {
		return fmt.Errorf("invoice.language: %w", err)
	}
	if err := validation.ValidateFormat(c.Invoice.Format); err != nil {
		return fmt.Errorf("invoice.format: %w", err)
	}
	return nil
}

func parseStringAsURL() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(url.URL{}) {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("cannot cast URL value to string")
		}
		if s == "" {
			return nil, fmt.Errorf("empty values are not allowed for URLs")
		}
		u, err := url.Parse(strings.TrimRight(s, "/"))
		if err != nil {
			return nil, err
		}
		return u, nil
	}
}
