package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/iskra-katalog/katalog/internal/catalog"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppBaseURL        string        `envconfig:"APP_BASE_URL"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	CSRFSecret string `envconfig:"CSRF_SECRET"`

	Username     string `envconfig:"APP_USERNAME" default:"admin"`
	Password     string `envconfig:"APP_PASSWORD"`
	PasswordHash string `envconfig:"APP_PASSWORD_HASH"`

	CatalogPath         string   `envconfig:"CATALOG_PATH" default:"data/data.xlsx"`
	CatalogMediaColumns bool     `envconfig:"CATALOG_MEDIA_COLUMNS" default:"false"`
	CatalogPriceAsText  bool     `envconfig:"CATALOG_PRICE_AS_TEXT" default:"false"`
	CatalogAliasFile    string   `envconfig:"CATALOG_ALIAS_FILE"`
	CatalogOnCorrupt    string   `envconfig:"CATALOG_ON_CORRUPT" default:"fail"`
	ImportRequired      []string `envconfig:"CATALOG_IMPORT_REQUIRED" default:"id,name,price"`
	UploadMaxBytes      int64    `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
}

// LoadConfig reads an optional .env file and then the environment for the
// HTTP server.
func LoadConfig() (*Config, error) {
	return load(true)
}

// LoadToolConfig reads configuration for the offline catalog commands, which
// need neither secrets nor operator credentials.
func LoadToolConfig() (*Config, error) {
	return load(false)
}

func load(server bool) (*Config, error) {
	if !InTestMode() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(server); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate(server bool) error {
	if server {
		if c.SessionSecret == "" {
			return errors.New("session secret must be provided")
		}
		if c.CSRFSecret == "" {
			return errors.New("csrf secret must be provided")
		}
		if c.Password == "" && c.PasswordHash == "" {
			return errors.New("APP_PASSWORD or APP_PASSWORD_HASH must be provided")
		}
	}
	switch catalog.CorruptPolicy(c.CatalogOnCorrupt) {
	case catalog.CorruptFail, catalog.CorruptDegrade:
	default:
		return fmt.Errorf("CATALOG_ON_CORRUPT must be fail or degrade, got %q", c.CatalogOnCorrupt)
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	required := c.ImportRequired[:0]
	for _, col := range c.ImportRequired {
		if col = strings.TrimSpace(col); col != "" {
			required = append(required, col)
		}
	}
	c.ImportRequired = required
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Schema builds the catalog schema, reading the alias file when configured.
func (c *Config) Schema() (*catalog.Schema, error) {
	opts := catalog.SchemaOptions{
		MediaColumns: c.CatalogMediaColumns,
		PriceAsText:  c.CatalogPriceAsText,
	}
	if c.CatalogAliasFile != "" {
		aliases, err := catalog.LoadAliasFile(c.CatalogAliasFile)
		if err != nil {
			return nil, err
		}
		opts.Aliases = aliases
	}
	schema := catalog.NewSchema(opts)
	for _, col := range c.ImportRequired {
		if !schema.Has(col) {
			return nil, fmt.Errorf("CATALOG_IMPORT_REQUIRED: unknown column %q", col)
		}
	}
	return schema, nil
}

// StoreConfig returns the catalog store settings for schema.
func (c *Config) StoreConfig(schema *catalog.Schema) catalog.StoreConfig {
	return catalog.StoreConfig{
		Path:      c.CatalogPath,
		Schema:    schema,
		OnCorrupt: catalog.CorruptPolicy(c.CatalogOnCorrupt),
	}
}
