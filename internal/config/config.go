package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/identitystore/internal/security/secretbox"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | prod | test
		Env  string `yaml:"app_env"`
		Name string `yaml:"name"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// mongo | memory | noop
		Driver string `yaml:"driver"`
		Mongo  struct {
			URI             string `yaml:"uri"`
			Database        string `yaml:"database"`
			UsersCollection string `yaml:"users_collection"`
			ConnectTimeout  string `yaml:"connect_timeout"`

			// URIEnc es la URI sellada con secretbox (SECRETBOX_MASTER_KEY).
			// Si está presente pisa URI.
			URIEnc string `yaml:"uri_enc"`
		} `yaml:"mongo"`
		// EnsureSchema crea los índices al abrir el store (default true).
		EnsureSchema *bool `yaml:"ensure_schema"`
	} `yaml:"storage"`

	Import struct {
		// Concurrencia máxima de "users import".
		Concurrency int `yaml:"concurrency"`
	} `yaml:"import"`

	Password struct {
		MinLength     int  `yaml:"min_length"`
		RequireUpper  bool `yaml:"require_upper"`
		RequireLower  bool `yaml:"require_lower"`
		RequireDigit  bool `yaml:"require_digit"`
		RequireSymbol bool `yaml:"require_symbol"`

		// Archivo con passwords prohibidos, uno por línea.
		BlacklistPath string `yaml:"blacklist_path"`
	} `yaml:"password"`
}

// Default retorna una config con los defaults aplicados.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load lee el YAML (si path no es vacío), aplica env, abre los secretos
// sellados y completa defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	if err := c.openSecrets(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// sane defaults
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "identity-store"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "mongo"
	}
	if c.Storage.Mongo.URI == "" {
		c.Storage.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = "identity"
	}
	if c.Storage.Mongo.UsersCollection == "" {
		c.Storage.Mongo.UsersCollection = "users"
	}
	if c.Storage.Mongo.ConnectTimeout == "" {
		c.Storage.Mongo.ConnectTimeout = "10s"
	}
	if c.Storage.EnsureSchema == nil {
		t := true
		c.Storage.EnsureSchema = &t
	}
	if c.Import.Concurrency <= 0 {
		c.Import.Concurrency = 8
	}
	if c.Password.MinLength == 0 {
		c.Password.MinLength = 10
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// STORAGE
	if v, ok := getEnvStr("STORE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("MONGO_URI"); ok {
		c.Storage.Mongo.URI = v
	}
	if v, ok := getEnvStr("MONGO_DATABASE"); ok {
		c.Storage.Mongo.Database = v
	}
	if v, ok := getEnvStr("MONGO_URI_ENC"); ok {
		c.Storage.Mongo.URIEnc = v
	}
	if v, ok := getEnvStr("MONGO_USERS_COLLECTION"); ok {
		c.Storage.Mongo.UsersCollection = v
	}
	if v, ok := getEnvStr("MONGO_CONNECT_TIMEOUT"); ok {
		c.Storage.Mongo.ConnectTimeout = v
	}
	if v, ok := getEnvBool("STORE_ENSURE_SCHEMA"); ok {
		c.Storage.EnsureSchema = &v
	}

	if v, ok := getEnvStr("PASSWORD_BLACKLIST_PATH"); ok {
		c.Password.BlacklistPath = v
	}

	// IMPORT
	if v, ok := getEnvInt("IMPORT_CONCURRENCY"); ok && v > 0 {
		c.Import.Concurrency = v
	}
}

// openSecrets descifra los valores sellados con secretbox.
func (c *Config) openSecrets() error {
	if c.Storage.Mongo.URIEnc == "" {
		return nil
	}
	box, err := secretbox.FromEnv()
	if err != nil {
		return fmt.Errorf("config: storage.mongo.uri_enc: %w", err)
	}
	uri, err := box.Open(c.Storage.Mongo.URIEnc)
	if err != nil {
		return fmt.Errorf("config: storage.mongo.uri_enc: %w", err)
	}
	c.Storage.Mongo.URI = uri
	return nil
}

// ConnectTimeout parsea Storage.Mongo.ConnectTimeout.
func (c *Config) ConnectTimeout() time.Duration {
	d, err := time.ParseDuration(c.Storage.Mongo.ConnectTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate performs validation of critical configuration values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "mongo", "memory", "noop":
	default:
		errs = append(errs, fmt.Errorf("config: storage.driver %q not supported (mongo|memory|noop)", c.Storage.Driver))
	}
	if c.Storage.Driver == "mongo" {
		if !strings.HasPrefix(c.Storage.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Storage.Mongo.URI, "mongodb+srv://") {
			errs = append(errs, fmt.Errorf("config: storage.mongo.uri must start with mongodb:// or mongodb+srv://"))
		}
	}
	if _, err := time.ParseDuration(c.Storage.Mongo.ConnectTimeout); err != nil {
		errs = append(errs, fmt.Errorf("config: storage.mongo.connect_timeout: %w", err))
	}
	return errors.Join(errs...)
}
