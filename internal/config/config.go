// Package config handles loading and parsing application configuration.
// It supports two sources:
//  1. A config file (YAML, JSON, TOML or .env) whose path comes from the
//     --config flag or the CONFIG_PATH environment variable.
//  2. The environment alone, when no file path is given.
//
// In both cases environment variables override file values, and
// env-default tags fill anything left empty.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DotEnvFile is read from the working directory when Load gets no path.
const DotEnvFile = ".env"

// Storage drivers understood by the application.
const (
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Environments understood by the logger.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

var (
	drivers   = []string{DriverMongo, DriverSQLite, DriverPostgres, DriverMemory}
	envs      = []string{EnvDev, EnvStaging, EnvProd}
	logLevels = []string{"", "debug", "info", "warn", "error"}
)

// Config is the root configuration structure.
// Every field maps to a key in the config file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// LogLevel overrides the level implied by Env when set.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// StrictNotFound makes update and delete answer 404 for unknown ids.
	// Off by default: update then answers 200 with a null body and
	// delete answers 200 "User deleted", as the API always has.
	StrictNotFound bool `yaml:"strict_not_found" env:"STRICT_NOT_FOUND" env-default:"false"`

	HTTPServer HTTPServer `yaml:"http_server"`
	Storage    Storage    `yaml:"storage"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	Addr            string        `yaml:"address"          env:"HTTP_SERVER_ADDR"             env-default:":5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_SERVER_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"HTTP_SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// Storage selects and configures the backend.
// Only the fields of the chosen driver are read.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`

	MongoURI        string `yaml:"mongo_uri"        env:"MONGO_URI"        env-default:"mongodb://localhost:27017"`
	MongoDatabase   string `yaml:"mongo_database"   env:"MONGO_DATABASE"   env-default:"users_api"`
	MongoCollection string `yaml:"mongo_collection" env:"MONGO_COLLECTION" env-default:"users"`

	// SQLitePath is the filesystem path to the SQLite .db file.
	SQLitePath string `yaml:"sqlite_path" env:"STORAGE_PATH" env-default:"storage/users.db"`

	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`

	ConnectTimeout  time.Duration `yaml:"connect_timeout"   env:"STORAGE_CONNECT_TIMEOUT"   env-default:"10s"`
	SlowOpThreshold time.Duration `yaml:"slow_op_threshold" env:"STORAGE_SLOW_OP_THRESHOLD" env-default:"200ms"`
}

// Load reads, validates, and returns the application config.
//
// An empty path means "environment only", after loading DotEnvFile if
// one exists. A non-empty path must point to an existing file; its
// extension picks the parser (.yaml, .json, .toml, .env).
//
// PORT is honoured as a fallback for HTTP_SERVER_ADDR, so
// PORT=8080 listens on ":8080".
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := loadDotEnv(DotEnvFile); err != nil {
			return nil, err
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	} else {
		// Verify the file exists before trying to read it so the message
		// names the path rather than a parser error.
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := applyPort(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv exports the variables of file that are not already set.
// A missing file is not an error.
func loadDotEnv(file string) error {
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("config: load %s: %w", file, err)
	}
	return nil
}

// applyPort sets the listen address from PORT unless HTTP_SERVER_ADDR
// is set.
func applyPort(cfg *Config) error {
	port := os.Getenv("PORT")
	if port == "" || os.Getenv("HTTP_SERVER_ADDR") != "" {
		return nil
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("config: PORT must be a port number, got %q", port)
	}
	cfg.HTTPServer.Addr = ":" + port
	return nil
}

// Validate checks the values cleanenv cannot check by itself.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(envs, c.Env) {
		errs = append(errs, fmt.Errorf("env must be one of %s, got %q", strings.Join(envs, ", "), c.Env))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	if c.HTTPServer.Addr == "" {
		errs = append(errs, errors.New("http_server.address is required"))
	}

	switch c.Storage.Driver {
	case DriverMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" || c.Storage.MongoCollection == "" {
			errs = append(errs, errors.New("storage: mongo driver needs mongo_uri, mongo_database and mongo_collection"))
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage: sqlite driver needs sqlite_path"))
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage: postgres driver needs postgres_dsn"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be one of %s, got %q",
			strings.Join(drivers, ", "), c.Storage.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
