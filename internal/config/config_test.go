package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "local.yaml", `
env: prod
strict_not_found: true
http_server:
  address: "localhost:8082"
  read_timeout: 3s
storage:
  driver: sqlite
  sqlite_path: /tmp/users.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.True(t, cfg.StrictNotFound)
	assert.Equal(t, "localhost:8082", cfg.HTTPServer.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTPServer.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPServer.WriteTimeout, "unset values fall back to env-default")
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/users.db", cfg.Storage.SQLitePath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "local.yaml", `
env: dev
storage:
  driver: sqlite
  sqlite_path: /tmp/users.db
`)
	t.Setenv("STORAGE_DRIVER", DriverMemory)
	t.Setenv("HTTP_SERVER_ADDR", ":9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, ":9000", cfg.HTTPServer.Addr)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, ":5000", cfg.HTTPServer.Addr)
	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, "mongodb://db.internal:27017", cfg.Storage.MongoURI)
	assert.Equal(t, "users_api", cfg.Storage.MongoDatabase)
	assert.Equal(t, "users", cfg.Storage.MongoCollection)
	assert.False(t, cfg.StrictNotFound)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// cleanenv exports .env values into the process environment;
	// t.Setenv restores them once the test ends.
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("STRICT_NOT_FOUND", "")
	path := writeFile(t, "app.env", "STORAGE_DRIVER=memory\nSTRICT_NOT_FOUND=true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.StrictNotFound)
}

// unsetenv removes key for the rest of the test and restores it after.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDotEnv(t *testing.T) {
	unsetenv(t, "MONGO_DATABASE")
	t.Setenv("STORAGE_DRIVER", DriverSQLite)
	path := writeFile(t, ".env", "MONGO_DATABASE=from_dotenv\nSTORAGE_DRIVER=memory\n")

	require.NoError(t, loadDotEnv(path))

	assert.Equal(t, "from_dotenv", os.Getenv("MONGO_DATABASE"))
	assert.Equal(t, DriverSQLite, os.Getenv("STORAGE_DRIVER"), "the environment wins over .env")

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")), "a missing .env is fine")
}

func TestLoad_Port(t *testing.T) {
	path := writeFile(t, "local.yaml", `
http_server:
  address: "localhost:5000"
storage:
  driver: memory
`)

	tests := []struct {
		name     string
		port     string
		addr     string
		wantAddr string
		wantErr  string
	}{
		{name: "no PORT", wantAddr: "localhost:5000"},
		{name: "PORT fallback", port: "8080", wantAddr: ":8080"},
		{name: "HTTP_SERVER_ADDR wins", port: "8080", addr: "127.0.0.1:9000", wantAddr: "127.0.0.1:9000"},
		{name: "PORT not a number", port: "http", wantErr: `PORT must be a port number, got "http"`},
		{name: "PORT out of range", port: "70000", wantErr: "PORT must be a port number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cleanenv treats a set-but-empty variable as a value.
			unsetenv(t, "STORAGE_DRIVER")
			unsetenv(t, "HTTP_SERVER_ADDR")
			if tt.addr != "" {
				t.Setenv("HTTP_SERVER_ADDR", tt.addr)
			}
			t.Setenv("PORT", tt.port)

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, cfg.HTTPServer.Addr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:        EnvDev,
			HTTPServer: HTTPServer{Addr: ":5000"},
			Storage:    Storage{Driver: DriverMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown env", mutate: func(c *Config) { c.Env = "qa" }, wantErr: "env must be one of"},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "log_level"},
		{name: "upper case log level", mutate: func(c *Config) { c.LogLevel = "WARN" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }, wantErr: "storage.driver"},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Storage.Driver = DriverPostgres },
			wantErr: "postgres_dsn",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Storage.Driver = DriverSQLite },
			wantErr: "sqlite_path",
		},
		{
			name:    "mongo without database",
			mutate:  func(c *Config) { c.Storage.Driver = DriverMongo; c.Storage.MongoURI = "mongodb://x" },
			wantErr: "mongo_database",
		},
		{name: "empty address", mutate: func(c *Config) { c.HTTPServer.Addr = "" }, wantErr: "http_server.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
