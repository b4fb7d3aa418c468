package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"linkbio-service/config"
	"linkbio-service/realtime"
	"linkbio-service/routes"
	"linkbio-service/storage"
	"linkbio-service/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secretsFixture(name string) (string, error) {
	switch name {
	case "prod/auth":
		return `{"AUTH_JWT_SECRET":"jwt-secret","AUTH_ISSUER":"https://auth.example.com"}`, nil
	case "prod/postgres":
		return `{"username":"user","password":"pass","engine":"postgres","host":"localhost","port":5432,"dbInstanceIdentifier":"db"}`, nil
	case "prod/valkey":
		return `{"VALKEY_ADDR":"localhost:6379"}`, nil
	case "prod/storage":
		return `{"STORAGE_AVATAR_BUCKET":"avatars"}`, nil
	default:
		return "", errors.New("unknown")
	}
}

func testConfig() config.Config {
	return config.Config{
		AppEnv: "dev",
		Auth: config.AuthConfig{
			JWTSecret:        []byte("secret"),
			AccessCookieName: "access",
		},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost"}},
		Analytics: config.AnalyticsConfig{CacheTTL: time.Minute, TopLinks: 5},
		Telemetry: config.TelemetryConfig{ServiceName: "linkbio-service"},
	}
}

// stubRun swaps every startup dependency and restores them when the test ends.
func stubRun(t *testing.T, cfg config.Config) {
	t.Helper()
	originalLoadEnv := loadEnv
	originalLoadConfig := loadConfig
	originalInitTelemetry := initTelemetry
	originalConnectDB := connectDB
	originalMigrateDB := migrateDB
	originalNewValkeyCache := newValkeyCache
	originalNewS3Store := newS3Store
	originalNewPGListener := newPGListener
	originalSetupRoutes := setupRoutes
	originalListenAndServe := listenAndServe
	t.Cleanup(func() {
		loadEnv = originalLoadEnv
		loadConfig = originalLoadConfig
		initTelemetry = originalInitTelemetry
		connectDB = originalConnectDB
		migrateDB = originalMigrateDB
		newValkeyCache = originalNewValkeyCache
		newS3Store = originalNewS3Store
		newPGListener = originalNewPGListener
		setupRoutes = originalSetupRoutes
		listenAndServe = originalListenAndServe
	})

	loadEnv = func(_ ...string) error { return errors.New("no env") }
	loadConfig = func() (config.Config, error) { return cfg, nil }
	initTelemetry = func(context.Context, config.Config) (func(context.Context) error, error) {
		return func(context.Context) error { return nil }, nil
	}
	connectDB = func(config.DatabaseConfig) (*sql.DB, error) {
		conn, _, err := sqlmock.New()
		require.NoError(t, err)
		return conn, nil
	}
	migrateDB = func(context.Context, *sql.DB) error { return nil }
	newValkeyCache = func(context.Context, config.ValkeyConfig) (*store.ValkeyCache, error) {
		return &store.ValkeyCache{}, nil
	}
	newS3Store = func(context.Context, config.StorageConfig) (*storage.S3Store, error) {
		return &storage.S3Store{}, nil
	}
	newPGListener = func(string, *realtime.Hub, time.Duration) (*realtime.PGListener, error) {
		return nil, errors.New("listener disabled in tests")
	}
	setupRoutes = func(config.Config, routes.Handlers) *mux.Router { return mux.NewRouter() }
	listenAndServe = func(string, http.Handler) error { return nil }
}

func TestLoadSecretMapErrors(t *testing.T) {
	originalGetSecret := getSecret
	getSecret = func(name string) (string, error) {
		return "", errors.New("secret error")
	}
	defer func() { getSecret = originalGetSecret }()

	_, err := loadSecretMap("prod/auth")
	assert.Error(t, err)

	getSecret = func(name string) (string, error) {
		return "not-json", nil
	}
	_, err = loadSecretMap("prod/auth")
	assert.Error(t, err)
}

func TestLoadProdSecretsSuccess(t *testing.T) {
	originalGetSecret := getSecret
	getSecret = secretsFixture
	defer func() { getSecret = originalGetSecret }()

	for _, key := range []string{"AUTH_JWT_SECRET", "AUTH_ISSUER", "DB_USERNAME", "DB_HOST", "DB_PORT", "VALKEY_ADDR", "STORAGE_AVATAR_BUCKET"} {
		t.Setenv(key, "")
	}

	assert.NoError(t, loadProdSecrets())
	assert.Equal(t, "jwt-secret", os.Getenv("AUTH_JWT_SECRET"))
	assert.Equal(t, "user", os.Getenv("DB_USERNAME"))
	assert.Equal(t, "localhost", os.Getenv("DB_HOST"))
	assert.Equal(t, "5432", os.Getenv("DB_PORT"))
	assert.Equal(t, "localhost:6379", os.Getenv("VALKEY_ADDR"))
	assert.Equal(t, "avatars", os.Getenv("STORAGE_AVATAR_BUCKET"))
}

func TestLoadProdSecretsInvalidPostgresJSON(t *testing.T) {
	originalGetSecret := getSecret
	getSecret = func(name string) (string, error) {
		if name == "prod/postgres" {
			return "not-json", nil
		}
		return secretsFixture(name)
	}
	defer func() { getSecret = originalGetSecret }()
	t.Setenv("AUTH_JWT_SECRET", "")

	assert.Error(t, loadProdSecrets())
}

func TestLoadProdSecretsPostgresError(t *testing.T) {
	originalGetSecret := getSecret
	getSecret = func(name string) (string, error) {
		if name == "prod/postgres" {
			return "", errors.New("postgres error")
		}
		return secretsFixture(name)
	}
	defer func() { getSecret = originalGetSecret }()
	t.Setenv("AUTH_JWT_SECRET", "")

	assert.Error(t, loadProdSecrets())
}

func TestLoadProdSecretsError(t *testing.T) {
	originalGetSecret := getSecret
	getSecret = func(name string) (string, error) {
		return "", errors.New("secret error")
	}
	defer func() { getSecret = originalGetSecret }()

	assert.Error(t, loadProdSecrets())
}

func TestRunSuccess(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg := testConfig()
	cfg.DB.AutoMigrate = true
	stubRun(t, cfg)

	migrated := false
	migrateDB = func(context.Context, *sql.DB) error {
		migrated = true
		return nil
	}
	var routed routes.Handlers
	setupRoutes = func(_ config.Config, h routes.Handlers) *mux.Router {
		routed = h
		return mux.NewRouter()
	}
	var addr string
	listenAndServe = func(a string, _ http.Handler) error {
		addr = a
		return nil
	}

	assert.NoError(t, run())
	assert.True(t, migrated)
	assert.Equal(t, ":8080", addr)
	assert.NotNil(t, routed.Profiles)
	assert.NotNil(t, routed.Collections)
	assert.NotNil(t, routed.Analytics)
	assert.NotNil(t, routed.Realtime)
}

func TestRunDefaultEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	stubRun(t, testConfig())

	assert.NoError(t, run())
}

func TestRunOptionalBackends(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg := testConfig()
	cfg.Valkey.Enabled = true
	cfg.Storage.AvatarBucket = "avatars"
	stubRun(t, cfg)

	valkeyCalled, s3Called := false, false
	newValkeyCache = func(context.Context, config.ValkeyConfig) (*store.ValkeyCache, error) {
		valkeyCalled = true
		return &store.ValkeyCache{}, nil
	}
	newS3Store = func(context.Context, config.StorageConfig) (*storage.S3Store, error) {
		s3Called = true
		return &storage.S3Store{}, nil
	}

	assert.NoError(t, run())
	assert.True(t, valkeyCalled)
	assert.True(t, s3Called)
}

func TestRunProdSecretsError(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	originalGetSecret := getSecret
	originalLoadConfig := loadConfig
	getSecret = func(name string) (string, error) { return "", errors.New("secret error") }
	loadConfig = func() (config.Config, error) {
		return config.Config{}, nil
	}
	defer func() {
		getSecret = originalGetSecret
		loadConfig = originalLoadConfig
	}()

	assert.Error(t, run())
}

func TestRunConfigError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	originalLoadConfig := loadConfig
	loadConfig = func() (config.Config, error) { return config.Config{}, errors.New("config error") }
	defer func() { loadConfig = originalLoadConfig }()

	assert.Error(t, run())
}

func TestRunTelemetryError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	stubRun(t, testConfig())
	initTelemetry = func(context.Context, config.Config) (func(context.Context) error, error) {
		return nil, errors.New("exporter error")
	}

	assert.ErrorContains(t, run(), "telemetry error")
}

func TestRunConnectDBError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	stubRun(t, testConfig())
	connectDB = func(config.DatabaseConfig) (*sql.DB, error) { return nil, errors.New("db error") }

	assert.Error(t, run())
}

func TestRunMigrateError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg := testConfig()
	cfg.DB.AutoMigrate = true
	stubRun(t, cfg)
	migrateDB = func(context.Context, *sql.DB) error { return errors.New("schema error") }

	assert.Error(t, run())
}

func TestRunValkeyError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg := testConfig()
	cfg.Valkey.Enabled = true
	stubRun(t, cfg)
	newValkeyCache = func(context.Context, config.ValkeyConfig) (*store.ValkeyCache, error) {
		return nil, errors.New("valkey error")
	}

	assert.ErrorContains(t, run(), "valkey connection error")
}

func TestRunStorageError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg := testConfig()
	cfg.Storage.BackgroundBucket = "backgrounds"
	stubRun(t, cfg)
	newS3Store = func(context.Context, config.StorageConfig) (*storage.S3Store, error) {
		return nil, errors.New("no credentials")
	}

	assert.ErrorContains(t, run(), "object storage error")
}

func TestRunListenerError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg := testConfig()
	cfg.Realtime.ListenPostgres = true
	stubRun(t, cfg)

	assert.ErrorContains(t, run(), "realtime listener error")
}

func TestRunListenError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	stubRun(t, testConfig())
	listenAndServe = func(string, http.Handler) error { return errors.New("listen error") }

	assert.Error(t, run())
}

func TestRunServerClosed(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	stubRun(t, testConfig())
	listenAndServe = func(string, http.Handler) error { return http.ErrServerClosed }

	assert.NoError(t, run())
}

func TestMainFunction(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	stubRun(t, testConfig())
	originalLogFatal := logFatal
	called := false
	logFatal = func(args ...interface{}) { called = true }
	defer func() { logFatal = originalLogFatal }()

	main()
	assert.False(t, called)
}

func TestMainFunctionError(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	originalLoadConfig := loadConfig
	originalLogFatal := logFatal
	loadConfig = func() (config.Config, error) { return config.Config{}, errors.New("config error") }
	called := false
	logFatal = func(args ...interface{}) {
		called = true
	}
	defer func() {
		loadConfig = originalLoadConfig
		logFatal = originalLogFatal
	}()

	main()
	assert.True(t, called)
}
