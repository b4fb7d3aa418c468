package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"linkbio-service/config"
	"linkbio-service/db"
	"linkbio-service/handlers"
	"linkbio-service/realtime"
	"linkbio-service/repository"
	"linkbio-service/routes"
	"linkbio-service/secretmanager"
	"linkbio-service/services"
	"linkbio-service/storage"
	"linkbio-service/store"
	"linkbio-service/telemetry"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	loadEnv        = godotenv.Load
	loadConfig     = config.Load
	initTelemetry  = telemetry.Init
	connectDB      = db.Connect
	migrateDB      = db.Migrate
	newValkeyCache = store.NewValkeyCache
	newS3Store     = storage.NewS3Store
	newPGListener  = realtime.NewPGListener
	setupRoutes    = routes.SetupRoutes
	listenAndServe = http.ListenAndServe
	getSecret      = secretmanager.GetSecret
	setEnv         = os.Setenv
	logFatal       = log.Fatal
)

type postgresSecret struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	Engine               string `json:"engine"`
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	DBInstanceIdentifier string `json:"dbInstanceIdentifier"`
}

func validatePostgresSecret(secret postgresSecret) error {
	var missing []string
	for name, value := range map[string]string{
		"username":             secret.Username,
		"password":             secret.Password,
		"engine":               secret.Engine,
		"host":                 secret.Host,
		"dbInstanceIdentifier": secret.DBInstanceIdentifier,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("postgres secret is missing %s", strings.Join(missing, ", "))
	}
	if secret.Port <= 0 || secret.Port > 65535 {
		return fmt.Errorf("postgres secret has invalid port %d", secret.Port)
	}
	return nil
}

func loadPostgresSecret() (postgresSecret, error) {
	raw, err := getSecret("prod/postgres")
	if err != nil {
		return postgresSecret{}, fmt.Errorf("error retrieving Postgres secret: %w", err)
	}
	var secret postgresSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return postgresSecret{}, fmt.Errorf("error parsing Postgres secret JSON: %w", err)
	}
	if err := validatePostgresSecret(secret); err != nil {
		return postgresSecret{}, err
	}
	return secret, nil
}

func loadSecretMap(secretName string) (map[string]string, error) {
	secretJSON, err := getSecret(secretName)
	if err != nil {
		return nil, err
	}
	secrets := make(map[string]string)
	if err := json.Unmarshal([]byte(secretJSON), &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

func setEnvFromMap(values map[string]string) error {
	for key, value := range values {
		if err := setEnv(key, value); err != nil {
			return fmt.Errorf("error setting %q: %w", key, err)
		}
	}
	return nil
}

func loadProdSecrets() error {
	authSecrets, err := loadSecretMap("prod/auth")
	if err != nil {
		return fmt.Errorf("error retrieving auth secret: %w", err)
	}
	if err := setEnvFromMap(authSecrets); err != nil {
		return err
	}

	pg, err := loadPostgresSecret()
	if err != nil {
		return err
	}
	if err := setEnvFromMap(map[string]string{
		"DB_USERNAME":            pg.Username,
		"DB_PASSWORD":            pg.Password,
		"DB_ENGINE":              pg.Engine,
		"DB_HOST":                pg.Host,
		"DB_PORT":                strconv.Itoa(pg.Port),
		"DB_INSTANCE_IDENTIFIER": pg.DBInstanceIdentifier,
	}); err != nil {
		return err
	}

	// valkey and storage secrets are optional
	for _, name := range []string{"prod/valkey", "prod/storage"} {
		values, err := loadSecretMap(name)
		if err != nil {
			log.Printf("Optional secret %s not loaded: %v", name, err)
			continue
		}
		if err := setEnvFromMap(values); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		logFatal(err)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := loadEnv(); err != nil {
		log.Println("No .env file found; using system environment variables")
	}
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	log.Println("Environment:", appEnv)

	if appEnv == "prod" {
		if err := loadProdSecrets(); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("telemetry shutdown error: %v", err)
		}
	}()

	instruments, err := telemetry.NewInstruments()
	if err != nil {
		return fmt.Errorf("telemetry instruments error: %w", err)
	}

	conn, err := connectDB(cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.DB.AutoMigrate {
		if err := migrateDB(ctx, conn); err != nil {
			return err
		}
	}
	repo := repository.NewPostgres(conn)

	var cache services.MetricsCache
	if cfg.Valkey.Enabled {
		valkey, err := newValkeyCache(ctx, cfg.Valkey)
		if err != nil {
			return fmt.Errorf("valkey connection error: %w", err)
		}
		cache = valkey
	}

	var images services.ImageStore
	if cfg.Storage.AvatarBucket != "" || cfg.Storage.BackgroundBucket != "" {
		s3Store, err := newS3Store(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("object storage error: %w", err)
		}
		images = s3Store
	} else {
		log.Println("Object storage disabled: no bucket configured")
	}

	hub := realtime.NewHub(instruments)
	defer hub.Close()

	// With the Postgres listener, the schema triggers are the only source
	// of notifications; otherwise the services publish their own writes.
	var publisher services.Publisher = hub
	if cfg.Realtime.ListenPostgres {
		listener, err := newPGListener(db.ConnString(cfg.DB), hub, cfg.Realtime.PingInterval)
		if err != nil {
			return fmt.Errorf("realtime listener error: %w", err)
		}
		go listener.Run(ctx)
		publisher = nil
	}

	profileService := services.NewProfileService(repo, images, publisher)
	collectionService := services.NewCollectionService(repo, publisher)
	analyticsService := services.NewAnalyticsService(repo, cache, instruments, services.AnalyticsOptions{
		CacheTTL:       cfg.Analytics.CacheTTL,
		TopLinks:       cfg.Analytics.TopLinks,
		VisitorHashKey: cfg.Analytics.VisitorHashKey,
	})

	router := setupRoutes(cfg, routes.Handlers{
		Profiles:    handlers.NewProfileHandler(profileService, cfg.Storage.MaxUploadBytes),
		Collections: handlers.NewCollectionHandler(collectionService),
		Analytics:   handlers.NewAnalyticsHandler(analyticsService, profileService),
		Realtime:    handlers.NewRealtimeHandler(profileService, hub, cfg.CORS.AllowedOrigins),
	})

	handler := otelhttp.NewHandler(router, cfg.Telemetry.ServiceName)

	corsOpts := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
		gorillaHandlers.AllowCredentials(),
	}
	corsHandler := gorillaHandlers.CORS(corsOpts...)(handler)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s in %s environment (CORS: %s)", port, cfg.AppEnv, strings.Join(cfg.CORS.AllowedOrigins, ","))
	if err := listenAndServe(":"+port, corsHandler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
