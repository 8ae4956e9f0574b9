package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"marketplace-auth/audit"
	"marketplace-auth/auth"
	"marketplace-auth/config"
	"marketplace-auth/db"
	"marketplace-auth/email"
	"marketplace-auth/handlers"
	"marketplace-auth/identity"
	"marketplace-auth/lookup"
	"marketplace-auth/notify"
	"marketplace-auth/portfolio"
	"marketplace-auth/provision"
	"marketplace-auth/routes"
	"marketplace-auth/secretmanager" // Ensure this is available in production.
	"marketplace-auth/store"
	"marketplace-auth/telemetry"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	loadEnv         = godotenv.Load
	loadConfig      = config.Load
	connectDB       = db.Connect
	newRedisRecords = func(cfg config.StoreConfig) (store.Records, error) { return store.NewRedisRecords(cfg) }
	newRefreshStore = func(cfg config.StoreConfig) (store.RefreshTokenStore, error) { return store.NewRedisRefreshStore(cfg) }
	setupRoutes     = routes.SetupRoutes
	initTelemetry   = telemetry.Init
	listenAndServe  = http.ListenAndServe
	getSecret       = secretmanager.GetSecret
	logFatal        = log.Fatal
)

type postgresSecret struct {
	Username             string      `json:"username"`
	Password             string      `json:"password"`
	Engine               string      `json:"engine"`
	Host                 string      `json:"host"`
	Port                 json.Number `json:"port"`
	DBInstanceIdentifier string      `json:"dbInstanceIdentifier"`
}

func loadPostgresSecret() (postgresSecret, error) {
	secretJSON, err := getSecret("prod/postgres")
	if err != nil {
		return postgresSecret{}, fmt.Errorf("error retrieving Postgres secret: %w", err)
	}
	var pg postgresSecret
	if err := json.Unmarshal([]byte(secretJSON), &pg); err != nil {
		return postgresSecret{}, fmt.Errorf("error parsing Postgres secret JSON: %w", err)
	}
	return pg, nil
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

func loadProdSecrets() error {
	sessionSecrets, err := loadSecretMap("prod/session")
	if err != nil {
		return fmt.Errorf("error retrieving session secret: %w", err)
	}
	for key, value := range sessionSecrets {
		os.Setenv(key, value)
	}

	identitySecrets, err := loadSecretMap("prod/identity")
	if err != nil {
		return fmt.Errorf("error retrieving identity secret: %w", err)
	}
	for key, value := range identitySecrets {
		os.Setenv(key, value)
	}

	pg, err := loadPostgresSecret()
	if err != nil {
		return err
	}
	os.Setenv("DB_USERNAME", pg.Username)
	os.Setenv("DB_PASSWORD", pg.Password)
	os.Setenv("DB_ENGINE", pg.Engine)
	os.Setenv("DB_HOST", pg.Host)
	os.Setenv("DB_PORT", pg.Port.String())
	os.Setenv("DB_INSTANCE_IDENTIFIER", pg.DBInstanceIdentifier)

	storeSecrets, err := loadSecretMap("prod/record-store")
	if err == nil {
		for key, value := range storeSecrets {
			os.Setenv(key, value)
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

	shutdownTelemetry, err := initTelemetry(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("telemetry shutdown error: %v", err)
		}
	}()

	records, err := newRedisRecords(cfg.Store)
	if err != nil {
		return fmt.Errorf("record store connection error: %w", err)
	}
	defer records.Close()

	refreshStore, err := newRefreshStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("refresh store connection error: %w", err)
	}
	defer refreshStore.Close()

	var trail *audit.Trail
	if cfg.DB.Name != "" && cfg.DB.Username != "" {
		auditDB, err := connectDB(cfg.DB)
		if err != nil {
			return err
		}
		defer auditDB.Close()
		trail = audit.NewTrail(auditDB)
	} else {
		log.Println("Audit trail disabled: DB_NAME or DB_USERNAME not set")
	}

	gateway := identity.NewClient(cfg.Identity)
	sink := notify.NewSlackNotifier(cfg.API, cfg.AppEnv)
	verifier := email.NewClient(cfg.API)
	resolver := lookup.NewClient(cfg.API)
	provisioner := provision.New(records, sink)
	orchestrator := auth.NewOrchestrator(gateway, provisioner, records, resolver, verifier)

	images := portfolio.NewImageClient(cfg.API)
	manager := portfolio.NewManager(records, images)

	authHandler := handlers.NewAuthHandler(cfg, orchestrator, refreshStore, trail)
	profileHandler := handlers.NewProfileHandler(records, manager)
	router := setupRoutes(cfg, authHandler, profileHandler)

	corsOpts := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
		gorillaHandlers.AllowCredentials(),
	}

	handler := otelhttp.NewHandler(gorillaHandlers.CORS(corsOpts...)(router), "marketplace-auth")

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s in %s environment (CORS: %s)", port, cfg.AppEnv, strings.Join(cfg.CORS.AllowedOrigins, ","))
	return listenAndServe(":"+port, handler)
}
