// Package main provides the entrypoint for the pushrelay API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/pushrelay/pushrelay/internal/api"
	"github.com/pushrelay/pushrelay/internal/api/handler"
	"github.com/pushrelay/pushrelay/internal/api/middleware"
	"github.com/pushrelay/pushrelay/internal/auth"
	"github.com/pushrelay/pushrelay/internal/database"
	"github.com/pushrelay/pushrelay/internal/dispatch"
	"github.com/pushrelay/pushrelay/internal/history"
	"github.com/pushrelay/pushrelay/internal/push/expo"
	"github.com/pushrelay/pushrelay/internal/push/fcm"
	"github.com/pushrelay/pushrelay/internal/telemetry"
	"github.com/pushrelay/pushrelay/internal/token"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pushrelay-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting pushrelay API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Storage: Postgres by default, in-memory when DB_DISABLED=true
	// (single-instance deployments and local development).
	var (
		pool        *pgxpool.Pool
		tokenRepo   token.Repository
		historyRepo history.Repository
		dbPinger    handler.Pinger
	)
	if os.Getenv("DB_DISABLED") == "true" {
		tokenRepo = token.NewInMemoryRepository()
		historyRepo = history.NewInMemoryRepository()
		log.Warn().Msg("database disabled - using in-memory storage")
	} else {
		dbConfig := database.ConfigFromEnv()
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		tokenRepo = token.NewPostgresRepository(pool)
		historyRepo = history.NewPostgresRepository(pool)
		dbPinger = pool
	}

	tokenService := token.NewService(tokenRepo)
	historyService := history.NewService(historyRepo)
	log.Info().Msg("token and history services initialized")

	// Initialize service-to-service JWT auth (optional)
	var jwtService *auth.JWTService
	if signingKey := os.Getenv("JWT_SIGNING_KEY"); signingKey != "" {
		jwtService = auth.NewJWTService(auth.JWTConfig{
			SigningKey: signingKey,
		})
		log.Info().Msg("service auth enabled")
	} else {
		log.Warn().Msg("JWT_SIGNING_KEY not set - delivery endpoints are unauthenticated")
	}

	adminSecret := os.Getenv("ADMIN_SECRET")
	if adminSecret == "" {
		log.Warn().Msg("ADMIN_SECRET not set - admin endpoints are disabled")
	}

	// Initialize push channels
	registration := fcm.New(fcm.Config{
		Client: newMessagingClient(ctx, log),
		Logger: log,
	})
	ticket := expo.NewClient(expo.ClientConfig{
		BaseURL: os.Getenv("EXPO_PUSH_URL"),
		Logger:  log,
	})

	// Initialize dispatcher with the invalidation reconciler
	reconciler := dispatch.NewReconciler(tokenService, 64, log)
	reconciler.Start(ctx)

	routingKey := os.Getenv("PUSH_ROUTING_KEY")
	if routingKey == "" {
		routingKey = "mobile"
	}

	dispatcher := dispatch.New(dispatch.Config{
		Tokens:       tokenService,
		History:      historyService,
		Ticket:       ticket,
		Registration: registration,
		Reconciler:   reconciler,
		RoutingKey:   routingKey,
		Logger:       log,
	})
	log.Info().Str("routing_key", routingKey).Msg("dispatcher initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		JWTService:     jwtService,
		AdminSecret:    adminSecret,
		DB:             dbPinger,
		Dispatcher:     dispatcher,
		TokenService:   tokenService,
		HistoryService: historyService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// newMessagingClient builds the Firebase messaging client, or returns nil
// when FCM is not configured. A nil client degrades FCM sends to transient
// failures instead of crashing the service.
func newMessagingClient(ctx context.Context, log zerolog.Logger) fcm.MessagingClient {
	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	if projectID == "" {
		log.Warn().Msg("FIREBASE_PROJECT_ID not set - FCM delivery disabled")
		return nil
	}

	var opts []option.ClientOption
	if credsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE"); credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize firebase app - FCM delivery disabled")
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize firebase messaging - FCM delivery disabled")
		return nil
	}

	log.Info().Str("project_id", projectID).Msg("firebase messaging initialized")
	return client
}
