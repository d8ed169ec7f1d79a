// Package main provides the entrypoint for the pushrelay delivery worker.
// The worker consumes delivery events from Pub/Sub and pushes them through
// the dispatcher in delivery-only mode.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/pushrelay/pushrelay/internal/database"
	"github.com/pushrelay/pushrelay/internal/dispatch"
	"github.com/pushrelay/pushrelay/internal/history"
	"github.com/pushrelay/pushrelay/internal/push/expo"
	"github.com/pushrelay/pushrelay/internal/push/fcm"
	"github.com/pushrelay/pushrelay/internal/telemetry"
	"github.com/pushrelay/pushrelay/internal/token"
	"github.com/pushrelay/pushrelay/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pushrelay-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting pushrelay worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID == "" || subscription == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION are required")
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Storage: Postgres by default, in-memory when DB_DISABLED=true.
	var (
		tokenRepo   token.Repository
		historyRepo history.Repository
	)
	if os.Getenv("DB_DISABLED") == "true" {
		tokenRepo = token.NewInMemoryRepository()
		historyRepo = history.NewInMemoryRepository()
		log.Warn().Msg("database disabled - using in-memory storage")
	} else {
		dbConfig := database.ConfigFromEnv()
		pool, connErr := database.Connect(ctx, dbConfig)
		if connErr != nil {
			log.Fatal().Err(connErr).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("database connected")

		tokenRepo = token.NewPostgresRepository(pool)
		historyRepo = history.NewPostgresRepository(pool)
	}

	tokenService := token.NewService(tokenRepo)
	historyService := history.NewService(historyRepo)

	registration := fcm.New(fcm.Config{
		Client: newMessagingClient(ctx, log),
		Logger: log,
	})
	ticket := expo.NewClient(expo.ClientConfig{
		BaseURL: os.Getenv("EXPO_PUSH_URL"),
		Logger:  log,
	})

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

	pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		Dispatcher:       dispatcher,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if closeErr := pubsubHandler.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Receive blocks until ctx is cancelled.
	receiveDone := make(chan error, 1)
	go func() {
		receiveDone <- pubsubHandler.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
	case err := <-receiveDone:
		if err != nil {
			log.Error().Err(err).Msg("pubsub receive failed")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// newMessagingClient builds the Firebase messaging client, or returns nil
// when FCM is not configured.
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
