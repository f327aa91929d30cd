package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/curbfleet/mds-provider/internal/api/handlers"
	"github.com/curbfleet/mds-provider/internal/api/middleware"
	"github.com/curbfleet/mds-provider/internal/apierror"
	"github.com/curbfleet/mds-provider/internal/auth"
	"github.com/curbfleet/mds-provider/internal/config"
	"github.com/curbfleet/mds-provider/internal/ident"
	"github.com/curbfleet/mds-provider/internal/transform"
	"github.com/curbfleet/mds-provider/internal/warehouse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting MDS provider",
		zap.String("port", cfg.ServerPort),
		zap.String("provider_id", cfg.ProviderID.String()),
		zap.String("warehouse", cfg.WarehouseBackend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	middleware.RegisterMetrics()

	// Connect the warehouse backend.
	source, err := newSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect warehouse", zap.Error(err))
	}
	defer source.Close()

	// Identity and transforms.
	ids := ident.NewDeriver(cfg.ProviderID)

	defaults := transform.StandardDefaults()
	defaults.Manufacturer = cfg.Manufacturer
	defaults.FallbackLat = cfg.FallbackLat
	defaults.FallbackLng = cfg.FallbackLng
	tf := transform.New(cfg.ProviderID, ids, defaults)

	// Auth: static API keys plus Auth0-issued JWTs.
	keys := auth.NewKeyStore()
	if err := keys.Load(cfg.APIKeyEntries); err != nil {
		logger.Fatal("Failed to load API keys", zap.Error(err))
	}

	issuer := "https://" + cfg.AuthDomain + "/"
	cache := auth.NewKeyCache(auth.NewHTTPFetcher(cfg.AuthDomain))
	gate := auth.NewGate(
		cfg.ProviderSlug,
		cfg.AllowedProviders,
		auth.NewAPIKeyVerifier(keys),
		auth.NewJWTVerifier(cache, issuer, cfg.AuthAudience),
	)

	handler := handlers.New(
		logger,
		source,
		tf,
		ids,
		keys,
		cfg.ProviderID,
		cfg.Roster,
		cfg.OperationsStart,
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered", zap.Any("panic", recovered))
		apierror.Abort(c, apierror.Internal())
	}))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ConcurrencyGate(cfg.MaxConcurrentRequests))
	router.Use(auth.Middleware(gate, logger))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newSource builds the configured warehouse backend. The memory backend
// serves local development and starts empty.
func newSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (warehouse.Source, error) {
	switch cfg.WarehouseBackend {
	case "bigquery":
		return warehouse.NewBigQuery(ctx, warehouse.BigQueryConfig{
			ProjectID:      cfg.BigQueryProject,
			LocationsTable: cfg.LocationsTable,
			JobsTable:      cfg.JobsTable,
			EventsTable:    cfg.EventsTable,
			MinAccuracy:    cfg.MinAccuracy,
			RetentionDays:  cfg.RetentionDays,
			Roster:         cfg.Roster,
			Workers:        cfg.QueryWorkers,
		}, logger)
	case "postgres":
		return warehouse.NewPostgres(ctx, warehouse.PostgresConfig{
			DatabaseURL:   cfg.DatabaseURL,
			MinAccuracy:   cfg.MinAccuracy,
			RetentionDays: cfg.RetentionDays,
			Roster:        cfg.Roster,
			MaxConns:      cfg.QueryWorkers,
		}, logger)
	case "memory":
		return warehouse.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown warehouse backend %q", cfg.WarehouseBackend)
	}
}

// initLogger builds the zap logger, colorized in debug mode.
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}
