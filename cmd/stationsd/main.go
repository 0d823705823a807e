package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/SkrapecMateja/ChargingStations/internal/cache"
	"github.com/SkrapecMateja/ChargingStations/internal/config"
	"github.com/SkrapecMateja/ChargingStations/internal/handler"
	"github.com/SkrapecMateja/ChargingStations/internal/location"
	"github.com/SkrapecMateja/ChargingStations/internal/models"
	"github.com/SkrapecMateja/ChargingStations/internal/reachability"
	"github.com/SkrapecMateja/ChargingStations/internal/station"
	httpclient "github.com/SkrapecMateja/ChargingStations/pkg/http/client"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("stationsd exited")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	repo, err := buildRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building station cache: %w", err)
	}

	fetcher, err := station.NewClient(station.ClientOptions{
		HTTPClient: httpclient.New(httpclient.Options{
			BaseURL:    cfg.StationsBaseURL,
			Timeout:    cfg.HTTPTimeout,
			MaxRetries: cfg.MaxRetries,
		}),
	})
	if err != nil {
		return fmt.Errorf("building fetch client: %w", err)
	}

	source := location.NewManualSource()
	source.Grant()
	// Seed the configured default center so the first cycle has a fix even
	// before any client reports one.
	source.Set(models.Coordinate{
		Latitude:  cfg.DefaultLatitude,
		Longitude: cfg.DefaultLongitude,
	})

	monitor := reachability.NewProbeMonitor(reachability.ProbeOptions{
		Addr:     cfg.ProbeAddr,
		Interval: cfg.ProbeInterval,
		Logger:   log.With().Str("component", "reachability").Logger(),
	})
	monitor.Start(ctx)
	defer monitor.Close()

	provider := station.NewProvider(station.ProviderOptions{
		Repository:     repo,
		Fetcher:        fetcher,
		Location:       source,
		Reachability:   monitor,
		UpdateInterval: cfg.UpdateInterval,
		SearchRadiusKm: cfg.SearchRadiusKm,
		Logger:         log.With().Str("component", "provider").Logger(),
	})
	provider.Start()
	defer provider.Close()

	h := handler.NewStationsHandler(provider, source, log.With().Str("component", "http").Logger())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func buildRepository(ctx context.Context, cfg *config.Config) (cache.Repository, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendCloud:
		s3Client, err := cache.NewS3ClientFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating S3 client: %w", err)
		}
		dynamoClient, err := cache.NewDynamoClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating DynamoDB client: %w", err)
		}
		return cache.NewRepository(
			cache.NewS3StationStore(s3Client, cfg.S3Bucket),
			cache.NewDynamoScalarStore(dynamoClient, cfg.DynamoTable),
		), nil

	case config.CacheBackendFile:
		repo, err := cache.NewFileRepository(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("creating file cache in %s: %w", cfg.CacheDir, err)
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
