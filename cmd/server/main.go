package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bookline/backend/internal/config"
	"github.com/bookline/backend/internal/db"
	"github.com/bookline/backend/internal/geocode"
	httpapi "github.com/bookline/backend/internal/http"
	"github.com/bookline/backend/internal/ratelimit"
	"github.com/bookline/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "bookline-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate db")
	}

	chain := &geocode.Chain{
		Primary:  &geocode.NominatimGeocoder{BaseURL: cfg.GeocoderURL, UserAgent: "bookline-backend"},
		Fallback: &geocode.PhotonGeocoder{BaseURL: cfg.GeocoderFallback},
	}
	geocoder := geocode.NewCache(store.Geocode(), chain, cfg.GeocodeTTL, logger)

	var limiterStore ratelimit.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiterStore = ratelimit.NewRedisStore(client)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("rate limits backed by redis")
	} else {
		limiterStore = ratelimit.NewMemoryStore()
		logger.Info().Msg("rate limits are per-instance (in-memory store)")
	}
	limiter := ratelimit.New(limiterStore, map[string]ratelimit.Limit{
		httpapi.EndpointSearch:   {Requests: cfg.SearchRateLimit, Window: cfg.SearchRateWindow},
		httpapi.EndpointDelegate: {Requests: cfg.DelegateRateLimit, Window: cfg.DelegateRateWindow},
	})

	analytics := service.NewAnalytics(store, cfg.AnalyticsQueueSize, logger)
	defer analytics.Close()

	deps := httpapi.Deps{
		DB:        store,
		Search:    service.NewSearch(store, analytics),
		Delegator: service.NewDelegator(store, store, analytics),
		Analytics: analytics,
		Geocoder:  geocoder,
		Limiter:   limiter,
	}
	router := httpapi.Router(cfg, deps, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if n, err := geocoder.Sweep(sweepCtx); err != nil {
					logger.Warn().Err(err).Msg("geocode sweep failed")
				} else if n > 0 {
					logger.Info().Int64("deleted", n).Msg("geocode sweep")
				}
				cancel()
			case <-sweepDone:
				return
			}
		}
	}()

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(sweepDone)

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
