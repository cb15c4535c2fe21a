package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/cache"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/client"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/config"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/events"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/features"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/handler"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/middleware"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/service"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/trace"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Feature flags mirror the config so behavior can be inspected and
	// toggled in one place.
	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled, "cache feed payloads in Redis")
	flags.Register(features.FeatureTraceEnabled, cfg.Trace.Enabled, "record per-stage pipeline snapshots")
	flags.Register(features.FeatureLenientStatus, cfg.Feed.LenientStatus, "warn instead of fail on non-200 feed responses")
	flags.Register(features.FeatureEventHooksEnabled, true, "publish run lifecycle events")

	// Tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "offer-recommender",
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
	}()

	// Offers client, with an optional Redis payload cache. A missing
	// Redis is degraded service, not a startup failure.
	clientOpts := []client.Option{}
	if flags.IsEnabled(features.FeatureCacheEnabled) {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Printf("WARNING: cache disabled, could not reach Redis: %v", err)
		} else {
			defer redisCache.Close()
			clientOpts = append(clientOpts, client.WithCache(redisCache, time.Duration(cfg.Cache.TTLSeconds)*time.Second))
		}
	}
	if flags.IsEnabled(features.FeatureLenientStatus) {
		clientOpts = append(clientOpts, client.WithLenientStatus())
	}
	offersClient := client.New(cfg.Feed.URL, clientOpts...)

	// Events
	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer eventManager.Shutdown()
	eventManager.Subscribe(events.EventRecommendationsComputed, func(ctx context.Context, ev events.Event) error {
		if data, ok := ev.Data.(events.RecommendationsComputedData); ok {
			log.Printf("run %s: %d recommendations for checkin %s", data.RunID, len(data.Offers), data.Checkin)
		}
		return nil
	})

	// Stage trace recorders
	svcOpts := []service.Option{service.WithEvents(eventManager)}
	if flags.IsEnabled(features.FeatureTraceEnabled) {
		if cfg.Trace.Dir != "" {
			rec, err := trace.NewFileRecorder(cfg.Trace.Dir)
			if err != nil {
				log.Fatalf("Failed to create file trace recorder: %v", err)
			}
			svcOpts = append(svcOpts, service.WithRecorder(rec))
		}
		if cfg.Trace.SQLitePath != "" {
			rec, err := trace.NewSQLiteRecorder(cfg.Trace.SQLitePath)
			if err != nil {
				log.Fatalf("Failed to create SQLite trace recorder: %v", err)
			}
			defer rec.Close()
			svcOpts = append(svcOpts, service.WithRecorder(rec))
		}
	}

	svc := service.NewService(offersClient, svcOpts...)
	h := handler.NewHandler(svc, handler.Defaults{
		Categories:    cfg.Feed.Categories,
		ExtensionDays: cfg.Feed.ExtensionDays,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Run-ID"},
		MaxAge:         300,
	}))

	// Routes
	r.Get("/recommendations", h.GetRecommendations)
	r.Get("/health", h.Health)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Feed URL: %s", cfg.Feed.URL)
	log.Printf("Default categories: %v, extension days: %d", cfg.Feed.Categories, cfg.Feed.ExtensionDays)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
