package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ctrl-sourav/SkyCast/internal/cache"
	"github.com/ctrl-sourav/SkyCast/internal/config"
	"github.com/ctrl-sourav/SkyCast/internal/dashboard"
	"github.com/ctrl-sourav/SkyCast/internal/geo"
	"github.com/ctrl-sourav/SkyCast/internal/history"
	"github.com/ctrl-sourav/SkyCast/internal/httpapi"
	"github.com/ctrl-sourav/SkyCast/internal/observability"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
	"github.com/ctrl-sourav/SkyCast/internal/publish"
	"github.com/ctrl-sourav/SkyCast/internal/ratelimit"
	"github.com/ctrl-sourav/SkyCast/internal/refresh"
)

func main() {
	cfg, err := config.Load(os.Getenv("SKYCAST_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	if strings.TrimSpace(cfg.OpenWeather.APIKey) == "" {
		slog.Warn("OPENWEATHER_API_KEY is not set; upstream calls will fail as unauthorized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, promHandler, tracer, err := observability.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("observability setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry()

	displayLoc, err := cfg.DisplayLocation()
	if err != nil {
		slog.Error("invalid display timezone", "timezone", cfg.DisplayTimezone, "error", err)
		os.Exit(1)
	}

	client := owm.New(cfg.OpenWeather.APIKey,
		owm.WithBaseURL(cfg.OpenWeather.BaseURL),
		owm.WithGeoURL(cfg.OpenWeather.GeoURL),
	)
	api := owm.NewRateLimited(client, cfg.OpenWeather.RPS, cfg.OpenWeather.Burst)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = setupRedisClient(ctx, cfg.Redis)
		defer redisClient.Close()
	}

	var dashCache cache.Cache = cache.NewMemory(cfg.CacheTTL)
	if redisClient != nil {
		dashCache = cache.NewRedis(redisClient, "skycast:dashboard", cfg.CacheTTL)
	}

	opts := dashboard.Options{
		Cache:           dashCache,
		Locator:         geo.Static{Enabled: cfg.Geolocation.Enabled, Home: cfg.Geolocation.Home},
		Tracker:         dashboard.NewTracker(0),
		DisplayLocation: displayLoc,
	}

	var hist *history.Repo
	if cfg.History.Enabled {
		hist = setupHistory(cfg.History)
		opts.Recorder = hist
	}

	if cfg.MQTT.BrokerURL != "" {
		mq, err := publish.Connect(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID)
		if err != nil {
			slog.Error("mqtt connect failed", "error", err)
			os.Exit(1)
		}
		defer mq.Close()
		opts.Publisher = publish.NewPublisher(mq, cfg.MQTT.TopicPrefix)
	}

	svc := dashboard.NewService(api, opts)

	if queries := refresh.ParseLocations(cfg.Refresh.Locations); len(queries) > 0 || hist != nil {
		ropts := refresh.Options{}
		if hist != nil {
			ropts.Pruner = hist
			ropts.Retention = time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
		}
		refresher := refresh.New(svc, queries, ropts)
		if err := refresher.Start(ctx, cfg.Refresh.Cron); err != nil {
			slog.Error("refresh setup failed", "error", err)
			os.Exit(1)
		}
		defer refresher.Stop()
	}

	var historyLister httpapi.HistoryLister
	if hist != nil {
		historyLister = hist
	}
	srv := httpapi.NewServer(svc, historyLister)

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		if redisClient == nil {
			slog.Warn("rate limiting needs REDIS_ADDR; continuing without it")
		} else {
			limiter = ratelimit.New(redisClient, "skycast", ratelimit.LimiterConfig{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
		}
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(srv, limiter, promHandler, tracer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("skycast started", "port", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupRouter(srv *httpapi.Server, limiter *ratelimit.RateLimiter, promHandler http.Handler, tracer trace.Tracer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-ID"},
		ExposedHeaders:   []string{"Link", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.Middleware(tracer))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promHandler)

	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware(ratelimit.KeyBySessionOrIP))
		}
		srv.RegisterRoutes(r)
	})
	return r
}

func setupRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if pong, err := client.Ping(ctx).Result(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	} else {
		slog.Info("connected to redis", "pong", pong)
	}
	return client
}

// setupHistory prefers Postgres when a host is configured and falls back to
// a local SQLite file.
func setupHistory(cfg config.HistoryConfig) *history.Repo {
	var (
		db  *gorm.DB
		err error
	)
	if pg := cfg.Postgres; strings.TrimSpace(pg.Host) != "" {
		db, err = history.OpenPostgres(pg.User, pg.Password, pg.DBName, pg.Host, pg.Port, pg.SSLMode)
	} else {
		db, err = history.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	repo, err := history.New(db)
	if err != nil {
		slog.Error("db migrate failed", "error", err)
		os.Exit(1)
	}
	return repo
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}
