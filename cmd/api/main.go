package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/donorkit/styleforge/internal/api"
	"github.com/donorkit/styleforge/internal/api/handlers"
	"github.com/donorkit/styleforge/internal/api/middleware"
	"github.com/donorkit/styleforge/internal/browser"
	"github.com/donorkit/styleforge/internal/cache"
	"github.com/donorkit/styleforge/internal/config"
	"github.com/donorkit/styleforge/internal/errorlog"
	"github.com/donorkit/styleforge/internal/observability"
	"github.com/donorkit/styleforge/internal/repository/postgres"
	rediscache "github.com/donorkit/styleforge/internal/repository/redis"
	"github.com/donorkit/styleforge/internal/resilience"
	"github.com/donorkit/styleforge/internal/services/styleanalysis"
	"github.com/donorkit/styleforge/internal/storage"
)

func main() {
	// A missing .env is fine outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Env, cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting StyleForge API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
	)

	checks := make(map[string]api.HealthChecker)

	// Connect to PostgreSQL (optional, enables history and cached lookups)
	var (
		store    handlers.AnalysisStore
		errSink  errorlog.Sink
		database *postgres.DB
	)
	if cfg.Database.Enabled {
		database, err = postgres.New(cfg.Database)
		if err != nil {
			logger.Warn("Failed to connect to database, persistence disabled", zap.Error(err))
		} else {
			defer database.Close()
			logger.Info("Connected to PostgreSQL",
				zap.String("host", cfg.Database.Host),
				zap.Int("port", cfg.Database.Port),
			)
			repos := postgres.NewRepositories(database.DB)
			store = repos.Analyses
			errSink = repos.Errors
			checks["database"] = database
		}
	}

	// Connect to Redis (optional, shares cache and rate limits across instances)
	var (
		limiter middleware.RateCounter
		remote  cache.Remote
	)
	if cfg.Redis.Enabled {
		redisCache, err := rediscache.New(cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, using in-process limits", zap.Error(err))
		} else {
			defer redisCache.Close()
			logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
			limiter = redisCache
			if cfg.Cache.RedisEnabled {
				remote = redisCache
			}
			checks["redis"] = redisCache
		}
	}

	// Connect to MinIO (optional, archives screenshots)
	var screenshots styleanalysis.ScreenshotStore
	if cfg.Storage.Enabled {
		minioClient, err := storage.NewMinIOClient(cfg.Storage)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = minioClient.EnsureBucket(ctx)
			cancel()
		}
		if err != nil {
			logger.Warn("Failed to initialize object storage, screenshot archiving disabled", zap.Error(err))
		} else {
			screenshots = minioClient
			logger.Info("Screenshot archiving enabled",
				zap.String("endpoint", cfg.Storage.Endpoint),
				zap.String("bucket", minioClient.Bucket()),
			)
		}
	}

	metrics := observability.NewMetrics("styleforge", nil)

	browserOpts := browser.Options{
		Headless:       cfg.Analyzer.Headless,
		NavTimeout:     cfg.Analyzer.NavTimeout,
		SettleDelay:    cfg.Analyzer.SettleDelay,
		UserAgent:      cfg.Analyzer.UserAgent,
		ViewportWidth:  cfg.Analyzer.ViewportWidth,
		ViewportHeight: cfg.Analyzer.ViewportHeight,
		OnLaunch:       metrics.RecordBrowserLaunch,
	}
	session := browser.NewSession(browserOpts, logger)

	analysisCache := cache.New(cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
		RemoteTTL:  cfg.Cache.RedisTTL,
	}, remote, logger)

	errorLog := errorlog.NewLogger(errSink, errorlog.Config{
		BufferSize:    cfg.ErrorLog.BufferSize,
		FlushInterval: cfg.ErrorLog.FlushInterval,
	}, logger)

	retry := resilience.DefaultRetryConfig()
	retry.MaxRetries = cfg.Analyzer.MaxRetries
	retry.InitialDelay = cfg.Analyzer.RetryDelay

	opts := []styleanalysis.Option{
		styleanalysis.WithRetryConfig(retry),
		styleanalysis.WithErrorLogger(errorLog),
		styleanalysis.WithMetrics(metrics),
	}
	if screenshots != nil {
		opts = append(opts, styleanalysis.WithScreenshotStore(screenshots))
	}
	analyzer := styleanalysis.NewAnalyzer(session, analysisCache, logger, opts...)

	router := api.NewRouter(api.RouterConfig{
		Analyzer:       analyzer,
		Store:          store,
		Limiter:        limiter,
		Metrics:        metrics,
		Checks:         checks,
		Logger:         logger,
		Security:       cfg.Security,
		RateLimits:     cfg.RateLimits,
		RequestTimeout: cfg.Server.WriteTimeout,
		Development:    cfg.IsDevelopment(),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           http.MaxBytesHandler(router, cfg.Server.MaxRequestSize),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Expired entries are only dropped lazily on lookup otherwise
	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	if cfg.Cache.TTL > 0 {
		go pruneCache(pruneCtx, analysisCache, cfg.Cache.TTL, metrics, logger)
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}
	}

	stopPrune()
	if err := analyzer.Shutdown(); err != nil {
		logger.Warn("Closing browser", zap.Error(err))
	}
	if err := errorLog.Close(); err != nil {
		logger.Warn("Flushing error log", zap.Error(err))
	}
	if dropped := errorLog.Dropped(); dropped > 0 {
		logger.Warn("Error log entries dropped", zap.Int64("count", dropped))
	}

	logger.Info("Server stopped gracefully")
}

func pruneCache(ctx context.Context, c *cache.AnalysisCache, every time.Duration, metrics *observability.Metrics, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				logger.Debug("Pruned expired analyses", zap.Int("removed", n))
			}
			metrics.SetCacheEntries(c.Len())
		}
	}
}

// initLogger creates a configured zap logger
func initLogger(env config.Environment, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if env == config.EnvProduction {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
