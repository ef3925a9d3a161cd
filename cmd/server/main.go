package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/siddheshvrane/solar-dashboard/internal/api"
	"github.com/siddheshvrane/solar-dashboard/internal/archive"
	"github.com/siddheshvrane/solar-dashboard/internal/config"
	"github.com/siddheshvrane/solar-dashboard/internal/dashboard"
	"github.com/siddheshvrane/solar-dashboard/internal/docstore"
	"github.com/siddheshvrane/solar-dashboard/internal/logger"
	"github.com/siddheshvrane/solar-dashboard/internal/metrics"
	"github.com/siddheshvrane/solar-dashboard/internal/parser"
	"github.com/siddheshvrane/solar-dashboard/internal/poller"
	"github.com/siddheshvrane/solar-dashboard/internal/storage"
	"github.com/siddheshvrane/solar-dashboard/internal/telemetry"
	"github.com/siddheshvrane/solar-dashboard/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "solar-dashboard"

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	defaultConfig := filepath.Join(filepath.Dir(exePath), "SolarDashboard.config.xml")

	configPath := flag.String("config", defaultConfig, "path to the XML configuration file")
	flag.Parse()

	// Load XML configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat, serviceName)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *configPath, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, configPath string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api.ExposeErrorDetails = strings.EqualFold(cfg.Advanced.LogLevel, "debug")

	// Metrics
	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Advanced.EnableMetrics {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	// Document store
	querier, err := newQuerier(cfg, log)
	if err != nil {
		return err
	}

	// Schema parser
	opts := parser.Options{
		Location:        cfg.Location(),
		Collection:      cfg.Store.Collection,
		SolarCollection: cfg.Store.SolarCollection,
		WindCollection:  cfg.Store.WindCollection,
	}
	p, err := parser.NewRegistry(opts).GetParserByName(cfg.Store.Schema)
	if err != nil {
		return err
	}
	fetcher := telemetry.NewStoreFetcher(querier, p, cfg.Polling.StrictParsing, log.Named("fetcher"), m)

	// Snapshot cache
	cache, cachePinger, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cache.Close()

	// History archive
	var (
		sink    poller.Sink
		history api.History
		arc     *archive.Archive
	)
	if cfg.Archive.Enabled {
		arc, err = archive.Open(archive.Options{
			Path:        cfg.Archive.Path,
			Threads:     cfg.Archive.Threads,
			MemoryLimit: cfg.Archive.MemoryLimit,
		}, log.Named("archive"))
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arc.Close()
		sink, history = arc, arc
	}

	// Dashboard layout
	layout := dashboard.DefaultLayout()
	if cfg.Dashboard.LayoutFile != "" {
		if layout, err = dashboard.LoadLayout(cfg.Dashboard.LayoutFile); err != nil {
			return err
		}
	}

	// Polling
	mgr := poller.NewManager(fetcher, cache, sink, poller.Config{
		Interval:     cfg.PollInterval(),
		FetchTimeout: cfg.FetchTimeout(),
	}, log.Named("poller"), m)
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Stop()

	h := api.NewHandler(mgr, history, layout, log.Named("api"))
	health := api.NewHealthHandler(Version, mgr, cachePinger)
	hub := api.NewHub(h, log.Named("ws"), m, int64(cfg.Advanced.WebSocketMaxMessageSize)*1024)
	go hub.Run(ctx)

	e := newEcho(cfg)
	api.RegisterRoutes(e, h, health, hub)
	if cfg.Advanced.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	// Register embedded frontend if available
	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warn("failed to register static routes", zap.Error(err))
			embeddedMode = false
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath, embeddedMode)

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newQuerier(cfg *config.AppConfig, log *zap.Logger) (docstore.Querier, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		store := docstore.NewMemoryStore()
		if cfg.Store.SeedFile != "" {
			n, err := store.LoadSeedFile(cfg.Store.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("load seed file: %w", err)
			}
			log.Info("seeded in-memory store", zap.String("file", cfg.Store.SeedFile), zap.Int("documents", n))
		}
		return store, nil
	default:
		return docstore.NewRESTClient(docstore.RESTConfig{
			BaseURL:    cfg.Store.BaseURL,
			ProjectID:  cfg.Store.ProjectID,
			Database:   cfg.Store.Database,
			APIKey:     cfg.Store.APIKey,
			Timeout:    time.Duration(cfg.Store.RequestTimeout) * time.Second,
			RetryCount: cfg.Store.RetryCount,
		}, log.Named("docstore"))
	}
}

func newCache(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (storage.Store, api.Pinger, error) {
	if cfg.Cache.Backend != config.CacheRedis {
		return storage.NewMemoryStore(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	store := storage.NewRedisStore(client, cfg.Cache.KeyPrefix, cfg.CacheTTL())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
	}
	log.Info("using redis cache", zap.String("addr", cfg.Cache.RedisAddr))
	return store, store, nil
}

func newEcho(cfg *config.AppConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/metrics"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/ws" || strings.HasPrefix(path, "/api/export/")
		},
		ErrorMessage: "Request timeout",
	}))

	// Compression middleware
	if cfg.Advanced.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Advanced.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/api/ws"
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	return e
}

func printBanner(cfg *config.AppConfig, configPath string, embeddedMode bool) {
	archivePath := "disabled"
	if cfg.Archive.Enabled {
		archivePath = cfg.Archive.Path
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Renewable Energy Dashboard Server               ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Store:      %-45s║\n", cfg.Store.Driver+" / "+cfg.Store.Schema)
	fmt.Printf("║  Cache:      %-45s║\n", cfg.Cache.Backend)
	fmt.Printf("║  Interval:   %-45s║\n", cfg.PollInterval().String())
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Archive:   %-46s║\n", archivePath)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}
}
