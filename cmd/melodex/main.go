// Package main provides the melodex CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"melodex/internal/auth"
	"melodex/internal/cache"
	"melodex/internal/catalog"
	"melodex/internal/charts"
	"melodex/internal/core"
	"melodex/internal/flood"
	httpserver "melodex/internal/http"
	"melodex/internal/playlist"
	"melodex/internal/saavn"
	"melodex/internal/store"
	"melodex/internal/trending"
)

const defaultServerHost = "0.0.0.0"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "melodex",
	Short: "Melodex - Music Catalog Aggregation & Resolution Engine",
	Long: `Melodex aggregates external song charts, resolves them against a streaming
catalog, and serves trending snapshots, curated browse lists and collaborative
playlists over a JSON API.`,
	RunE: runMelodex,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("mongo-uri", "mongodb://127.0.0.1:27017", "MongoDB connection URI")
	rootCmd.PersistentFlags().String("mongo-database", "melodex", "MongoDB database name")
	rootCmd.PersistentFlags().String("catalog-base-url", "", "Base URL of the streaming catalog API")
	rootCmd.PersistentFlags().Float64("catalog-rate-per-second", 5, "Catalog request rate limit")
	rootCmd.PersistentFlags().String("chart-source", "table", "Chart extractor (table, page, spotify)")
	rootCmd.PersistentFlags().String("chart-url", "", "Chart page URL or playlist locator")
	rootCmd.PersistentFlags().Int("chart-title-cell", 1, "Table cell index holding the song title")
	rootCmd.PersistentFlags().Int("chart-artist-cell", 0, "Table cell index holding the artist name")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID for the chart extractor")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret for the chart extractor")
	rootCmd.PersistentFlags().Int("sync-interval-hours", 168, "Hours between trending synchronizations")
	rootCmd.PersistentFlags().Bool("sync-run-on-start", true, "Run a trending sync at startup")
	rootCmd.PersistentFlags().Int("sync-max-hints", 30, "Maximum chart hints per sync run")
	rootCmd.PersistentFlags().Int("sync-parallelism", 8, "Concurrent resolutions per sync run")
	rootCmd.PersistentFlags().String("jwt-secret", "", "HMAC secret for bearer tokens")
	rootCmd.PersistentFlags().Int("token-ttl-hours", 24, "Bearer token lifetime in hours")
	rootCmd.PersistentFlags().String("server-host", defaultServerHost, "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Int("import-limit-per-minute", 3, "Maximum playlist imports per user per minute")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("MELODEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Mongo.URI = viper.GetString("mongo-uri")
	cfg.Mongo.Database = viper.GetString("mongo-database")

	cfg.Catalog.BaseURL = viper.GetString("catalog-base-url")
	if rate := viper.GetFloat64("catalog-rate-per-second"); rate > 0 {
		cfg.Catalog.RatePerSecond = rate
	}

	cfg.Charts.Source = viper.GetString("chart-source")
	cfg.Charts.ChartURL = viper.GetString("chart-url")
	cfg.Charts.TitleCell = viper.GetInt("chart-title-cell")
	cfg.Charts.ArtistCell = viper.GetInt("chart-artist-cell")
	cfg.Charts.SpotifyClientID = viper.GetString("spotify-client-id")
	cfg.Charts.SpotifySecret = viper.GetString("spotify-client-secret")

	if hours := viper.GetInt("sync-interval-hours"); hours > 0 {
		cfg.Sync.Interval = time.Duration(hours) * time.Hour
	}
	cfg.Sync.RunOnStart = viper.GetBool("sync-run-on-start")
	if hints := viper.GetInt("sync-max-hints"); hints > 0 {
		cfg.Sync.MaxHints = hints
	}
	if par := viper.GetInt("sync-parallelism"); par > 0 {
		cfg.Sync.Parallelism = par
	}

	cfg.Auth.JWTSecret = viper.GetString("jwt-secret")
	if hours := viper.GetInt("token-ttl-hours"); hours > 0 {
		cfg.Auth.TokenTTL = time.Duration(hours) * time.Hour
	}

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")

	if limit := viper.GetInt("import-limit-per-minute"); limit > 0 {
		cfg.App.ImportLimitPerMinute = limit
	}

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
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

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateConfig() error {
	if config.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog-base-url is required")
	}
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt-secret is required")
	}
	if config.Charts.ChartURL == "" {
		return fmt.Errorf("chart-url is required")
	}
	return nil
}

func runMelodex(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting melodex",
		zap.String("chart_source", config.Charts.Source),
		zap.Duration("sync_interval", config.Sync.Interval),
		zap.String("mongo_database", config.Mongo.Database))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.gate.Stop()

	return runServices(ctx, svcs)
}

type services struct {
	db         *mongo.Database
	scheduler  *trending.Scheduler
	httpServer *httpserver.Server
	gate       *flood.Floodgate
}

func initializeServices(ctx context.Context) (*services, error) {
	db, err := store.Connect(ctx, &config.Mongo)
	if err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}

	trackRepo := store.NewTrackRepo(db)
	playlistRepo := store.NewPlaylistRepo(db)
	trendingRepo := store.NewTrendingRepo(db)
	userRepo := store.NewUserRepo(db)

	catalogClient := saavn.NewClient(&config.Catalog, logger.Named("saavn"))
	resolutionCache := cache.New(config.Catalog.CacheSize, config.Catalog.NegativeRate)
	resolver := catalog.NewResolver(catalogClient, resolutionCache, logger.Named("resolver"))
	browser := catalog.NewBrowser(catalogClient, logger.Named("browse"))

	extractor, err := createChartExtractor()
	if err != nil {
		return nil, err
	}

	synchronizer := trending.NewSynchronizer(
		extractor, resolver, trendingRepo, config.Charts.ChartURL, &config.Sync,
		logger.Named("trending"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpserver.NewMetrics(registry)

	syncWithMetrics := func(ctx context.Context) (core.SyncSummary, error) {
		summary, err := synchronizer.Synchronize(ctx)
		if err != nil {
			metrics.RecordSyncRun("error", 0)
			return summary, err
		}
		metrics.RecordSyncRun("ok", summary.Count)
		return summary, nil
	}
	scheduler := trending.NewScheduler(&config.Sync, syncWithMetrics, logger.Named("scheduler"))

	authService := auth.NewService(userRepo, config.Auth, logger.Named("auth"))
	playlistService := playlist.NewService(
		playlistRepo, trackRepo, userRepo, resolver, extractor,
		config.Sync.Parallelism, logger.Named("playlist"))
	gate := flood.New(config.App.ImportLimitPerMinute)

	httpServer := httpserver.NewServer(&config.Server, httpserver.Deps{
		Resolver:  resolver,
		Trending:  &trendingFacade{synchronizer: synchronizer, sync: syncWithMetrics},
		Browser:   browser,
		Playlists: playlistService,
		Auth:      authService,
		Gate:      gate,
		Ready: func(ctx context.Context) error {
			return db.Client().Ping(ctx, readpref.Primary())
		},
	}, metrics, logger.Named("http"))

	return &services{
		db:         db,
		scheduler:  scheduler,
		httpServer: httpServer,
		gate:       gate,
	}, nil
}

// trendingFacade routes manual syncs through the same metric wrapper the
// scheduler uses.
type trendingFacade struct {
	synchronizer *trending.Synchronizer
	sync         trending.SyncFunc
}

func (f *trendingFacade) Snapshot(ctx context.Context) ([]core.Track, error) {
	return f.synchronizer.Snapshot(ctx)
}

func (f *trendingFacade) Synchronize(ctx context.Context) (core.SyncSummary, error) {
	return f.sync(ctx)
}

func createChartExtractor() (core.ChartExtractor, error) {
	switch config.Charts.Source {
	case "table":
		return charts.NewTableScraper(&config.Charts, logger.Named("charts")), nil
	case "spotify":
		if config.Charts.SpotifyClientID == "" || config.Charts.SpotifySecret == "" {
			return nil, fmt.Errorf("spotify chart source requires client credentials")
		}
		return charts.NewSpotifyExtractor(&config.Charts, logger.Named("charts")), nil
	case "page":
		return nil, fmt.Errorf("page chart source requires an embedded browser driver, none is bundled")
	default:
		return nil, fmt.Errorf("unknown chart source %q", config.Charts.Source)
	}
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.scheduler.Run(gCtx)
	})

	logger.Info("Melodex started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Melodex stopped with error", zap.Error(err))
		disconnect(svcs.db)
		return err
	}

	disconnect(svcs.db)
	logger.Info("Melodex stopped gracefully")
	return nil
}

func disconnect(db *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Client().Disconnect(ctx); err != nil {
		logger.Debug("Failed to disconnect from store gracefully", zap.Error(err))
	}
}
