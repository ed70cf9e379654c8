package core

import (
	"time"
)

type Config struct {
	Mongo    MongoConfig
	Catalog  CatalogConfig
	Charts   ChartsConfig
	Sync     SyncConfig
	Auth     AuthConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type MongoConfig struct {
	URI      string
	Database string
}

type CatalogConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerSecond  float64
	CacheSize      int
	NegativeRate   float64
}

type ChartsConfig struct {
	Source          string // table, page, spotify
	ChartURL        string
	TitleCell       int
	ArtistCell      int
	StablePolls     int
	PollInterval    time.Duration
	ExtractTimeout  time.Duration
	SpotifyClientID string
	SpotifySecret   string
}

type SyncConfig struct {
	Interval    time.Duration
	RunOnStart  bool
	MaxHints    int
	Parallelism int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	ImportLimitPerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		Mongo: MongoConfig{
			URI:      "mongodb://127.0.0.1:27017",
			Database: "melodex",
		},
		Catalog: CatalogConfig{
			RequestTimeout: 10 * time.Second,
			RatePerSecond:  5,
			CacheSize:      4096,
			NegativeRate:   0.001,
		},
		Charts: ChartsConfig{
			Source:         "table",
			TitleCell:      1,
			ArtistCell:     0,
			StablePolls:    5,
			PollInterval:   500 * time.Millisecond,
			ExtractTimeout: 90 * time.Second,
		},
		Sync: SyncConfig{
			Interval:    7 * 24 * time.Hour,
			RunOnStart:  true,
			MaxHints:    30,
			Parallelism: 8,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			ImportLimitPerMinute: 3,
		},
	}
}
