package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all dashboard settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed hosting and retrieval.
	DataDir     string
	FeedBaseURL string
	FeedTimeout time.Duration

	// Presentation.
	MapOutput     string
	PulseInterval time.Duration
	UploadDelay   time.Duration

	// Mapbox reverse geocoding, used by the feed generator to fill street names.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	// Zero disables the client timeout entirely.
	feedTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FEED_TIMEOUT", "30s"))
	if err != nil || feedTimeout < 0 {
		return nil, errors.New("invalid FEED_TIMEOUT")
	}

	pulseInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("PULSE_INTERVAL", "500ms"))
	if err != nil || pulseInterval <= 0 {
		return nil, errors.New("invalid PULSE_INTERVAL")
	}

	uploadDelay, err := time.ParseDuration(sharedcfg.EnvOrDefault("UPLOAD_DELAY", "2s"))
	if err != nil || uploadDelay < 0 {
		return nil, errors.New("invalid UPLOAD_DELAY")
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:     parseDataDir(),
		FeedBaseURL: sharedcfg.EnvOrDefault("FEED_BASE_URL", "http://localhost:8080/data/"),
		FeedTimeout: feedTimeout,

		MapOutput:     sharedcfg.EnvOrDefault("MAP_OUTPUT", "map.geojson"),
		PulseInterval: pulseInterval,
		UploadDelay:   uploadDelay,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.FeedBaseURL == "" {
		return nil, errors.New("FEED_BASE_URL is required")
	}
	if cfg.DataDir == "" && servesOwnFeed(cfg.FeedBaseURL, cfg.HTTPAddr) {
		return nil, errors.New("FEED_BASE_URL points at this server but DATA_DIR is empty")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// parseDataDir defaults to data/feed when DATA_DIR is unset. An explicitly
// empty DATA_DIR disables feed hosting.
func parseDataDir() string {
	if v, ok := os.LookupEnv("DATA_DIR"); ok {
		return v
	}
	return "data/feed"
}

// servesOwnFeed reports whether feedURL addresses the local HTTP listener.
func servesOwnFeed(feedURL, httpAddr string) bool {
	u, err := url.Parse(feedURL)
	if err != nil {
		return false
	}
	listenHost, listenPort, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return false
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	if port != listenPort {
		return false
	}

	switch host := u.Hostname(); host {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return host != "" && host == listenHost
	}
}
