package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mock-server/storage"
)

type config struct {
	port            string
	debug           bool
	jsonLogs        bool
	maxBodyBytes    int64
	redisConn       string
	feed            storage.FeedConfig
	feedBuffer      int
	feedTimeout     time.Duration
	metricsPort     string
	shutdownTimeout time.Duration
}

// maxBodyLimit bounds MAX_BODY_BYTES at 1 GiB.
const maxBodyLimit = 1 << 30

type lookupFunc func(string) (string, bool)

func loadConfig(lookup lookupFunc) (config, error) {
	cfg := config{
		port:            "5000",
		maxBodyBytes:    1 << 20,
		feed:            storage.FeedConfig{Stream: storage.DefaultFeedStream, Channel: storage.DefaultFeedChannel, MaxLen: storage.DefaultFeedMaxLen},
		feedBuffer:      1024,
		feedTimeout:     2 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}

	var err error
	if v, ok := lookup("PORT"); ok && v != "" {
		if cfg.port, err = envPort("PORT", v); err != nil {
			return config{}, err
		}
	}
	if v, ok := lookup("DEBUG"); ok && v != "" {
		dbg, perr := strconv.ParseBool(v)
		if perr != nil {
			return config{}, fmt.Errorf("invalid DEBUG: %w", perr)
		}
		cfg.debug = dbg
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		switch strings.ToLower(v) {
		case "json":
			cfg.jsonLogs = true
		case "text":
		default:
			return config{}, fmt.Errorf("invalid LOG_FORMAT %q: want text or json", v)
		}
	}
	if cfg.maxBodyBytes, err = envInt64(lookup, "MAX_BODY_BYTES", cfg.maxBodyBytes); err != nil {
		return config{}, err
	}
	if cfg.maxBodyBytes > maxBodyLimit {
		return config{}, fmt.Errorf("invalid MAX_BODY_BYTES: must not exceed %d", int64(maxBodyLimit))
	}
	if v, ok := lookup("REDIS_CONNECTION_STRING"); ok {
		cfg.redisConn = strings.TrimSpace(v)
	}
	if v, ok := lookup("CHANGE_FEED_STREAM"); ok {
		cfg.feed.Stream = v
	}
	if v, ok := lookup("CHANGE_FEED_CHANNEL"); ok {
		cfg.feed.Channel = v
	}
	if cfg.feed.MaxLen, err = envInt64(lookup, "CHANGE_FEED_MAXLEN", cfg.feed.MaxLen); err != nil {
		return config{}, err
	}
	buf, err := envInt64(lookup, "CHANGE_FEED_BUFFER", int64(cfg.feedBuffer))
	if err != nil {
		return config{}, err
	}
	cfg.feedBuffer = int(buf)
	if cfg.feedTimeout, err = envDur(lookup, "CHANGE_FEED_TIMEOUT", cfg.feedTimeout); err != nil {
		return config{}, err
	}
	if v, ok := lookup("METRICS_PORT"); ok && v != "" {
		if cfg.metricsPort, err = envPort("METRICS_PORT", v); err != nil {
			return config{}, err
		}
		if cfg.metricsPort == cfg.port {
			return config{}, fmt.Errorf("METRICS_PORT must differ from PORT")
		}
	}
	if cfg.shutdownTimeout, err = envDur(lookup, "SHUTDOWN_TIMEOUT", cfg.shutdownTimeout); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func envPort(name, v string) (string, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("invalid %s %q: must be a port number", name, v)
	}
	return strconv.Itoa(n), nil
}

func envInt64(lookup lookupFunc, name string, def int64) (int64, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", name)
	}
	return n, nil
}

func envDur(lookup lookupFunc, name string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", name)
	}
	return d, nil
}
