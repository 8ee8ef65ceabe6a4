package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"mock-server/api"
	"mock-server/storage"
)

func main() {
	cfg, err := loadConfig(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg)

	var (
		opts      []storage.Option
		publisher *api.ChangePublisher
		rc        *redis.Client
	)
	if cfg.redisConn != "" {
		redisOpts, err := storage.ParseRedisOptions(cfg.redisConn)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		rc = redis.NewClient(redisOpts)
		feed := storage.NewRedisFeed(rc, cfg.feed)
		publisher = api.NewChangePublisher(feed, api.PublisherConfig{Buffer: cfg.feedBuffer, Timeout: cfg.feedTimeout}, logger)
		opts = append(opts, storage.WithObserver(publisher.Notify))
		logger.WithFields(log.Fields{"stream": cfg.feed.Stream, "channel": cfg.feed.Channel}).Info("redis change feed enabled")
	}
	store := storage.NewMemory(opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))

	var metricsSrv *echo.Echo
	if cfg.metricsPort != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		mw, err := api.MetricsMiddleware(reg)
		if err != nil {
			logger.Fatalf("metrics: %v", err)
		}
		e.Use(mw)
		metricsSrv = api.NewMetricsServer(reg)
		go func() {
			if err := metricsSrv.Start(":" + cfg.metricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	api.Register(e, store, api.Config{MaxBodyBytes: cfg.maxBodyBytes}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("task mock listening on :%s", cfg.port)
		if err := e.Start(":" + cfg.port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("metrics shutdown: %v", err)
		}
	}
	if publisher != nil {
		publisher.Close()
	}
	if rc != nil {
		if err := rc.Close(); err != nil {
			logger.Errorf("redis close: %v", err)
		}
	}
}

func newLogger(cfg config) *log.Logger {
	logger := log.New()
	if cfg.debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.jsonLogs {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger
}
