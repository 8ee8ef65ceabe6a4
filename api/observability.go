package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "mock_server"

// MetricsMiddleware records request counts and latencies into reg.
func MetricsMiddleware(reg prometheus.Registerer) (echo.MiddlewareFunc, error) {
	return echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: reg,
	}.ToMiddleware()
}

// NewMetricsServer returns an Echo instance exposing reg at /metrics. It runs
// on its own port so the task API keeps only the task routes.
func NewMetricsServer(reg prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	return e
}
