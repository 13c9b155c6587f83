package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hop-proxy/internal/config"
	"hop-proxy/internal/metrics"
	"hop-proxy/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// Local endpoints are registered first; everything else is proxied.
// m may be nil when metrics are disabled.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics) {
	security := middleware.SecurityHeaders()

	e.GET("/healthz", health.Healthz, security)
	e.GET("/proxy/status", health.Status, security)

	if m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})), security)
	}

	e.Any("/*", proxy.Handle)
}
