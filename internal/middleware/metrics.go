package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the HTTP metrics collector. It registers with the default registry
// so /metrics also serves the domain counters; later calls return the same collector.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.NewWithRegistry(prometheus.DefaultRegisterer, serviceName, "eureka", "http", nil)
	})
	return prom
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
