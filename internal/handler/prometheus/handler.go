package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/clinic-backoffice/pkg/metrics"
)

// Handler exposes a private registry and records request metrics into it.
type Handler struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// New creates the registry the application metrics are registered on.
func New(namespace string) *Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Handler{
		registry: registry,
		metrics:  metrics.NewMetrics(namespace, registry),
	}
}

func (h *Handler) Metrics() *metrics.Metrics {
	return h.metrics
}

func (h *Handler) Registry() *prometheus.Registry {
	return h.registry
}

func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		h.metrics.Request(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
}
