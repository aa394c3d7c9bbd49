package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-backoffice/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-backoffice/internal/middleware"
	"github.com/jwalitptl/clinic-backoffice/pkg/logger"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode         string
	RateLimit    rate.Limit
	RateBurst    int
	MaxBodyBytes int64
	MetricsPath  string
}

type Handlers struct {
	Health      Handler
	Consulted   Handler
	Appointment Handler
	Payment     Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	metrics  *prometheus.Handler
	handlers Handlers
	config   RouterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	metrics *prometheus.Handler,
	handlers Handlers,
	log *logger.Logger,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		metrics.Middleware(),
		middleware.ErrorHandler(),
		middleware.BodyLimit(config.MaxBodyBytes),
	)
	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return &Router{
		engine:   engine,
		auth:     auth,
		metrics:  metrics,
		handlers: handlers,
		config:   config,
	}
}

func (r *Router) Setup() {
	r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(&r.engine.RouterGroup)
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range []Handler{r.handlers.Consulted, r.handlers.Appointment, r.handlers.Payment} {
		if h != nil {
			h.RegisterRoutes(protected)
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
