package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	promhandler "github.com/jwalitptl/medinfo-api/internal/handler/prometheus"
	"github.com/jwalitptl/medinfo-api/internal/middleware"
	"github.com/jwalitptl/medinfo-api/pkg/httputil"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers are mounted under /api, except Health which is mounted at the root.
type Handlers struct {
	Health    Handler
	Medicine  Handler
	Auth      Handler
	Chatbot   Handler
	Pharmacy  Handler
	Translate Handler
}

type Router struct {
	engine   *gin.Engine
	handlers Handlers
	metrics  *routerMetrics
	config   RouterConfig
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	Mode             string
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	MaxUploadBytes   int64
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
	CORSConfig       middleware.CORSConfig
	MetricsEnabled   bool
	MetricsPath      string
	MetricsPrefix    string
	// Registry receives the HTTP metrics and is served on MetricsPath.
	Registry *prometheus.Registry
}

func NewRouter(handlers Handlers, config RouterConfig, logger zerolog.Logger) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	middleware.RegisterValidators()

	engine := gin.New()

	r := &Router{
		engine:   engine,
		handlers: handlers,
		metrics:  initRouterMetrics(config.MetricsPrefix, config.Registry),
		config:   config,
	}

	skip := []string{"/health/live", "/health/ready", config.MetricsPath}

	// Add core middlewares
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		r.metricsMiddleware(),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		limits := config.RateLimit
		limits.SkipPaths = append(limits.SkipPaths, skip...)
		engine.Use(middleware.NewRateLimiter(limits).RateLimit())
	}

	engine.Use(
		middleware.SizeLimit(middleware.SizeLimitConfig{
			MaxBodySize:   config.MaxBodyBytes,
			MaxUploadSize: config.MaxUploadBytes,
			SkipPaths:     skip,
		}),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
	)

	r.setup()
	return r
}

func (r *Router) setup() {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(&r.engine.RouterGroup)
	}
	if r.config.MetricsEnabled && r.config.Registry != nil {
		r.engine.GET(r.config.MetricsPath, promhandler.New(r.config.Registry).Handler())
	}

	r.engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithMessage(c, http.StatusNotFound, "Not found")
	})

	api := r.engine.Group("/api")
	for _, h := range []Handler{
		r.handlers.Medicine,
		r.handlers.Auth,
		r.handlers.Chatbot,
		r.handlers.Pharmacy,
		r.handlers.Translate,
	} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Metrics initialization and middleware
func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	if prefix == "" {
		prefix = "medinfo"
	}
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_http_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	}
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := c.Writer.Status()
		status := strconv.Itoa(code)
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		switch {
		case code >= 500:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case code >= 400:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}
