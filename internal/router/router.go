package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mzalewski/secadmin-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AuthHandler splits its surface: the login endpoints stay public, the
// session endpoints sit behind the session guard.
type AuthHandler interface {
	RegisterPublicRoutes(*gin.RouterGroup)
	RegisterGuardedRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	session  *middleware.SessionMiddleware
	authH    AuthHandler
	userH    Handler
	policyH  Handler
	auditH   Handler
	contentH Handler
	healthH  Handler
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	// LoginRatePerMinute caps stage-one login attempts per client IP.
	LoginRatePerMinute int
	LoginRateBurst     int
	MetricsPrefix      string
}

func NewRouter(
	session *middleware.SessionMiddleware,
	authH AuthHandler,
	userH Handler,
	policyH Handler,
	auditH Handler,
	contentH Handler,
	healthH Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:   engine,
		session:  session,
		authH:    authH,
		userH:    userH,
		policyH:  policyH,
		auditH:   auditH,
		contentH: contentH,
		healthH:  healthH,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
	)

	r.setup(config)
	return r
}

func (r *Router) setup(config Config) {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.healthH.RegisterRoutes(api)

	// Credential endpoints carry their own throttle on top of the captcha
	// gate.
	loginLimiter := middleware.NewRateLimiter(config.LoginRatePerMinute, config.LoginRateBurst)
	public := api.Group("")
	public.Use(loginLimiter.RateLimit())
	r.authH.RegisterPublicRoutes(public)

	guarded := api.Group("")
	guarded.Use(r.session.Authenticate())
	r.authH.RegisterGuardedRoutes(guarded)
	r.contentH.RegisterRoutes(guarded)

	admin := api.Group("/admin")
	admin.Use(r.session.Authenticate(), r.session.RequireAdmin())
	r.userH.RegisterRoutes(admin)
	r.policyH.RegisterRoutes(admin)
	r.auditH.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
