package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/opd-queue/internal/handler"
	"github.com/jwalitptl/opd-queue/internal/handler/appointment"
	"github.com/jwalitptl/opd-queue/internal/handler/doctor"
	"github.com/jwalitptl/opd-queue/internal/handler/health"
	"github.com/jwalitptl/opd-queue/internal/handler/notification"
	"github.com/jwalitptl/opd-queue/internal/handler/patient"
	"github.com/jwalitptl/opd-queue/internal/handler/queue"
	"github.com/jwalitptl/opd-queue/internal/middleware"
	"github.com/jwalitptl/opd-queue/pkg/logger"
)

type Handlers struct {
	Health       *health.Handler
	Doctor       *doctor.Handler
	Patient      *patient.Handler
	Appointment  *appointment.Handler
	Queue        *queue.Handler
	Notification *notification.Handler
}

type RouterConfig struct {
	RequestTimeout   time.Duration
	RateLimitEnabled bool
	RateLimit        float64
	RateBurst        int
	AllowedOrigins   []string
	// Gatherer backs /metrics; Registerer receives the HTTP vectors.
	Gatherer   prometheus.Gatherer
	Registerer prometheus.Registerer
	Namespace  string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	gatherer prometheus.Gatherer
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig, log *logger.Logger) *Router {
	engine := gin.New()

	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	httpMetrics := middleware.NewHTTPMetrics(config.Namespace, config.Registerer)

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		httpMetrics.Middleware(),
		middleware.CORS(config.AllowedOrigins),
		middleware.Timeout(config.RequestTimeout),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("route not found"))
	})

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		gatherer: config.Gatherer,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.handlers.Doctor.RegisterRoutes(protected, r.auth)
	r.handlers.Patient.RegisterRoutes(protected, r.auth)
	r.handlers.Appointment.RegisterRoutes(protected, r.auth)
	r.handlers.Queue.RegisterRoutes(protected, r.auth)
	r.handlers.Notification.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
