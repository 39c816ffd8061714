package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/auth"
	"github.com/jmehdipour/paywall/internal/config"
	"github.com/jmehdipour/paywall/internal/http/middleware"
	"github.com/jmehdipour/paywall/internal/metrics"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
	"github.com/jmehdipour/paywall/internal/service/catalog"
	"github.com/jmehdipour/paywall/internal/service/contact"
	"github.com/jmehdipour/paywall/internal/service/review"
	"github.com/jmehdipour/paywall/internal/webhook"
)

// SettingsStore is the read-through settings cache.
type SettingsStore interface {
	Active(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, s *model.Settings) error
}

type Retrier interface {
	RetryNow(ctx context.Context, id int64) (*model.WebhookEvent, error)
}

type Sweeper interface {
	SweepOnce(ctx context.Context) webhook.SweepStats
}

type PaymentHandler interface {
	HandleStatus(ctx context.Context, gatewayID, channel string) (*model.Payment, error)
}

// Deps is everything the HTTP surface needs; the composition root fills it.
type Deps struct {
	Settings SettingsStore
	Events   repository.WebhookEventsRepository
	Attempts repository.AttemptLogRepository // optional, ClickHouse
	Retrier  Retrier
	Sweeper  Sweeper

	Catalog  *catalog.Service
	Reviews  *review.Service
	Contact  *contact.Service
	Payments PaymentHandler
	Auth     *auth.Service

	Redis  *redis.Client
	Logger *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), echoMid.Logger())
	if cfg.Log.Level == "debug" {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         cfg.RateLimit.Window,
		RetryAfterHint: true,
	})
	adminMW := middleware.AdminAuth(d.Auth)

	// public routes
	v1 := e.Group("/v1")
	v1.GET("/contents/:slug", getContentHandler(d.Catalog, d.Reviews))
	v1.POST("/contents/:slug/access", registerAccessHandler(d.Catalog), rlMW)
	v1.POST("/contents/:slug/reviews", submitReviewHandler(d.Reviews), rlMW)
	v1.POST("/contact", contactHandler(d.Contact), rlMW)
	v1.POST("/payments/callback", paymentCallbackHandler(d.Payments), middleware.GatewayToken(cfg.Gateway.Token))
	v1.POST("/admin/login", loginHandler(d.Auth), rlMW)

	// admin routes
	admin := v1.Group("/admin", adminMW)
	admin.GET("/settings/webhook", getWebhookSettingsHandler(d.Settings))
	admin.PUT("/settings/webhook", putWebhookSettingsHandler(d.Settings))

	admin.GET("/webhooks/events", listEventsHandler(d.Events))
	admin.GET("/webhooks/events/:id", getEventHandler(d.Events))
	admin.POST("/webhooks/events/:id/retry", retryEventHandler(d.Retrier))
	admin.GET("/webhooks/events/:id/attempts", listAttemptsHandler(d.Attempts))
	admin.GET("/webhooks/stats", statsHandler(d.Events, d.Attempts))
	admin.POST("/webhooks/sweep", sweepHandler(d.Sweeper))

	admin.GET("/contents", listContentsHandler(d.Catalog))
	admin.POST("/contents", createContentHandler(d.Catalog))
	admin.PUT("/contents/:id", updateContentHandler(d.Catalog))
	admin.POST("/contents/:id/publish", publishContentHandler(d.Catalog))
	admin.POST("/reviews/:id/approve", approveReviewHandler(d.Reviews))
	admin.DELETE("/reviews/:id", deleteReviewHandler(d.Reviews))

	return &Server{e: e, log: d.Logger}
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// Handlers below are small and share these helpers.

const defaultPage = 50

func pathID(c echo.Context) (int64, bool) {
	id, err := parseInt64(c.Param("id"))
	return id, err == nil && id > 0
}

func since(c echo.Context, def time.Duration) time.Time {
	if d, err := time.ParseDuration(c.QueryParam("window")); err == nil && d > 0 {
		return time.Now().Add(-d)
	}
	return time.Now().Add(-def)
}
