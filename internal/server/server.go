package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/observability"
	obsmiddleware "github.com/smallbiznis/storefront/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/storefront/internal/observability/metrics"
	obstracing "github.com/smallbiznis/storefront/internal/observability/tracing"
	"github.com/smallbiznis/storefront/internal/ratelimit"
	webhookdomain "github.com/smallbiznis/storefront/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	catalogSvc     catalogdomain.Service
	checkoutSvc    checkoutdomain.Service
	webhookSvc     webhookdomain.Service
	webhookLimiter *ratelimit.WebhookLimiter
	obsMetrics     *obsmetrics.Metrics
	log            *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	CatalogSvc     catalogdomain.Service
	CheckoutSvc    checkoutdomain.Service
	WebhookSvc     webhookdomain.Service
	WebhookLimiter *ratelimit.WebhookLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		catalogSvc:     p.CatalogSvc,
		checkoutSvc:    p.CheckoutSvc,
		webhookSvc:     p.WebhookSvc,
		webhookLimiter: p.WebhookLimiter,
		obsMetrics:     p.ObsMetrics,
		log:            p.Log.Named("server"),
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthcheck", s.Healthcheck)

	// -------- Products --------
	s.engine.GET("/products", s.ListProducts)
	s.engine.POST("/products", s.CreateProduct)
	s.engine.GET("/products/:id", s.GetProductByID)
	s.engine.PUT("/products/:id", s.UpdateProduct)
	s.engine.PUT("/products/:id/price", s.SetProductPrice)
	s.engine.DELETE("/products/:id", s.DeleteProduct)

	// -------- Checkout --------
	s.engine.POST("/products/:id/checkout-sessions", s.CreateCheckoutSession)

	// -------- Webhook --------
	s.engine.POST("/webhook", s.WebhookRateLimit(), s.HandleWebhook)
}

func (s *Server) Healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"test_env": s.cfg.TestEnv})
}
