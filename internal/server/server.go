// Package server exposes health, metrics, summaries and manual runs over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/salesanalytics/internal/config"
	"github.com/railzwaylabs/salesanalytics/internal/observability"
	"github.com/railzwaylabs/salesanalytics/internal/runlock"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(Serve),
)

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	svc     domain.Service
	ledger  runlock.Ledger
	metrics *observability.Metrics
	db      *gorm.DB
	redis   *redis.Client
}

type ServerParams struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Service domain.Service
	Ledger  runlock.Ledger         `optional:"true"`
	Metrics *observability.Metrics `optional:"true"`
	DB      *gorm.DB               `optional:"true"`
	Redis   *redis.Client          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		cfg:     p.Cfg,
		log:     p.Log.Named("server"),
		svc:     p.Service,
		ledger:  p.Ledger,
		metrics: p.Metrics,
		db:      p.DB,
		redis:   p.Redis,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.RequestLogger())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.Health)
	r.GET("/readyz", s.Ready)
	r.GET("/metrics", s.Metrics())

	v1 := r.Group("/v1")
	v1.GET("/dates", s.ListDates)
	v1.GET("/summaries/:date", s.GetSummary)
	v1.GET("/runs/:date", s.GetLastRun)
	v1.POST("/runs/:date", s.TriggerRun)
	v1.POST("/backfills", s.TriggerBackfill)
}

// RequestLogger logs one line per request.
func (s *Server) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Serve runs the HTTP server for the lifetime of the app.
func Serve(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
