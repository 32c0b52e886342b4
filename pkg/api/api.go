package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/config"
	"github.com/telekom/csv-mailer/pkg/metrics"
	"github.com/telekom/csv-mailer/pkg/ratelimit"
	"github.com/telekom/csv-mailer/pkg/system"
	"github.com/telekom/csv-mailer/pkg/version"
)

// DefaultShutdownTimeout bounds how long in-flight requests (including
// running send batches) may take to finish once Listen's context is canceled.
const DefaultShutdownTimeout = 2 * time.Minute

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin         *gin.Engine
	config      config.Config
	log         *zap.Logger
	rateLimiter *ratelimit.IPRateLimiter

	shutdownTimeout time.Duration
}

func NewServer(log *zap.Logger, cfg config.Config, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		system.RequestLogger(log.Sugar()),
	)

	if len(cfg.Server.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			log.Warn("Invalid trusted proxies, ignoring", zap.Strings("trustedProxies", cfg.Server.TrustedProxies), zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	if debug {
		origins := append([]string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.AllowedOrigins...)
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins:  origins,
				AllowMethods:  []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:  []string{"Origin", "Content-Type", system.RequestIDHeader},
				ExposeHeaders: []string{system.RequestIDHeader},
				MaxAge:        12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:             engine,
		config:          cfg,
		log:             log,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	if !cfg.RateLimit.Disabled {
		s.rateLimiter = ratelimit.New(ratelimit.FromConfig(cfg.RateLimit))
	}

	engine.GET("healthz", s.healthz)
	engine.GET("metrics", gin.WrapH(metrics.MetricsHandler()))
	engine.GET("api/version", s.getVersion)

	return s
}

func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.Middleware())
	}
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return fmt.Errorf("registering controller at %q: %w", c.BasePath(), err)
		}
	}
	return nil
}

// Handler exposes the engine, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// SetShutdownTimeout changes the graceful shutdown bound used by Listen.
// Non-positive values are ignored.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

// Close stops background goroutines. Safe to call more than once.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// Listen serves until ctx is canceled, then shuts down gracefully. TLS is used
// when both a certificate and a key are configured.
func (s *Server) Listen(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.ListenAddress,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != ""
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server",
			zap.String("address", srv.Addr),
			zap.Bool("tls", useTLS))
		var err error
		if useTLS {
			err = srv.ListenAndServeTLS(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetBuildInfo())
}
