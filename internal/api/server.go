// Package api exposes the ledger over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gitlab.com/yelinaung/smart-finance/internal/config"
	"gitlab.com/yelinaung/smart-finance/internal/ledger"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

const (
	// maxUploadBytes bounds multipart uploads to /expenses/file.
	maxUploadBytes = 20 << 20

	shutdownTimeout = 15 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	cfg     *config.Config
	ledger  *ledger.Service
	limiter *limiter.Limiter
	engine  *gin.Engine
	now     func() time.Time
}

// New builds the router. The rate limit guards the routes that call Gemini.
func New(cfg *config.Config, svc *ledger.Service) (*Server, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", cfg.RateLimit, err)
	}

	s := &Server{
		cfg:     cfg,
		ledger:  svc,
		limiter: limiter.New(memory.NewStore(), rate),
		now:     time.Now,
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	r.Use(requestLogger(), gin.Recovery(), cors.New(corsConfig(s.cfg.CORSAllowedOrigins)))

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	v1.GET("/expenses", s.listExpenses)
	v1.DELETE("/expenses/:id", s.deleteExpense)
	v1.GET("/summary", s.summary)
	v1.GET("/charts/:kind", s.chart)
	v1.GET("/export.csv", s.exportCSV)

	ai := v1.Group("", rateLimit(s.limiter))
	ai.POST("/expenses/text", s.addText)
	ai.POST("/expenses/file", s.addFile)
	ai.POST("/expenses/voice", s.addVoice)
	ai.POST("/advice", s.advice)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", sessionHeader},
		ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler returns the router wrapped with OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "smart-finance-api")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", s.cfg.HTTPAddr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}
