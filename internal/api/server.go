package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/gpumon/internal/monitoring"
	"github.com/user/gpumon/internal/pipeline"
)

// Runner starts a pipeline run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// ReportReader serves the latest published report.
type ReportReader interface {
	Latest(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

// Pinger checks a dependency's health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the ops HTTP server.
type Server struct {
	router     http.Handler
	httpServer *http.Server
	runner     Runner
	reports    ReportReader
	database   Pinger
	gatherer   prometheus.Gatherer
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	// runCtx outlives the request that triggered a run.
	runCtx context.Context
}

func NewServer(ctx context.Context, port string, r Runner, reports ReportReader, db Pinger, g prometheus.Gatherer, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		runner:   r,
		reports:  reports,
		database: db,
		gatherer: g,
		metrics:  m,
		logger:   l,
		runCtx:   ctx,
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
