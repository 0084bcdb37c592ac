package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/gpumon/internal/pipeline"
	"github.com/user/gpumon/internal/storage"
)

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	started := make(chan error, 1)
	go func() {
		sum, err := s.runner.Run(s.runCtx)
		if errors.Is(err, pipeline.ErrRunInProgress) {
			started <- err
			return
		}
		started <- nil
		if err != nil {
			s.logger.Error("triggered run failed", zap.Error(err))
			return
		}
		s.logger.Info("triggered run finished", zap.Int("collected", sum.Collected))
	}()

	// A run that is rejected fails immediately; a run that starts is still busy.
	select {
	case err := <-started:
		if err != nil {
			s.respondWithError(w, http.StatusConflict, err.Error())
			return
		}
	case <-time.After(100 * time.Millisecond):
	}
	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "run started"})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Latest(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNoReport) {
			s.respondWithError(w, http.StatusNotFound, "no report published yet")
			return
		}
		s.logger.Error("failed to read latest report", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not retrieve report")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"postgres": "healthy", "redis": "healthy"}

	if err := s.database.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	}
	if err := s.reports.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	}

	// Without postgres runs still land in the csv fallback; redis is required.
	if healthStatus["redis"] != "healthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
