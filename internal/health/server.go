// Package health exposes the liveness endpoint hosting platforms probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"estatebot/pkg/logx"
)

type Server struct {
	srv     *http.Server
	started time.Time
	log     logx.Logger
}

func New(addr string, log logx.Logger) *Server {
	s := &Server{started: time.Now(), log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handle)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() {
	s.log.Info("health endpoint listening", logx.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Error("health server stopped", logx.Err(err))
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}
