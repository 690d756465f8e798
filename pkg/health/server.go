// Package health serves liveness and readiness endpoints for the bridge
// process.
package health

import (
	"context"
	"net/http"
	"time"
)

// Server exposes /health and /ready.
type Server struct {
	srv *http.Server
}

// NewServer builds a health server listening on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handle)
	mux.HandleFunc("/ready", handle)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func handle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
