// Package admin serves health, status and metrics endpoints for a running
// gateway connection.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vgate/pkg/gateway"
)

// StatusSource reports the connection status. *gateway.Manager implements it.
type StatusSource interface {
	Status() gateway.Status
}

type healthResponse struct {
	Status string        `json:"status"`
	State  gateway.State `json:"state"`
}

// NewRouter returns the admin routes. A nil gatherer disables /metrics.
func NewRouter(src StatusSource, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		st := src.Status()
		resp := healthResponse{Status: "ok", State: st.State}
		code := http.StatusOK
		if st.State != gateway.StateReady {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Status())
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server runs the admin router on its own listener.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server for addr. A nil logger uses slog.Default().
func NewServer(addr string, src StatusSource, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(src, gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "admin"),
	}
}

// Start listens on the configured address and serves in the background.
// It returns the bound address.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server failed", "error", err)
		}
	}()
	return ln.Addr(), nil
}

// Shutdown stops the server, waiting for active requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
