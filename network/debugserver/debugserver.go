package debugserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/buildinfo"
	"github.com/ozontech/seq-registry/logger"
)

type Server struct {
	server *http.Server
}

func New(addr string, ready *atomic.Bool) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           Handler(ready),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Start() {
	logger.Info("debug listen started", zap.String("addr", s.server.Addr))
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("failed to start listen on debug addr", zap.Error(err))
	}
}

func (s *Server) Stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("shutdown debug server", zap.Error(err))
		return
	}
	logger.Info("shutdown debug server successful")
}

// Handler serves metrics, probes, log level and pprof.
func Handler(ready *atomic.Bool) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/live", liveness)
	mux.HandleFunc("/ready", readiness(ready))
	mux.HandleFunc("/version", version)
	mux.Handle("/log/level", logger.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

// liveness is always ok
func liveness(w http.ResponseWriter, _ *http.Request) {
	write(w, http.StatusOK, "OK")
}

// readiness is ok once the store is loaded and the api listens
func readiness(ready *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if ready.Load() {
			write(w, http.StatusOK, "OK")
			return
		}
		write(w, http.StatusServiceUnavailable, "Not ready")
	}
}

func version(w http.ResponseWriter, _ *http.Request) {
	write(w, http.StatusOK, buildinfo.Version+" "+buildinfo.BuildTime)
}

func write(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.Error("failed to write debug response", zap.Error(err))
	}
}
