package proxyapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/logger"
)

type httpServer struct {
	server *http.Server
}

func newHTTPServer(handler http.Handler, cfg Config) *httpServer {
	return &httpServer{
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

func (s *httpServer) Start(listener net.Listener) {
	// Resolve addrs like ":"
	addr := listener.Addr().String()

	logger.Info("registry http listening started", zap.String("addr", addr))

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("registry can't listen http addr", zap.String("http_addr", addr), zap.Error(err))
	}
}

func (s *httpServer) Stop(ctx context.Context) {
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("registry http server graceful shutdown error", zap.Error(err))
	} else {
		logger.Warn("registry http server gracefully stopped")
	}
}
