package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// NewRouter returns the metrics router: /metrics for Prometheus and /healthz
// for liveness checks.
func NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
		writer.WriteHeader(http.StatusOK)
		writer.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return router
}

// Server exposes the metrics router on a TCP address.
type Server struct {
	logger   *zap.Logger
	listener net.Listener
	server   *http.Server
}

// Listen binds address so the caller learns about port conflicts before any
// processing starts. Use ":0" to pick a free port.
func Listen(address string, logger *zap.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &Server{
		logger:   logger,
		listener: listener,
		server: &http.Server{
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Address returns the bound address.
func (server *Server) Address() string {
	return server.listener.Addr().String()
}

// Serve handles requests until executionContext is cancelled, then shuts the
// server down.
func (server *Server) Serve(executionContext context.Context) error {
	served := make(chan error, 1)
	go func() {
		served <- server.server.Serve(server.listener)
	}()
	server.logger.Info("metrics server listening", zap.String("address", server.Address()))

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-executionContext.Done():
	}

	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.server.Shutdown(shutdownContext); err != nil {
		server.logger.Warn("metrics server shutdown error", zap.Error(err))
		return err
	}
	<-served
	return nil
}
