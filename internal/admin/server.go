// Package admin serves the gateway's operational surface: an HTTP listener with
// /health and /metrics, and a gRPC listener with the standard health service.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rmacdonaldsmith/wsgateway/internal/httpapi"
	"github.com/rmacdonaldsmith/wsgateway/internal/metrics"
	"github.com/rmacdonaldsmith/wsgateway/pkg/subscriberpath"
)

// ServiceName is the gRPC health service name reported for the gateway
const ServiceName = "wsgateway"

// Config holds admin server configuration
type Config struct {
	// HTTPAddress is the listen address of the /health and /metrics listener
	HTTPAddress string

	// GRPCAddress is the listen address of the gRPC health service
	GRPCAddress string

	// Gatherer supplies /metrics. nil uses the gateway registry.
	Gatherer prometheus.Gatherer

	// Logger receives admin diagnostics. nil disables logging.
	Logger *zap.Logger
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.HTTPAddress == "" {
		c.HTTPAddress = ":9100"
	}
	if c.GRPCAddress == "" {
		c.GRPCAddress = ":9101"
	}
	if c.Gatherer == nil {
		c.Gatherer = metrics.Registry
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// HealthResponse is the /health body
type HealthResponse struct {
	Status  string `json:"status"`
	Groups  int    `json:"groups"`
	Members int    `json:"members"`
}

// Server is the admin server
type Server struct {
	config   Config
	registry subscriberpath.Registry
	logger   *zap.Logger

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server

	mu      sync.RWMutex
	serving bool
}

// NewServer creates an admin server reporting on registry
func NewServer(config Config, registry subscriberpath.Registry) *Server {
	config.SetDefaults()

	s := &Server{
		config:     config,
		registry:   registry,
		logger:     config.Logger,
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
	}

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.SetServing(false)

	s.httpServer = &http.Server{
		Addr:              config.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler returns the admin HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mw := httpapi.NewMiddleware(s.logger)

	mux.Handle("/health", mw.Chain(http.HandlerFunc(s.handleHealth)))
	mux.Handle("/metrics", mw.Recovery(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	return mux
}

// GRPCServer returns the gRPC server carrying the health service
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// SetServing updates the status reported by /health and the gRPC health service
func (s *Server) SetServing(serving bool) {
	s.mu.Lock()
	s.serving = serving
	s.mu.Unlock()

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serving reports the current status
func (s *Server) Serving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serving
}

// Start listens on both admin addresses and serves until Stop. It returns the first
// listener error.
func (s *Server) Start() error {
	httpLis, err := net.Listen("tcp", s.config.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen admin http %s: %w", s.config.HTTPAddress, err)
	}
	grpcLis, err := net.Listen("tcp", s.config.GRPCAddress)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("listen admin grpc %s: %w", s.config.GRPCAddress, err)
	}
	return s.Serve(httpLis, grpcLis)
}

// Serve serves admin HTTP on httpLis and gRPC on grpcLis until Stop
func (s *Server) Serve(httpLis, grpcLis net.Listener) error {
	s.logger.Info("admin server listening",
		zap.String("http_address", httpLis.Addr().String()),
		zap.String("grpc_address", grpcLis.Addr().String()),
	)

	errCh := make(chan error, 2)
	go func() {
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve admin http: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("serve admin grpc: %w", err)
			return
		}
		errCh <- nil
	}()

	first := <-errCh
	second := <-errCh
	if first != nil {
		return first
	}
	return second
}

// Stop reports not serving and shuts both listeners down
func (s *Server) Stop(ctx context.Context) error {
	s.SetServing(false)
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	err := s.httpServer.Shutdown(ctx)

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpapi.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{Status: "serving"}
	code := http.StatusOK
	if !s.Serving() {
		resp.Status = "not_serving"
		code = http.StatusServiceUnavailable
	}

	if s.registry != nil {
		groups, err := s.registry.GroupCount(r.Context())
		if err != nil {
			httpapi.WriteError(w, "registry unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		members, err := s.registry.MemberCount(r.Context())
		if err != nil {
			httpapi.WriteError(w, "registry unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		resp.Groups = groups
		resp.Members = members
	}

	httpapi.WriteJSON(w, resp, code)
}
