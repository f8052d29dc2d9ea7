// Package inbound implements the gateway's inbound WebSocket endpoints.
//
// Each endpoint listens on its own port. The request URL path of an upgrade becomes
// the connection's subscriber path, and the endpoint's configured broadcast level
// and tenant are fixed on the connection for its lifetime.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	ichannel "github.com/rmacdonaldsmith/wsgateway/internal/channel"
	"github.com/rmacdonaldsmith/wsgateway/internal/backend"
	"github.com/rmacdonaldsmith/wsgateway/internal/httpapi"
	"github.com/rmacdonaldsmith/wsgateway/internal/mediation"
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/pkg/endpoint"
	"github.com/rmacdonaldsmith/wsgateway/pkg/subscriberpath"
)

var (
	// ErrInvalidPort is returned for a port outside 1-65535
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrMissingDispatcher is returned when Deps has no dispatcher
	ErrMissingDispatcher = errors.New("dispatcher is required")

	// ErrMissingRegistry is returned when Deps has no subscriber registry
	ErrMissingRegistry = errors.New("subscriber registry is required")

	// ErrMissingDirectory is returned when Deps has no endpoint directory
	ErrMissingDirectory = errors.New("endpoint directory is required")
)

// Config holds inbound endpoint configuration
type Config struct {
	// Name identifies the endpoint in logs
	Name string

	// Port is the listening port, also used for endpoint identity resolution
	Port int

	// Host is the listening host. Empty listens on all interfaces.
	Host string

	// Tenant is the tenant domain of the endpoint
	Tenant string

	// BroadcastLevel is applied to every connection accepted by this endpoint
	BroadcastLevel channel.BroadcastLevel

	// Mediator processes frames when no backend is configured. nil means Echo.
	Mediator mediation.Mediator

	// Backend is the optional target backend dialer
	Backend *backend.Dialer

	// ReadLimit is the maximum accepted client frame size in bytes. 0 means no limit.
	ReadLimit int64

	// Conn configures each connection actor
	Conn ichannel.Options

	// Logger receives endpoint diagnostics. nil disables logging.
	Logger *zap.Logger
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Mediator == nil {
		c.Mediator = mediation.Echo{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Name == "" {
		c.Name = fmt.Sprintf("ws-%d", c.Port)
	}
}

// Validate checks the config
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	return nil
}

// Address returns the listen address
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Deps are the shared gateway components an endpoint dispatches through
type Deps struct {
	Dispatcher dispatch.Dispatcher
	Registry   subscriberpath.Registry
	Directory  endpoint.Directory
}

func (d *Deps) validate() error {
	if d.Dispatcher == nil {
		return ErrMissingDispatcher
	}
	if d.Registry == nil {
		return ErrMissingRegistry
	}
	if d.Directory == nil {
		return ErrMissingDirectory
	}
	return nil
}

// Server is one inbound WebSocket endpoint
type Server struct {
	config   Config
	deps     Deps
	identity endpoint.Identity
	logger   *zap.Logger
	upgrader websocket.Upgrader
	server   *http.Server

	mu       sync.Mutex
	stopping bool
	sessions map[string]*ichannel.Conn
	wg       sync.WaitGroup
}

// NewServer creates an inbound endpoint
func NewServer(config Config, deps Deps) (*Server, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	logger := config.Logger.With(zap.String("endpoint", config.Name))

	s := &Server{
		config:   config,
		deps:     deps,
		identity: deps.Directory.Resolve(config.Port, config.Tenant),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*ichannel.Conn),
	}

	s.server = &http.Server{
		Addr:              config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	return s, nil
}

// Handler returns the endpoint's HTTP handler
func (s *Server) Handler() http.Handler {
	return httpapi.NewMiddleware(s.logger).Chain(http.HandlerFunc(s.handleUpgrade))
}

// Identity returns the resolved endpoint identity that namespaces subscriber paths
func (s *Server) Identity() endpoint.Identity {
	return s.identity
}

// Start starts the endpoint listener. It blocks until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("inbound endpoint listening", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve inbound endpoint %s: %w", s.config.Name, err)
	}
	return nil
}

// Serve accepts connections on l. It blocks until Stop is called.
func (s *Server) Serve(l net.Listener) error {
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve inbound endpoint %s: %w", s.config.Name, err)
	}
	return nil
}

// Stop stops accepting connections, closes every live session and waits for the
// sessions to finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	err := s.server.Shutdown(ctx)

	s.mu.Lock()
	for _, conn := range s.sessions {
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// SessionCount returns the number of live sessions
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		httpapi.WriteError(w, "WebSocket upgrade required", http.StatusUpgradeRequired)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	if !s.admit() {
		s.logger.Debug("endpoint stopping, refusing session")
		_ = ws.Close()
		return
	}
	defer s.wg.Done()

	s.serveSession(context.WithoutCancel(r.Context()), ws, r.URL.Path)
}

// admit counts a new session unless Stop has started
func (s *Server) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

// track records conn for Stop. It reports false once Stop has started.
func (s *Server) track(conn *ichannel.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.sessions[conn.ID()] = conn
	return true
}

func (s *Server) untrack(conn *ichannel.Conn) {
	s.mu.Lock()
	delete(s.sessions, conn.ID())
	s.mu.Unlock()
}
