package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/wsgateway/internal/admin"
	"github.com/rmacdonaldsmith/wsgateway/internal/backend"
	ichannel "github.com/rmacdonaldsmith/wsgateway/internal/channel"
	"github.com/rmacdonaldsmith/wsgateway/internal/config"
	idispatch "github.com/rmacdonaldsmith/wsgateway/internal/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/internal/endpoint"
	"github.com/rmacdonaldsmith/wsgateway/internal/formatter"
	"github.com/rmacdonaldsmith/wsgateway/internal/inbound"
	"github.com/rmacdonaldsmith/wsgateway/internal/mediation"
	"github.com/rmacdonaldsmith/wsgateway/internal/subscriberpath"
)

const shutdownTimeout = 10 * time.Second

// gateway owns every listener of one process
type gateway struct {
	logger    *zap.Logger
	registry  *subscriberpath.InMemoryRegistry
	admin     *admin.Server
	endpoints []*inbound.Server
}

// newGateway wires the components described by cfg. cfg must be validated.
func newGateway(cfg *config.Config, logger *zap.Logger) (*gateway, error) {
	directory := endpoint.NewStaticDirectory()
	registry := subscriberpath.NewInMemoryRegistry()

	dispatcher, err := idispatch.NewResponseDispatcher(idispatch.Config{
		Directory:  directory,
		Registry:   registry,
		Serializer: formatter.NewRegistry(cfg.Formatter.DefaultContentType),
		Logger:     logger.Named("dispatch"),
	})
	if err != nil {
		return nil, err
	}

	deps := inbound.Deps{Dispatcher: dispatcher, Registry: registry, Directory: directory}

	gw := &gateway{
		logger:   logger,
		registry: registry,
		admin: admin.NewServer(admin.Config{
			HTTPAddress: cfg.Admin.HTTPAddress,
			GRPCAddress: cfg.Admin.GRPCAddress,
			Logger:      logger.Named("admin"),
		}, registry),
	}

	for _, e := range cfg.Endpoints {
		srv, err := newEndpoint(e, deps, directory, logger)
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", e.Name, err)
		}
		gw.endpoints = append(gw.endpoints, srv)
	}

	return gw, nil
}

func newEndpoint(e config.EndpointConfig, deps inbound.Deps, directory *endpoint.StaticDirectory, logger *zap.Logger) (*inbound.Server, error) {
	if err := directory.Register(e.Port, e.Tenant, e.Name); err != nil {
		return nil, err
	}

	mediator, err := mediation.New(e.Mediation, e.ContentType)
	if err != nil {
		return nil, err
	}

	connOpts := ichannel.Options{
		QueueSize:    e.SendQueueSize,
		WriteTimeout: e.WriteTimeout,
		PingInterval: e.PingInterval,
	}

	var dialer *backend.Dialer
	if e.BackendURL != "" {
		dialer, err = backend.NewDialer(backend.Config{
			URL:       e.BackendURL,
			ReadLimit: e.ReadLimit,
			Conn:      connOpts,
			Logger:    logger.Named("backend"),
		})
		if err != nil {
			return nil, err
		}
	}

	return inbound.NewServer(inbound.Config{
		Name:           e.Name,
		Port:           e.Port,
		Host:           e.Host,
		Tenant:         e.Tenant,
		BroadcastLevel: e.Level(),
		Mediator:       mediator,
		Backend:        dialer,
		ReadLimit:      e.ReadLimit,
		Conn:           connOpts,
		Logger:         logger.Named("inbound"),
	}, deps)
}

// run serves every listener until ctx is done or one of them fails
func (g *gateway) run(ctx context.Context) error {
	errCh := make(chan error, len(g.endpoints)+1)

	go func() { errCh <- g.admin.Start() }()
	for _, srv := range g.endpoints {
		go func(srv *inbound.Server) { errCh <- srv.Start() }(srv)
	}

	g.admin.SetServing(true)
	g.logger.Info("gateway ready")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		if runErr != nil {
			g.logger.Error("listener failed, shutting down", zap.Error(runErr))
		}
	}

	return errors.Join(runErr, g.shutdown())
}

func (g *gateway) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	g.admin.SetServing(false)

	var errs []error
	for _, srv := range g.endpoints {
		if err := srv.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := g.admin.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := g.registry.Close(); err != nil {
		errs = append(errs, err)
	}

	g.logger.Info("gateway stopped")
	return errors.Join(errs...)
}
