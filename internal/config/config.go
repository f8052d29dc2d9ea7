// Package config defines the gateway configuration file.
package config

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"time"

	"github.com/rmacdonaldsmith/wsgateway/internal/formatter"
	"github.com/rmacdonaldsmith/wsgateway/internal/mediation"
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

var (
	// ErrNoEndpoints is returned when no endpoint is configured
	ErrNoEndpoints = errors.New("at least one endpoint is required")

	// ErrInvalidPort is returned for an endpoint port outside 1-65535
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrDuplicateEndpoint is returned when two endpoints share a name or a port
	ErrDuplicateEndpoint = errors.New("duplicate endpoint")

	// ErrInvalidBroadcastLevel is returned for a broadcast level outside {0,1,2}
	ErrInvalidBroadcastLevel = errors.New("broadcast_level must be 0, 1 or 2")

	// ErrInvalidMediation is returned for an unknown mediation mode
	ErrInvalidMediation = errors.New("mediation must be echo or generic")

	// ErrInvalidContentType is returned for an unparsable content type
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidBackendURL is returned for a backend URL that is not ws:// or wss://
	ErrInvalidBackendURL = errors.New("backend_url must be a ws:// or wss:// URL")

	// ErrInvalidLogLevel is returned for an unknown logging level
	ErrInvalidLogLevel = errors.New("logging level must be debug, info, warn or error")
)

// Config is the root of the gateway configuration file
type Config struct {
	Logging   LoggingConfig    `yaml:"logging"`
	Admin     AdminConfig      `yaml:"admin"`
	Formatter FormatterConfig  `yaml:"formatter"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AdminConfig configures the admin listeners
type AdminConfig struct {
	HTTPAddress string `yaml:"http_address"`
	GRPCAddress string `yaml:"grpc_address"`
}

// FormatterConfig configures generic payload serialization
type FormatterConfig struct {
	DefaultContentType string `yaml:"default_content_type"`
}

// EndpointConfig configures one inbound endpoint
type EndpointConfig struct {
	Name           string         `yaml:"name"`
	Port           int            `yaml:"port"`
	Host           string         `yaml:"host"`
	Tenant         string         `yaml:"tenant"`
	BroadcastLevel int            `yaml:"broadcast_level"`
	Mediation      mediation.Mode `yaml:"mediation"`
	ContentType    string         `yaml:"content_type"`
	BackendURL     string         `yaml:"backend_url"`
	ReadLimit      int64          `yaml:"read_limit"`
	SendQueueSize  int            `yaml:"send_queue_size"`
	WriteTimeout   time.Duration  `yaml:"write_timeout"`
	PingInterval   time.Duration  `yaml:"ping_interval"`
}

// Level returns the configured broadcast level
func (e *EndpointConfig) Level() channel.BroadcastLevel {
	return channel.BroadcastLevel(e.BroadcastLevel)
}

// SetDefaults fills unset values
func (c *Config) SetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Admin.HTTPAddress == "" {
		c.Admin.HTTPAddress = ":9100"
	}
	if c.Admin.GRPCAddress == "" {
		c.Admin.GRPCAddress = ":9101"
	}
	if c.Formatter.DefaultContentType == "" {
		c.Formatter.DefaultContentType = formatter.DefaultContentType
	}
	for i := range c.Endpoints {
		c.Endpoints[i].setDefaults(c.Formatter.DefaultContentType)
	}
}

func (e *EndpointConfig) setDefaults(defaultContentType string) {
	if e.Name == "" {
		e.Name = fmt.Sprintf("ws-%d", e.Port)
	}
	if e.Mediation == "" {
		e.Mediation = mediation.ModeEcho
	}
	if e.ContentType == "" {
		e.ContentType = defaultContentType
	}
	if e.SendQueueSize == 0 {
		e.SendQueueSize = 256
	}
	if e.WriteTimeout == 0 {
		e.WriteTimeout = 10 * time.Second
	}
	if e.PingInterval == 0 {
		e.PingInterval = 30 * time.Second
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if _, _, err := mime.ParseMediaType(c.Formatter.DefaultContentType); err != nil {
		return fmt.Errorf("formatter: %w %q", ErrInvalidContentType, c.Formatter.DefaultContentType)
	}

	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}

	names := make(map[string]bool)
	ports := make(map[int]bool)
	for i := range c.Endpoints {
		e := &c.Endpoints[i]
		if err := e.Validate(); err != nil {
			return fmt.Errorf("endpoint %q: %w", e.Name, err)
		}
		if names[e.Name] {
			return fmt.Errorf("%w: name %q", ErrDuplicateEndpoint, e.Name)
		}
		if ports[e.Port] {
			return fmt.Errorf("%w: port %d", ErrDuplicateEndpoint, e.Port)
		}
		names[e.Name] = true
		ports[e.Port] = true
	}
	return nil
}

// Validate checks one endpoint
func (e *EndpointConfig) Validate() error {
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, e.Port)
	}
	if !e.Level().Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidBroadcastLevel, e.BroadcastLevel)
	}
	if e.Mediation != mediation.ModeEcho && e.Mediation != mediation.ModeGeneric {
		return fmt.Errorf("%w: %q", ErrInvalidMediation, e.Mediation)
	}
	if _, _, err := mime.ParseMediaType(e.ContentType); err != nil {
		return fmt.Errorf("%w %q", ErrInvalidContentType, e.ContentType)
	}
	if e.BackendURL != "" {
		u, err := url.Parse(e.BackendURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("%w: %q", ErrInvalidBackendURL, e.BackendURL)
		}
	}
	return nil
}
