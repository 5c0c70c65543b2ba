package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/provision"
)

// shutdownTimeout bounds a graceful shutdown
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath  string
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Server serves a Bridge over HTTP or HTTPS
type Server struct {
	config    *Config
	bridge    *Bridge
	http      *http.Server
	tlsConfig *tls.Config
}

// New creates a server for session
func New(config *Config, session *provision.Session) (*Server, error) {
	if session == nil {
		return nil, errors.New("server: session is required")
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	bridge := NewBridge(session)
	return &Server{
		config:    config,
		bridge:    bridge,
		tlsConfig: tlsConfig,
		http: &http.Server{
			Addr:              config.Addr(),
			Handler:           bridge,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Bridge returns the handler served by s
func (s *Server) Bridge() *Bridge {
	return s.bridge
}

// Start listens on the configured address and blocks until SIGINT, SIGTERM
// or a server error.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	scheme := "http"
	if s.tlsConfig != nil {
		scheme = "https"
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	logging.Info("Provisioning bridge listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("scheme", scheme),
	)

	err := s.http.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	// Hijacked WebSocket connections are not tracked by http.Server.
	s.bridge.Close()

	err := s.http.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		logging.Warn("Shutdown timeout, forcing close")
		err = s.http.Close()
	}

	logging.Sync()
	return err
}
