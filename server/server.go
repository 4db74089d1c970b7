// Package server runs the HTTP server with optional TLS, either from
// certificate files or via ACME autocert.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAuto

	TLSModeAuto   = "auto"
	TLSModeManual = "manual"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type Server struct {
	Host string
	Port string
	TLS  ServerTLS
}

// Run serves until the context is canceled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(srv.Host, srv.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.listenAndServe(ctx, httpServer)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func (srv *Server) listenAndServe(ctx context.Context, httpServer *http.Server) error {
	if !srv.TLS.Enabled {
		slog.InfoContext(ctx, "listening", "address", "http://"+httpServer.Addr)

		return httpServer.ListenAndServe()
	}

	switch srv.TLS.Mode {
	case TLSModeManual:
		slog.InfoContext(ctx, "listening", "address", "https://"+httpServer.Addr)

		return httpServer.ListenAndServeTLS(srv.TLS.CertFile, srv.TLS.KeyFile)
	case TLSModeAuto:
		if srv.TLS.AutoCert == nil || len(srv.TLS.AutoCert.Domains) == 0 {
			return errors.New("autocert tls mode requires at least one domain")
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(srv.TLS.AutoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(srv.TLS.AutoCert.Domains...),
			Email:      srv.TLS.AutoCert.Email,
		}

		httpServer.TLSConfig = manager.TLSConfig()

		slog.InfoContext(ctx, "listening", "address", domainsToHTTPSAddress(srv.TLS.AutoCert.Domains))

		return httpServer.ListenAndServeTLS("", "")
	default:
		return fmt.Errorf("unknown tls mode: %q", srv.TLS.Mode)
	}
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))

	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
