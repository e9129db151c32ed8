// Command multiredis loads a datasource configuration, opens every Redis
// datasource it names and serves the read-only admin API over them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sharedcode/multiredis"
	"github.com/sharedcode/multiredis/config"
	"github.com/sharedcode/multiredis/registry"
	"github.com/sharedcode/multiredis/restapi"
)

// AddrEnvVar overrides the default listen address.
const AddrEnvVar = "MULTIREDIS_ADDR"

const defaultAddr = "localhost:8080"

func main() {
	var (
		configPath  string
		addr        string
		showVersion bool
	)
	// .env is optional; values already in the environment win.
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "loading .env failed: %v\n", err)
		os.Exit(1)
	}
	flag.StringVar(&configPath, "config", config.Path(), "Path to the datasource configuration (.yaml, .yml or .toml)")
	flag.StringVar(&addr, "addr", listenAddr(), "Address the admin API listens on")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("multiredis %s\n", multiredis.Version)
		return
	}

	multiredis.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath, addr); err != nil {
		log.Error("multiredis exited", "error", err)
		os.Exit(1)
	}
}

func listenAddr() string {
	if a := os.Getenv(AddrEnvVar); a != "" {
		return a
	}
	return defaultAddr
}

func run(ctx context.Context, configPath, addr string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	reg, err := openRegistry(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn("closing datasources failed", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           restapi.NewServer(reg).Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("admin API listening", "addr", addr, "version", multiredis.Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down admin API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRegistry builds the registry, retrying connection failures with backoff.
// Configuration errors are returned on the first attempt.
func openRegistry(ctx context.Context, settings multiredis.Settings) (*registry.Registry, error) {
	var reg *registry.Registry
	err := multiredis.Retry(ctx, func(ctx context.Context) error {
		r, err := registry.Build(ctx, settings)
		if err != nil {
			log.Warn("opening datasources failed", "error", err)
			return multiredis.RetryIfTransient(err)
		}
		reg = r
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return reg, nil
}
