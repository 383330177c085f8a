package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ragdesk/internal/devserver"
	"ragdesk/pkg/config"
	"ragdesk/pkg/logging"
	"ragdesk/pkg/upload"
)

// version is set during build time via ldflags
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", "", "Config file (overrides profile config)")
		host         = flag.String("host", "", "Server host (overrides profile config)")
		port         = flag.Int("port", 0, "Server port (overrides profile config)")
		enableDelete = flag.Bool("enable-delete", false, "Serve DELETE /api/documents/{id}")
		logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		showVersion  = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ragdesk-devserver version %s\n", version)
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadProfile()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override with command line flags
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	cfg.Logging.Level = logging.Level(*logLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	rules, err := upload.NewRules(cfg.Upload.AllowedExtensions, cfg.Upload.MaxSize, cfg.Upload.VerifyPDF)
	if err != nil {
		return err
	}

	handler := devserver.New(
		devserver.WithVersion(version),
		devserver.WithRules(rules),
		devserver.WithDelete(*enableDelete),
		devserver.WithLogger(logger),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting dev backend", "version", version, "addr", addr, "delete", *enableDelete)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
