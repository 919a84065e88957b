// Package main is the entry point for the investor outreach service.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/founderkit/outreach/internal/auth"
	"github.com/founderkit/outreach/internal/config"
	"github.com/founderkit/outreach/internal/httpserver"
	"github.com/founderkit/outreach/internal/outreach"
	"github.com/founderkit/outreach/internal/sendlog"
	"github.com/founderkit/outreach/internal/transport"
	"github.com/founderkit/outreach/internal/transport/gmail"
	"github.com/founderkit/outreach/internal/transport/stdout"
	apitls "github.com/founderkit/outreach/internal/tls"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	// A local .env is optional; missing files are fine.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	factory := selectTransport(cfg)
	store := sendlog.New(cfg.SendLog.Path)
	service := outreach.New(factory, store)

	var tlsConfig *tls.Config
	if cfg.Server.TLS || (cfg.Server.CertFile != "" && cfg.Server.KeyFile != "") {
		tlsConfig, err = apitls.ServerConfig(cfg.Server.CertFile, cfg.Server.KeyFile)
		if err != nil {
			slog.Error("failed to setup TLS", "error", err)
			os.Exit(1)
		}
	}

	server := httpserver.New(httpserver.Config{
		ListenAddr: cfg.Server.Listen,
		TLSConfig:  tlsConfig,
		Service:    service,
	})

	slog.Info("starting outreach service",
		"listen", cfg.Server.Listen,
		"provider", cfg.Transport.Provider,
		"send_log", cfg.SendLog.Path,
		"tls_enabled", tlsConfig != nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	service.Start(ctx)

	if err := server.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// The scheduler stops on the same context; wait for it to drain.
	<-service.Done()

	slog.Info("outreach service stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectTransport chooses the mail delivery backend based on configuration.
// Credentials arrive per session, so the choice is a factory rather than a
// single instance.
func selectTransport(cfg *config.Config) outreach.TransportFactory {
	switch cfg.Transport.Provider {
	case "gmail", "":
		return func(creds auth.Credentials) transport.Transport {
			return gmail.New(creds)
		}

	case "stdout":
		slog.Info("using stdout transport", "sender", cfg.Transport.Sender)
		t := stdout.New(cfg.Transport.Sender)
		return func(auth.Credentials) transport.Transport {
			return t
		}

	default:
		slog.Error("unknown transport provider", "provider", cfg.Transport.Provider)
		os.Exit(1)
		return nil
	}
}
