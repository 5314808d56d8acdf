package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"flowgate/internal/catalog"
	"flowgate/internal/directory"
	"flowgate/internal/directory/credentials"
	"flowgate/internal/flowcrypto"
	"flowgate/internal/messaging"
	"flowgate/internal/platform/config"
	"flowgate/internal/platform/httpserver"
	"flowgate/internal/platform/logger"
	"flowgate/internal/platform/metrics"
	"flowgate/internal/platform/redis"
	httptransport "flowgate/internal/transport/http"
	"flowgate/internal/webhook/handler"
	"flowgate/internal/webhook/service"
	"flowgate/internal/wizard"
	"flowgate/pkg/platform/sentinel"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	flags := pflag.NewFlagSet("flowgate", pflag.ExitOnError)
	flags.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "listen address")
	flags.StringVar(&cfg.Server.LogLevel, "log-level", cfg.Server.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.Server.CatalogFile, "catalog", cfg.Server.CatalogFile, "school catalog YAML (built-in list when empty)")
	_ = flags.Parse(os.Args[1:])

	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("flowgate stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(registry)

	schools, err := catalog.Load(cfg.Server.CatalogFile)
	if err != nil {
		return err
	}

	checks := map[string]httptransport.HealthCheck{}
	dirOpts := []directory.Option{
		directory.WithLogger(log),
		directory.WithMetrics(m),
	}
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		dirOpts = append(dirOpts, directory.WithCredentialStore(credentials.NewRedisStore(redisClient)))
		checks["redis"] = redisClient.Health
		log.Info("sharing directory credentials through redis")
	}

	if !cfg.Directory.Configured() {
		log.Warn("directory credentials not configured; lookups will fail")
	}
	if !cfg.WhatsApp.MessagingConfigured() {
		log.Warn("whatsapp credentials not configured; replies will not be sent")
	}

	dir := directory.New(cfg.Directory, dirOpts...)
	messenger := messaging.New(cfg.WhatsApp, messaging.WithLogger(log), messaging.WithMetrics(m))
	wiz := wizard.New(schools, wizard.WithLogger(log), wizard.WithMetrics(m))

	svcOpts := []service.Option{service.WithLogger(log), service.WithMetrics(m)}
	key, err := flowcrypto.LoadPrivateKey(cfg.WhatsApp.PrivateKey, cfg.WhatsApp.PrivateKeyPassphrase)
	switch {
	case err == nil:
		svcOpts = append(svcOpts, service.WithChannel(flowcrypto.New(key)))
	case errors.Is(err, sentinel.ErrNotConfigured):
		log.Warn("flow private key not configured; data exchange disabled")
	default:
		return fmt.Errorf("load flow private key: %w", err)
	}

	var publicKey string
	if cfg.WhatsApp.PublicKey != "" {
		if publicKey, err = flowcrypto.PublicKeyPEM(cfg.WhatsApp.PublicKey); err != nil {
			return fmt.Errorf("load flow public key: %w", err)
		}
	}

	svc := service.New(dir, messenger, wiz, schools, service.Config{
		VerifyToken: cfg.WhatsApp.VerifyToken,
		FlowID:      cfg.WhatsApp.FlowID,
	}, svcOpts...)
	webhook := handler.New(svc, log, m, cfg.WhatsApp.AppSecret, publicKey)

	router := httptransport.NewRouter(httptransport.Router{
		Logger:   log,
		Gatherer: registry,
		Checks:   checks,
	}, webhook)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting flowgate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
