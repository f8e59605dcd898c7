package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/revlens/revlens/internal/app"
	"github.com/revlens/revlens/internal/cache"
	"github.com/revlens/revlens/internal/config"
	httpapi "github.com/revlens/revlens/internal/interfaces/http"
	"github.com/revlens/revlens/internal/source"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve attribution reports over a read-only HTTP API",
		Long: `Starts the JSON API: GET /v1/report?today=&baseline= returns the payload,
/v1/report/stream serves dashboards over a websocket, /metrics exposes
Prometheus metrics and /healthz reports liveness.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "Override listen address as host:port")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSec) * time.Second
	serverCfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSec) * time.Second
	serverCfg.RateRPS = cfg.Server.RateRPS
	serverCfg.RateBurst = cfg.Server.RateBurst
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		host, portRaw, err := net.SplitHostPort(listen)
		if err != nil {
			return fmt.Errorf("invalid --listen %q: %w", listen, err)
		}
		port, err := strconv.Atoi(portRaw)
		if err != nil {
			return fmt.Errorf("invalid --listen port %q: %w", portRaw, err)
		}
		serverCfg.Host = host
		serverCfg.Port = port
	}

	src, closeSrc, err := openSource(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	var reportCache *cache.ReportCache
	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr})
		reportCache = cache.New(rdb, time.Duration(cfg.Cache.TTLSec)*time.Second)
		defer rdb.Close()
	}

	svc := app.NewService(src, cfg.Report, reportCache)
	server := httpapi.NewServer(serverCfg, svc)
	svc.CacheHits = server.Metrics().CacheHits
	svc.CacheMisses = server.Metrics().CacheMisses

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

// openSource builds the configured table source, optionally wrapped in a
// circuit breaker, and returns a cleanup func.
func openSource(ctx context.Context, cfg *config.Config) (source.TableSource, func(), error) {
	noop := func() {}
	var src source.TableSource

	switch cfg.Source.Driver {
	case "csv":
		src = source.NewCSVSource(cfg.Source.Dir)
	case "postgres":
		pg, err := source.OpenPostgres(cfg.Source.DSN, 30*time.Second)
		if err != nil {
			return nil, noop, err
		}
		src = pg
		noop = func() { _ = pg.Close() }
	case "clickhouse":
		ch, err := source.OpenClickHouse(ctx, cfg.Source.DSN)
		if err != nil {
			return nil, noop, err
		}
		src = ch
		noop = func() { _ = ch.Close() }
	default:
		return nil, noop, fmt.Errorf("unknown source driver %q", cfg.Source.Driver)
	}

	if cfg.Source.Breaker {
		src = source.NewBreakerSource(cfg.Source.Driver, src)
	}
	return src, noop, nil
}
