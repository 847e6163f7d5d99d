// Package app wires config, the node connection and the fee oracle together.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"feesuggest/internal/api"
	"feesuggest/internal/config"
	"feesuggest/internal/feehistory"
	"feesuggest/internal/oracle"
	"feesuggest/internal/output"
)

type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	rpc      *rpc.Client
	registry *prometheus.Registry
	service  *oracle.Service
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	rpcClient, err := dialHTTP(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newWithCaller(cfg, logger, rpcClient, rpcClient)
}

func newWithCaller(cfg *config.Config, logger *slog.Logger, caller feehistory.Caller, rpcClient *rpc.Client) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fetcher := feehistory.New(caller, feehistory.Config{
		RequestTimeout: cfg.Performance.RequestTimeout.Duration,
		RetryMax:       *cfg.Performance.RetryMax,
		RetryBackoff:   cfg.Performance.RetryBackoff.Duration,
		RetryCap:       cfg.Performance.RetryBackoffCap.Duration,
	}, logger)
	svc, err := oracle.NewService(fetcher, cfg.Params(), cfg.Estimator.NewestBlock, logger, registry)
	if err != nil {
		if rpcClient != nil {
			rpcClient.Close()
		}
		return nil, err
	}
	return &App{cfg: cfg, logger: logger, rpc: rpcClient, registry: registry, service: svc}, nil
}

func (a *App) Service() *oracle.Service {
	return a.service
}

// Serve runs the HTTP API until ctx is done. When withWatch is set the watch
// loop runs alongside it.
func (a *App) Serve(ctx context.Context, withWatch bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		server := api.NewServer(a.cfg, a.logger, a.service, a.registry)
		a.logger.Info("api starting", "listen", a.cfg.API.Listen)
		return server.Start(gctx)
	})
	if withWatch {
		g.Go(func() error {
			return a.Watch(gctx, "")
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Watch appends a record to the configured JSONL output on every interval.
func (a *App) Watch(ctx context.Context, newest string) error {
	sink, err := output.Open(a.cfg.Output.JSONLPath)
	if err != nil {
		return err
	}
	defer sink.Close()
	a.logger.Info("watch starting", "interval", a.cfg.Watch.Interval.Duration, "output", a.cfg.Output.JSONLPath)
	a.service.Watch(ctx, a.cfg.Watch.Interval.Duration, newest, sink)
	return nil
}

func (a *App) Close() {
	if a.rpc != nil {
		a.rpc.Close()
	}
}

func dialHTTP(cfg *config.Config, logger *slog.Logger) (*rpc.Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.Performance.RequestTimeout.Duration,
	}
	rpcClient, err := rpc.DialHTTPWithClient(cfg.RPC.HTTP, httpClient)
	if err != nil {
		return nil, err
	}
	rpcClient.SetHeader("User-Agent", cfg.RPC.UserAgent)
	logger.Info("rpc http connected", "url", cfg.RPC.HTTP)
	return rpcClient, nil
}
