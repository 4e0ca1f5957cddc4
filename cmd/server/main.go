// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/marathon/internal/aggregator"
	"github.com/tomtom215/marathon/internal/api"
	"github.com/tomtom215/marathon/internal/config"
	"github.com/tomtom215/marathon/internal/eventprocessor"
	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/metrics"
	"github.com/tomtom215/marathon/internal/supervisor"
	"github.com/tomtom215/marathon/internal/supervisor/services"
	ws "github.com/tomtom215/marathon/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.SetAppInfo(version)

	logging.Info().
		Str("version", version).
		Str("config", cfg.String()).
		Msg("Starting Marathon")

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Marathon stopped with a fatal error")
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	brokerCfg := cfg.EventBroker()
	if cfg.UseEmbeddedNATS() {
		natsServer, err := eventprocessor.NewEmbeddedServer(cfg.EmbeddedServer())
		if err != nil {
			return fmt.Errorf("start embedded NATS server: %w", err)
		}
		brokerCfg.URL = natsServer.ClientURL()
		tree.AddMessagingService(services.NewBrokerService(natsServer, shutdownTimeout))
		logging.Info().Str("url", brokerCfg.URL).Str("store_dir", cfg.NATS.StoreDir).Msg("Embedded NATS server started")
	}

	backend, err := eventprocessor.NewBackend(brokerCfg)
	if err != nil {
		return fmt.Errorf("create broker backend: %w", err)
	}

	producerConn := eventprocessor.NewConnection("producer", backend, eventprocessor.RolePublisher, brokerCfg.Retry)
	producer := eventprocessor.NewProducer(producerConn, eventprocessor.ProducerConfig{
		MarathonID: cfg.Marathon.ID,
		Topic:      brokerCfg.Queue,
	})

	var store aggregator.SnapshotStore
	if cfg.Snapshot.Enabled {
		badgerStore, err := aggregator.OpenBadgerStore(aggregator.BadgerConfig{
			Path:       cfg.Snapshot.Path,
			SyncWrites: cfg.Snapshot.SyncWrites,
		})
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer func() {
			if err := badgerStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing snapshot store")
			}
		}()
		store = badgerStore
	}

	// Publisher role too: poison messages are republished on this connection.
	aggConn := eventprocessor.NewConnection("aggregator", backend,
		eventprocessor.RolePublisher|eventprocessor.RoleSubscriber, brokerCfg.Retry)
	agg := aggregator.New(aggConn, aggregator.Config{
		MarathonID:         cfg.Marathon.ID,
		Topic:              brokerCfg.Queue,
		PoisonTopic:        brokerCfg.PoisonTopic(),
		PoisonEnabled:      cfg.Broker.PoisonEnabled,
		RecentActivitySize: cfg.Marathon.RecentActivitySize,
		DedupWindow:        cfg.Marathon.DedupWindow,
	}, nil, store)

	if err := agg.Restore(ctx); err != nil {
		return err
	}

	// The hub reads join snapshots from the aggregator and the aggregator
	// broadcasts through the hub.
	hub := ws.NewHub(agg, cfg.Marathon.ViewerBuffer)
	agg.SetBroadcaster(hub)

	handler := api.NewHandler(api.HandlerConfig{
		Submitter:   producer,
		State:       agg,
		Hub:         hub,
		Readiness:   []eventprocessor.HealthCheckable{producerConn, agg},
		CORSOrigins: cfg.Security.CORSOrigins,
		Version:     version,
	})

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled
	router := api.NewRouter(handler, api.NewChiMiddleware(mwCfg))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  idleTimeout,
	}

	tree.AddMessagingService(services.NewRunnerService("websocket-hub", hub.RunWithContext, tree.ReportFatal))
	tree.AddMessagingService(services.NewRunnerService("aggregator", agg.Run, tree.ReportFatal))
	tree.AddMessagingService(services.NewRunnerService("producer", producer.Run, tree.ReportFatal))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().
		Str("addr", server.Addr).
		Str("backend", brokerCfg.Backend).
		Str("queue", brokerCfg.Queue).
		Msg("Starting supervisor tree")

	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if fatal := tree.FatalError(); fatal != nil {
		return fatal
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Msg("Supervisor tree stopped")
	}
	return nil
}
