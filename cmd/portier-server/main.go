package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portier-acs/portier/server/internal/config"
	"github.com/portier-acs/portier/server/internal/db"
	"github.com/portier-acs/portier/server/internal/httpapi"
	"github.com/portier-acs/portier/server/internal/metrics"
	"github.com/portier-acs/portier/server/internal/mqttbus"
	"github.com/portier-acs/portier/server/internal/portier/service"
	sqlitestore "github.com/portier-acs/portier/server/internal/portier/store/sqlite"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "portier-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	ruleStore := sqlitestore.NewRuleStore(conn, writer)
	tagStore := sqlitestore.NewTagStore(conn, writer)
	scannerStore := sqlitestore.NewScannerStore(conn, writer)
	eventStore := sqlitestore.NewScanEventStore(conn, writer)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	// Services
	scanners := service.NewScannerDirectory(scannerStore)
	tags := service.NewTagRegistry(tagStore)
	evaluator := service.NewEvaluator(ruleStore)
	rules := service.NewRuleService(ruleStore, eventStore, logger)

	pruner := service.NewEventPruner(eventStore, service.PrunerConfig{
		RetentionDays: cfg.EventRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// Message bus
	loc := time.Local
	if cfg.ScanTimezone != "" {
		loc, err = time.LoadLocation(cfg.ScanTimezone)
		if err != nil {
			logger.Fatalf("load scan timezone %q: %v", cfg.ScanTimezone, err)
		}
	}

	bus, err := mqttbus.Connect(mqttbus.ClientConfig{
		BrokerURL:   cfg.MQTTBrokerURL,
		TopicPrefix: cfg.MQTTTopicPrefix,
		Location:    loc,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		logger.Fatalf("connect mqtt: %v", err)
	}

	scanSvc := service.NewScanService(service.ScanDependencies{
		Scanners:  scanners,
		Tags:      tags,
		Evaluator: evaluator,
		Events:    eventStore,
		Publisher: bus,
		Metrics:   m,
		Logger:    logger,
	})

	dispatcher := mqttbus.NewDispatcher(ctx, scanSvc.Handle, logger, m)

	if err := bus.SubscribeScans(dispatcher.Enqueue); err != nil {
		logger.Fatalf("subscribe scans: %v", err)
	}

	// Management API
	if cfg.JWTSecret == "" && cfg.Env == "prod" {
		logger.Fatal("PORTIER_JWT_SECRET is required in prod")
	}

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger,
		Addr:           cfg.HTTPAddr,
		Rules:          rules,
		Tags:           tags,
		Scanners:       scanners,
		Verifier:       httpapi.NewJWTVerifier(cfg.JWTSecret),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Stop inbound scans before draining the dispatcher, so no message
	// arrives for a queue that is being torn down.
	bus.Close()
	dispatcher.Close()
}
