/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/suparena/contentguard"
	"github.com/suparena/contentguard/classifier"
	"github.com/suparena/contentguard/config"
	"github.com/suparena/contentguard/datastore/ddb"
	"github.com/suparena/contentguard/enforcer"
	"github.com/suparena/contentguard/filter"
	"github.com/suparena/contentguard/ledger"
	"github.com/suparena/contentguard/logger"
	"github.com/suparena/contentguard/metrics"
	"github.com/suparena/contentguard/objectstore"
	"github.com/suparena/contentguard/reconcile"
	"github.com/suparena/contentguard/server"
	"github.com/suparena/contentguard/storagemodels"
)

var (
	versionFlag   = flag.Bool("version", false, "Show version information")
	vFlag         = flag.Bool("v", false, "Show version information (short)")
	reconcileFlag = flag.Bool("reconcile", false, "Re-run errored moderations from the ledger and exit")
	sinceFlag     = flag.Duration("since", 24*time.Hour, "How far back -reconcile looks")
	failuresFlag  = flag.Int("failures", 0, "Print the N most recent errored moderations from the ledger and exit")
)

const shutdownTimeout = 30 * time.Second

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := contentguard.GetVersionInfo()
		fmt.Printf("contentguard version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	if err := run(cfg, log); err != nil {
		log.Error("contentguard exited", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.New(reg)

	store := objectstore.NewS3Store(objectstore.NewS3Client(awsCfg, cfg.AWS.S3PathStyle))
	adapter := classifier.NewAdapter(
		classifier.NewRekognition(classifier.NewRekognitionClient(awsCfg)),
		classifier.WithPolicy(policy),
		classifier.WithTimeout(cfg.ClassifyTimeout),
		classifier.WithLogger(log),
	)

	opts := []contentguard.Option{contentguard.WithLogger(log), contentguard.WithMetrics(mt)}
	var led *ledger.Ledger
	if cfg.LedgerEnabled() {
		records := ddb.NewDynamodbDataStore[ledger.Record](ddb.NewDynamoDBClient(awsCfg), cfg.LedgerTable)
		led = ledger.New(records, cfg.LedgerTable, ledger.WithClaimTTL(cfg.ClaimTTL))
		opts = append(opts, contentguard.WithLedger(led))
		log.Info("moderation ledger enabled", zap.String("table", cfg.LedgerTable))
	}

	mod := contentguard.NewModerator(
		filter.New(cfg.MediaPrefix),
		adapter,
		enforcer.New(store, cfg.StorageTimeout, log),
		opts...,
	)

	if (*reconcileFlag || *failuresFlag > 0) && led == nil {
		return fmt.Errorf("ledger commands need CONTENTGUARD_LEDGER_TABLE")
	}
	if *failuresFlag > 0 {
		return printFailures(ctx, led, int32(*failuresFlag))
	}
	if *reconcileFlag {
		progress := storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			log.Debug("reconcile progress",
				zap.Int64("items", p.ItemsProcessed),
				zap.Int("pages", p.PagesProcessed),
				zap.Float64("rate", p.CurrentRate),
			)
		})
		_, err := reconcile.New(led, store, mod, cfg.StorageTimeout, log).Run(ctx, time.Now().Add(-*sinceFlag), progress)
		return err
	}

	return serve(ctx, cfg, log, mod, reg, mt)
}

func printFailures(ctx context.Context, led *ledger.Ledger, n int32) error {
	recs, err := led.Recent(ctx, ledger.StatusError, n)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, mod *contentguard.Moderator, reg *prometheus.Registry, mt *metrics.Metrics) error {
	srv := server.New(mod, reg, server.WithLogger(log), server.WithMetrics(mt))

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			zap.String("address", cfg.Addr()),
			zap.String("version", contentguard.Version),
		)
		errCh <- srv.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
