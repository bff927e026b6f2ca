package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"thirdcoast.systems/sift/cmd/web/internal/feed"
	"thirdcoast.systems/sift/cmd/web/internal/web"
	"thirdcoast.systems/sift/internal/application"
	"thirdcoast.systems/sift/internal/config"
	"thirdcoast.systems/sift/internal/db"
	"thirdcoast.systems/sift/internal/sift"
	"thirdcoast.systems/sift/pkg/metascrape"
	"thirdcoast.systems/sift/pkg/rehost"
	"thirdcoast.systems/sift/pkg/scrape"
	"thirdcoast.systems/sift/pkg/synth"
)

// stalePendingAfter is how old a pending placeholder must be before startup
// recovery completes it with fallback content. Placeholders this old belong
// to clients that died mid-submission.
const stalePendingAfter = 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting web service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if conf.DatabaseRetries <= 0 {
		conf.DatabaseRetries = 10
	}

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	if err := dbc.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if n, err := dbc.Queries(ctx).RecoverStalePendingSifts(ctx, stalePendingAfter); err != nil {
		slog.Warn("stale pending recovery failed", "error", err)
	} else if n > 0 {
		slog.Info("recovered stale pending sifts", "count", n)
	}

	scraper := scrape.NewClient(conf.ScrapeAPIURL, conf.ScrapeToken)
	scraper.SetMemoryMB(conf.ScrapeMemoryMB)

	synthesizer := synth.NewClient(conf.AIAPIURL, conf.AIAPIKey, conf.AIModel)

	rehoster, err := rehost.New(rehost.Config{
		Endpoint:      conf.StorageEndpoint,
		AccessKey:     conf.StorageAccessKey,
		SecretKey:     conf.StorageSecretKey,
		UseSSL:        conf.StorageUseSSL,
		Bucket:        conf.StorageBucket,
		PublicBaseURL: conf.StoragePublicURL,
	})
	if err != nil {
		slog.Error("failed to create rehoster", "error", err)
		os.Exit(1)
	}

	pipeline := sift.New(dbc.Queries(ctx), scraper, metascrape.New(), synthesizer, rehoster, sift.Quota{
		FreeLimit:  conf.FreeTierLimit,
		UpgradeURL: conf.UpgradeURL,
	})

	hub := feed.NewHub()
	go feed.Listen(ctx, conf.DatabaseDSN, dbc, hub)

	e, err := web.NewWebserver(ctx, dbc, pipeline, hub, conf)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := e.Start(addr); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// Echo returns an error on Shutdown; treat it as normal if context is done.
		if ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
