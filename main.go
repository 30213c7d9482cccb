package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hike-social/hike/api"
	"github.com/hike-social/hike/app"
	"github.com/hike-social/hike/auth"
	"github.com/hike-social/hike/env"
	"github.com/hike-social/hike/handlers"
	"github.com/hike-social/hike/media"
	"github.com/hike-social/hike/metrics"
	"github.com/hike-social/hike/store"
	"github.com/hike-social/hike/store/memory"
	"github.com/hike-social/hike/store/sqlstore"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := env.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Prometheus metrics
	metrics.InitMetrics()

	st := openStore(ctx, cfg)
	defer st.Close()

	opts := app.Options{
		Tokens:    auth.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Region:    cfg.AWSRegion,
		Bucket:    cfg.AWSBucket,
		UploadTTL: cfg.UploadURLTTL,
		Timeout:   cfg.RequestTimeout,
	}
	if cfg.AWSBucket != "" {
		objects, err := media.LoadS3Storage(ctx, cfg.AWSRegion)
		if err != nil {
			logrus.Fatalf("Error loading S3 configuration: %v", err)
		}
		opts.Media = objects
	} else {
		logrus.Warn("AWS_BUCKET_NAME is not set, media uploads are disabled")
	}
	hike := app.New(st, opts)

	// NATS is optional; without it only HTTP is served
	if cfg.NatsEnabled() {
		nc, err := nats.Connect(cfg.NatsURL(), nats.Name("hike"))
		if err != nil {
			logrus.Fatalf("Error connecting to NATS: %v", err)
		}
		defer nc.Drain()
		logrus.Info("Connected to NATS!")

		handlers.RegisterFriends(nc, hike)
		handlers.RegisterAccountHandlers(nc, hike)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(hike),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logrus.Infof("Server running on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Error shutting down HTTP server: %v", err)
	}
}

func openStore(ctx context.Context, cfg env.Config) store.Store {
	if cfg.StoreDriver != env.DriverPostgres {
		logrus.Warn("Using the in-memory store, data is lost on restart")
		return memory.New()
	}

	poolCfg := sqlstore.DefaultConfig()
	poolCfg.MaxOpenConns = cfg.DBMaxOpenConns
	poolCfg.MaxIdleConns = cfg.DBMaxIdleConns
	st, err := sqlstore.OpenPostgres(ctx, cfg.DatabaseURL, poolCfg)
	if err != nil {
		logrus.Fatalf("Error connecting to the database: %v", err)
	}
	return st
}
