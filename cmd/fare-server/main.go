package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/cache/redisstore"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/config"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/httpclient"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/server"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/estimator"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/features"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/geocode"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/inference"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/logger"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/metrics"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/reference"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/resolver"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("load .env: " + err.Error() + "\n")
	}

	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	refFlag := flag.String("reference", "", "reference bounds file (overrides REFERENCE_PATH)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}
	if *refFlag != "" {
		cfg.ReferencePath = strings.TrimSpace(*refFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		File:      cfg.LogFile,
		Component: "fare-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	prov := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})

	bounds, err := reference.Load(cfg.ReferencePath)
	if err != nil {
		appLog.Error("failed to load reference bounds", "path", cfg.ReferencePath, "err", err)
		return 1
	}
	appLog.Info("starting fare server",
		"addr", cfg.Addr,
		"version", Version,
		"geocoder", cfg.Geocoder.URL,
		"model", cfg.Model.URL,
		"cities", len(bounds.Cities()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	geo, err := geocode.NewClient(appLog, httpclient.NewOutbound(cfg.Geocoder.Timeout), cfg.Geocoder.URL, cfg.Geocoder.UserAgent)
	if err != nil {
		appLog.Error("failed to initialize geocoder", "err", err)
		return 1
	}

	var store resolver.Store
	if cfg.RedisAddr != "" {
		cli, err := redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithPoolSize(cfg.RedisPoolSize),
			redisstore.WithDialTimeout(cfg.RedisDialTimeout),
			redisstore.WithReadTimeout(cfg.RedisReadTimeout))
		if err != nil {
			// the store is an optimization; geocode everything instead
			appLog.Warn("coordinate store unavailable", "addr", cfg.RedisAddr, "err", err)
		} else {
			defer func() { _ = cli.Close() }()
			store = resolver.NewRedisStore(appLog, cli, cfg.CoordTTL, cfg.CacheOpTimeout)
		}
	}

	res := resolver.New(appLog, geo, store, resolver.Config{
		Country:     cfg.Geocoder.Country,
		MinInterval: cfg.Geocoder.MinInterval,
		Timeout:     cfg.Geocoder.Timeout,
	})
	go res.Populate(ctx, bounds.Cities())

	mc, err := inference.NewClient(appLog, httpclient.NewOutbound(cfg.Model.Timeout), cfg.Model.URL)
	if err != nil {
		appLog.Error("failed to initialize model client", "err", err)
		return 1
	}

	svc := estimator.New(appLog, res, features.NewAssembler(bounds), inference.NewMemo(mc, cfg.Model.MemoSize), estimator.Options{
		RequireDistance: cfg.RequireDistance,
		CurrencySymbol:  cfg.CurrencySymbol,
		WaitReady:       cfg.WaitReadyTimeout,
	})

	deps := server.Deps{Pipeline: svc, Cities: res, Bounds: bounds}
	if prov.Enabled() {
		deps.Metrics = prov.Handler()
	}
	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server error", "err", err)
		return 1
	}
	appLog.Info("shutdown complete")
	return 0
}
