package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wasteboz/api/internal/app"
	"wasteboz/api/internal/config"
	"wasteboz/api/internal/handle"
	"wasteboz/api/internal/httpserver"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./wasteboz.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	a, err := app.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpLog := a.Log.WithField("component", "http")
	router := httpserver.NewRouter(handle.New(a.Sessions, httpLog), cfg.AllowedOrigins, httpLog)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(ctx, "0.0.0.0:"+cfg.Port, router, httpLog) })
	g.Go(func() error { return a.RunSweeper(ctx) })

	if err := g.Wait(); err != nil {
		a.Log.WithError(err).Fatal("server failed")
	}
}
