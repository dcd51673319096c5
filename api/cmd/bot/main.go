package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wasteboz/api/internal/app"
	"wasteboz/api/internal/config"
	"wasteboz/api/internal/httpserver"
	"wasteboz/api/internal/telegram"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./wasteboz.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if err := cfg.RequireTelegram(); err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	a, err := app.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to start")
	}
	log := a.Log.WithField("component", "telegram")

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.WithError(err).Fatal("telegram login failed")
	}
	bot.Debug = false
	log.WithField("bot", bot.Self.UserName).Info("authorized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := telegram.NewRouter(bot, a.Sessions, log)
	// each update on its own goroutine so a new message can supersede a
	// search still waiting on the model
	dispatch := func(upd tgbotapi.Update) { go r.HandleUpdate(ctx, upd) }

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	g, ctx := errgroup.WithContext(ctx)
	addr := "0.0.0.0:" + cfg.Port

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := telegram.WebhookPath(bot.Token)
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(webhookURL, "/") + path)
		if err != nil {
			log.WithError(err).Fatal("bad webhook url")
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			log.WithError(err).Fatal("set webhook")
		}
		mux.Post(path, telegram.WebhookHandler(log, dispatch))
		log.WithField("addr", addr).Info("webhook mode")
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Warn("delete webhook")
		}
		g.Go(func() error { return telegram.RunPolling(ctx, bot, log, dispatch) })
		log.Info("polling mode")
	}

	g.Go(func() error { return httpserver.Run(ctx, addr, mux, a.Log.WithField("component", "http")) })
	g.Go(func() error { return a.RunSweeper(ctx) })

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("bot failed")
	}
}
