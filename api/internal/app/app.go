// Package app assembles the gateway and session manager shared by every
// front end from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"wasteboz/api/internal/config"
	"wasteboz/api/internal/ewc/gemini"
	"wasteboz/api/internal/logging"
	"wasteboz/api/internal/session"
)

const minSweepEvery = time.Minute

type App struct {
	Config   *config.Config
	Gateway  *gemini.Gateway
	Sessions *session.Manager
	Log      *logrus.Entry
}

func New(cfg *config.Config) (*App, error) {
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logrus.WithField("app", "wasteboz")

	system, err := gemini.LoadSystemInstruction(cfg.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}
	gw, err := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel,
		gemini.WithTimeout(cfg.RequestTimeout()),
		gemini.WithSystemInstruction(system),
		gemini.WithLogger(log.WithField("component", "gemini")),
	)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(gw,
		session.WithRatePerMinute(cfg.SessionRatePerMin),
		session.WithManagerLogger(log.WithField("component", "session")),
	)
	log.WithFields(logrus.Fields{"model": gw.GetModel(), "timeout": cfg.RequestTimeout()}).Info("gateway ready")
	return &App{Config: cfg, Gateway: gw, Sessions: sessions, Log: log}, nil
}

// RunSweeper evicts idle sessions until ctx is done. A non-positive TTL keeps
// sessions forever.
func (a *App) RunSweeper(ctx context.Context) error {
	ttl := a.Config.SessionTTL()
	if ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	return a.Sessions.RunSweeper(ctx, max(minSweepEvery, ttl/2), ttl)
}
