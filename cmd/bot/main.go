package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estatebot/internal/backend"
	"estatebot/internal/bot"
	"estatebot/internal/broadcast"
	"estatebot/internal/config"
	"estatebot/internal/confirm"
	"estatebot/internal/executor"
	"estatebot/internal/gateway"
	"estatebot/internal/gateway/telegram"
	"estatebot/internal/health"
	"estatebot/internal/intake"
	"estatebot/internal/maintenance"
	"estatebot/internal/session"
	"estatebot/internal/storage"
	"estatebot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	manager := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg, err := manager.Load()
	if err != nil {
		return err
	}

	log, closeLog := logx.New(cfg.Logging)
	if closeLog != nil {
		defer closeLog.Close()
	}

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout.Std(),
	}, log.With(logx.String("component", "telegram")))
	if err != nil {
		return err
	}

	audit, err := storage.Open(cfg.Audit.Path, log.With(logx.String("component", "audit")))
	if err != nil {
		return err
	}
	defer audit.Close()

	bc := backend.New(backend.Config{
		URL:     cfg.Backend.URL,
		NewsURL: cfg.Backend.NewsURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout.Std(),
	}, log.With(logx.String("component", "backend")))

	pipe := broadcast.New(broadcast.Config{
		RatePerSec:   cfg.Broadcast.RatePerSec,
		PartDelay:    cfg.Broadcast.PartDelay.Std(),
		ChunkDelay:   cfg.Broadcast.ChunkDelay.Std(),
		FetchRetries: cfg.Broadcast.FetchRetries,
		FetchTimeout: cfg.Broadcast.FetchTimeout.Std(),
	}, adapter, nil, log.With(logx.String("component", "broadcast")))

	exec := executor.New(bc, pipe, adapter, manager, log.With(logx.String("component", "executor")))
	gate := confirm.NewGate(adapter, exec, log.With(logx.String("component", "confirm")))
	store := session.NewStore()
	flow := intake.New(adapter, store, gate, log.With(logx.String("component", "intake")))
	router := bot.NewRouter(manager, adapter, store, flow, gate, bc, pipe, audit,
		log.With(logx.String("component", "router")))

	sched, err := maintenance.New(cfg.Maintenance.DeleteOldCron, bc, adapter, cfg.Admins,
		log.With(logx.String("component", "maintenance")))
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	hs := health.New(cfg.Health.Addr, log.With(logx.String("component", "health")))
	go hs.Start()
	defer func() {
		shCtx, shCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shCancel()
		_ = hs.Shutdown(shCtx)
	}()

	go func() {
		if err := manager.Watch(ctx); err != nil {
			log.Warn("config watcher stopped", logx.Err(err))
		}
	}()

	updates := make(chan gateway.Update, 128)
	if err := adapter.Start(ctx, updates); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = adapter.Stop(stopCtx)
	}()

	log.Info("bot started",
		logx.Int("admins", len(cfg.Admins)),
		logx.String("health_addr", cfg.Health.Addr))

	router.Run(ctx, updates)
	return nil
}
