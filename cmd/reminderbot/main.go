package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"go.uber.org/zap"

	"reminder-bot/internal/bot"
	"reminder-bot/internal/config"
	"reminder-bot/internal/logger"
	"reminder-bot/internal/repository"
	"reminder-bot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("reminder bot stopped with error", zap.Error(err))
	}
	lg.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, lg *zap.Logger) error {
	db, err := repository.NewDB(cfg.DatabaseURL, lg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	resolver := service.NewTimeResolver()

	api, err := bot.NewAPI(cfg.TelegramToken, lg)
	if err != nil {
		return err
	}
	sender := bot.NewSender(api, cfg.SendRate, lg)

	sched := service.NewSchedulerContext(service.SchedulerConfig{
		TickInterval: cfg.TickInterval,
		SendTimeout:  cfg.SendTimeout,
		EventBuffer:  cfg.EventBuffer,
	}, taskRepo, userRepo, resolver, sender, lg)

	taskSvc := service.NewTaskService(taskRepo, userRepo, resolver, sched.Timers)
	telegramBot := bot.New(api, sender, taskSvc, sched.Reminders, lg)

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	lg.Info("reminder bot started", zap.String("db", cfg.DatabaseURL))
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
