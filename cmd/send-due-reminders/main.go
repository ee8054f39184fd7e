// Command send-due-reminders emails every owner about their tasks due
// tomorrow and exits. It is meant for an external scheduler such as cron.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-planner/internal/app"
	"todo-planner/internal/config"
	"todo-planner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	if _, err := a.RemindOnce(ctx, time.Now(), os.Stdout); err != nil {
		a.Close()
		log.Fatalf("reminders: %v", err)
	}
}
