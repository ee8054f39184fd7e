package main

import (
	"context"

	"github.com/pkg/errors"

	"todo-planner/internal/app"
	"todo-planner/internal/config"
	"todo-planner/internal/logging"
)

func bootstrap(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, errors.Wrap(err, "logger")
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "startup")
	}
	return a, nil
}
