package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"todo-planner/internal/service"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily reminder schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			router, err := a.Router()
			if err != nil {
				return err
			}

			scheduler := service.NewSchedulerService(a.Location, a.Log)
			id, err := scheduler.ScheduleDaily(ctx, a.Config.Reminder.At, func(jobCtx context.Context) {
				if _, err := a.RemindOnce(jobCtx, time.Now(), os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
					a.Log.WithError(err).Error("reminder run failed")
				}
			})
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
			a.Log.WithField("next", scheduler.Next(id, time.Now())).Info("reminders scheduled")

			srv := &http.Server{
				Addr:              a.Config.HTTP.Address,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      a.Config.HTTP.Timeout + 5*time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.Log.WithField("addr", srv.Addr).Info("API listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.Log.Info("shutdown complete")
			return nil
		},
	}
}
