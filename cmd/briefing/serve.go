package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"news_briefing/internal/api"
	"news_briefing/internal/bot"
	"news_briefing/internal/pipeline"
	"news_briefing/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP API, the scheduler and the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	newRunner := func() scheduler.Runner {
		return pipeline.Build(cfg, store, log)
	}
	backfill := func(ctx context.Context, limit int) (*pipeline.BackfillResult, error) {
		return pipeline.Build(cfg, store, log).Backfill(ctx, limit)
	}

	sched := scheduler.New(store, newRunner, log)

	var b *bot.Bot
	if cfg.TelegramBotToken != "" {
		b, err = bot.New(cfg.TelegramBotToken, store, sched, cfg, log)
		if err != nil {
			return err
		}
		sched.SetReporter(b)
	} else {
		log.Info("telegram bot disabled")
	}

	if err := sched.Init(ctx); err != nil {
		return err
	}
	defer sched.Close()

	e := api.New(store, sched, backfill, log).Router()
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if b != nil {
		go b.Run(ctx)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
