package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arthurdotwork/karaoke/internal/adapters/primary/httpapi"
	subscriber "github.com/arthurdotwork/karaoke/internal/adapters/primary/redis"
	"github.com/arthurdotwork/karaoke/internal/adapters/primary/worker"
	"github.com/arthurdotwork/karaoke/internal/adapters/primary/ws"
	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/archive"
	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/broadcaster"
	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/registry"
	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/store"
	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/config"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/pubsub"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/redis"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/runner"
	"github.com/spf13/cobra"
	echo "github.com/labstack/echo/v4"
)

func Server(ctx context.Context, _ *cobra.Command) error {
	cfg, err := config.Parse()
	if err != nil {
		return fmt.Errorf("config.Parse: %w", err)
	}

	limits := domain.Limits{
		MaxParticipants: cfg.MaxParticipants,
		MaxQueue:        cfg.MaxQueue,
		ChatHistory:     cfg.ChatHistory,
		MaxChatLength:   cfg.MaxChatLength,
		ReconnectGrace:  cfg.ReconnectGrace,
	}

	redisClient := redis.NewClient(cfg.RedisAddr)

	publisher := pubsub.NewPublisher(cfg.RedisAddr)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.ErrorContext(ctx, "publisher.Close", "error", err)
		}
	}()

	roomArchive := archive.NewArchive(redisClient, publisher)
	redisBroadcaster := broadcaster.NewBroadcaster(redisClient, cfg.EventChannel)
	sessionStore := store.NewSessionStore(ctx, limits, redisBroadcaster, roomArchive, cfg.IdleGrace)
	roomRouter := domain.NewRouter(sessionStore, roomArchive, limits)
	connections := registry.NewRegistry()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	ws.NewHandler(roomRouter, connections).Register(e)
	httpapi.NewHandler(roomRouter).Register(e)

	r := runner.New(ctx)

	r.Go(func() error {
		errCh := make(chan error, 1)

		go func() {
			slog.DebugContext(ctx, "starting server", "address", cfg.HTTPAddr)

			if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "error serving", "error", err)
				errCh <- fmt.Errorf("e.Start: %w", err)
				return
			}

			errCh <- nil
		}()

		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "context done, stopping server")
			return ctx.Err()
		case err := <-errCh:
			return err
		}
	})

	r.Go(func() error {
		sub := subscriber.NewSubscriber(redisClient, connections)
		errCh := make(chan error, 1)

		go func() {
			errCh <- sub.Subscribe(ctx, cfg.EventChannel)
		}()

		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "context done, stopping subscriber")
			return ctx.Err()
		case err := <-errCh:
			if err != nil {
				slog.ErrorContext(ctx, "error subscribing", "error", err)
				return fmt.Errorf("sub.Subscribe: %w", err)
			}

			return nil
		}
	})

	r.Go(func() error {
		return worker.NewWorker(pubsub.NewSubscriber(cfg.RedisAddr), roomArchive).Run(ctx)
	})

	r.Go(func() error {
		return sessionStore.Janitor(ctx, cfg.SweepInterval)
	})

	if err := r.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "error running server", "error", err)
	}

	slog.DebugContext(ctx, "initiating server shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer shutdownCancel()

	if err := connections.Close(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "error closing connections", "error", err)
	}

	if err := sessionStore.Close(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "error closing session store", "error", err)
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "error shutting down http server", "error", err)
	}

	return nil
}
