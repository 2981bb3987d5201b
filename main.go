package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthurdotwork/karaoke/cmd"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Config(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		slog.DebugContext(ctx, "received signal, initiating shutdown")
		cancel()
	}()

	root := &cobra.Command{
		Use:           "karaoke",
		Short:         "collaborative karaoke room server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "server",
		Short: "run the room session engine",
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Server(ctx, c)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "client",
		Short: "join a room from the terminal",
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Client(ctx, c)
		},
	})

	if err := root.ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "error running command", "error", err)
		os.Exit(1)
	}
}
