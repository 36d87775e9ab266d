package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/app"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration; exits on invalid settings.
	cfg := config.New()

	if err := app.Run(ctx, cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
