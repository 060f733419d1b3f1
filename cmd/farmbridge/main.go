package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/niksmo/farm-bridge/config"
	"github.com/niksmo/farm-bridge/internal/app"
	"github.com/niksmo/farm-bridge/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	farmBridge, err := app.New(sigCtx, cfg)
	if err != nil {
		slog.Error("failed to start", "err", err)
		os.Exit(1)
	}

	farmBridge.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	farmBridge.Close(ctx)
}
