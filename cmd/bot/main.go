package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/studykit/study-companion/internal/app/bootstrap"
	"github.com/studykit/study-companion/internal/config"
	"github.com/studykit/study-companion/pkg/logging"
)

const pollErrorBackoff = 3 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rt.HTTP,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http sidecar listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http sidecar failed", "error", err)
		}
	}()

	logger.Info("bot polling started", "env", cfg.Env)
	poll(ctx, rt, cfg.PollTimeoutSecs, logger)

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	rt.Sequencer.Wait()
	if err := rt.Close(); err != nil {
		logger.Error("runtime close failed", "error", err)
	}
	logger.Info("goodbye")
}

// poll runs the getUpdates long-poll loop until ctx is cancelled. Each
// update is dispatched onto its user's turn queue; the loop itself
// never blocks on turn execution.
func poll(ctx context.Context, rt *bootstrap.Runtime, timeoutSecs int, logger *logging.Logger) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := rt.Telegram.GetUpdates(ctx, offset, timeoutSecs)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollErrorBackoff):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			rt.Router.Dispatch(ctx, update)
		}
	}
}
