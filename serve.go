package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chxlky/homework-board-sync/api"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync trigger and the board API",
		RunE: func(cmd *cobra.Command, args []string) error {
			serve(logger, loadApp(cmd.Context()))
			return nil
		},
	}
}

func serve(logger *zap.Logger, a *app) {
	gin.SetMode(gin.ReleaseMode)

	handler := &api.Handler{
		Board:       a.board,
		Store:       a.store,
		SyncTimeout: a.cfg.Sync.Timeout,
		ConfigErr:   a.configErr,
	}
	if a.syncer != nil {
		handler.Syncer = a.syncer
	}
	srv := &http.Server{
		Addr:    ":" + a.cfg.Server.Port,
		Handler: api.NewRouter(logger, handler),
	}

	zap.L().Info("Starting server", zap.String("port", a.cfg.Server.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}

		a.close()
		close(done)
	}

	go func() {
		sig := <-sigCh
		once.Do(func() {
			cleanup(sig.String())
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	<-done
	zap.L().Info("Exiting...")
}
