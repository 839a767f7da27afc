package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/api"
	"github.com/MediaForgeNet/mediaforge-core/internal/batch"
	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/convert"
	"github.com/MediaForgeNet/mediaforge-core/internal/logger"
	workerpool "github.com/MediaForgeNet/mediaforge-core/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the mediaforge-core API server to drive batch media conversions over HTTP.`,
	Run:   runAPIServer,
}

func runAPIServer(cmd *cobra.Command, args []string) {
	log, err := logger.NewForAPI(cfg.App.LogLevel, true)
	if err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ffmpeg := effectiveFFmpeg()
	pool := workerpool.NewPool(
		workerpool.Config{UnitCount: effectiveWorkerCount()},
		func() (codec.Engine, error) { return codec.NewRouterEngine(ffmpeg) },
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pool.Initialize(ctx); err != nil {
		log.Fatal("Failed to initialize worker pool", zap.Error(err))
	}
	defer pool.Terminate()

	service := convert.NewService(pool, log)
	manager := batch.NewManager(service, pool.UnitCount(), log)

	handler := api.NewHandler(manager, pool, log, api.VersionInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: goVersion,
		Platform:  platform,
	}, cfg.Server.MaxUploadBytes, cfg.Server.SubmitRatePerSec)

	router := api.NewRouter(handler, log)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("API server starting",
			zap.String("addr", srv.Addr),
			zap.Int("units", pool.UnitCount()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
