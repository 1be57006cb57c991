package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lguibr/bollywood"
	"go.uber.org/zap"

	"spotit-server/game"
	"spotit-server/server"
	"spotit-server/utils"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := utils.DefaultConfig()
	engine := bollywood.NewEngine()

	managerPID := engine.Spawn(bollywood.NewProps(game.NewRoomManagerProducer(engine, cfg, logger)))
	if managerPID == nil {
		logger.Fatal("failed to spawn room manager")
	}

	srv := server.New(engine, managerPID, logger)
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":3001"
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	engine.Shutdown(5 * time.Second)
	logger.Info("bye")
}
