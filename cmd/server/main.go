package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	stderrs "errors"

	"github.com/pkg/errors"

	"github.com/serenique/serenique-server/pkg/ai"
	"github.com/serenique/serenique-server/pkg/bootstrap"
	"github.com/serenique/serenique-server/pkg/chat"
	"github.com/serenique/serenique-server/pkg/config"
	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/insight"
	"github.com/serenique/serenique-server/pkg/logging"
	"github.com/serenique/serenique-server/pkg/persona"
	"github.com/serenique/serenique-server/pkg/server"
)

func main() {
	logger := logging.NewLogger()

	envs, err := config.LoadConfig(true)
	if err != nil {
		panic(errors.Wrap(err, "Unable to load config"))
	}
	logger.Info("Using database path", "path", envs.DBPath)

	if err := os.MkdirAll(filepath.Dir(envs.DBPath), 0o755); err != nil {
		panic(errors.Wrap(err, "Unable to create data directory"))
	}

	natsServer, err := bootstrap.StartEmbeddedNATSServer(logger)
	if err != nil {
		panic(errors.Wrap(err, "Unable to start nats server"))
	}
	defer natsServer.Shutdown()

	nc, err := bootstrap.NewNatsClient()
	if err != nil {
		panic(errors.Wrap(err, "Unable to create nats client"))
	}
	defer nc.Close()
	logger.Info("NATS client started")

	store, err := db.NewStore(envs.DBPath, logger)
	if err != nil {
		logger.Error("Unable to create or initialize database", "error", err)
		panic(errors.Wrap(err, "Unable to create or initialize database"))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing store", "error", err)
		}
	}()

	aiService := ai.NewOpenAIService(logger, envs.CompletionsAPIKey, envs.CompletionsAPIURL)
	architect := persona.NewArchitect(logger, aiService, envs.CompletionsModel)

	cache := chat.NewHistoryCache(logger, store, envs.HistoryCacheTTL)
	composer := chat.NewComposer(store, cache, envs.HistoryWindow, envs.InsightWindow)
	filter := &insight.Filter{
		DedupWindow: envs.InsightDedupWindow,
		DedupMaxAge: envs.InsightDedupMaxAge,
	}
	chatService := chat.NewService(logger, store, cache, composer, aiService, envs.CompletionsModel, filter, nc)

	httpServer := server.New(logger, chatService, architect, store, envs.ServerPort, envs.HistoryWindow, envs.InsightWindow)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.ListenAndServe()
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		logger.Info("Shutting down", "signal", sig)
	case err := <-serverErr:
		if err != nil && !stderrs.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
}
