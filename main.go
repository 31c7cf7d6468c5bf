package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"pongd/config"
	"pongd/report"
	"pongd/room"
	"pongd/wsserver"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	var reporter report.Reporter = report.Nop{}
	if cfg.PersistenceURL != "" || cfg.MatchmakingURL != "" || cfg.TournamentURL != "" {
		reporter = report.NewHTTP(report.Endpoints{
			Persistence: cfg.PersistenceURL,
			Matchmaking: cfg.MatchmakingURL,
			Tournament:  cfg.TournamentURL,
		}, logger)
	}

	registry := room.NewRegistry(reporter, logger)
	server := wsserver.New(registry, logger)

	logger.Info("pongd listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, server.Routes()); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
