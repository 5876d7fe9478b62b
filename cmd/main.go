package main

import (
	"log/slog"
	"os"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/config"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/server"
)

func main() {
	config.LoadDotEnv()
	envConfig := config.LoadEnv()

	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := server.Start(cfg, envConfig); err != nil {
		os.Exit(1)
	}
}
