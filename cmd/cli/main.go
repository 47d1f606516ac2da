package main

import (
	"os"
	"strings"

	"github.com/nimasrn/laser/internal/config"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/pg"
)

// usage: cli [up|down|status] --env=.env --dir=./migrations
func main() {
	if err := config.Load(flagValue("--env=", ".env")); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()
	if err := logger.Setup(cfg.AppName+"-cli", cfg.AppEnv, cfg.AppDebug); err != nil {
		logger.Error("failed to set up logger", "error", err)
		os.Exit(1)
	}

	direction := "up"
	for _, arg := range os.Args[1:] {
		if !strings.HasPrefix(arg, "--") {
			direction = arg
			break
		}
	}

	err := pg.Migrate(cfg.PostgresWrite(), flagValue("--dir=", "./migrations"), direction)
	if err != nil {
		logger.Error("migration: error running migrations", "direction", direction, "error", err)
		os.Exit(1)
	}
}

// flagValue returns the value of a --name=value argument, or fallback when the
// argument is missing. A path that does not exist yields "".
func flagValue(prefix, fallback string) string {
	path := fallback
	for _, v := range os.Args {
		if p, ok := strings.CutPrefix(v, prefix); ok {
			path = p
			break
		}
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn("path not found", "flag", prefix, "path", path, "error", err)
		return ""
	}
	return path
}
