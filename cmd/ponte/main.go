package main

import (
	"log/slog"
	"os"

	"github.com/rmaia/ponte/internal/cli"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("PONTE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cli.Execute()
}
