package logger_test

import (
	"log/slog"

	"github.com/tapestry-kg/tapestry/pkg/logger"
)

func Example() {
	// Create a logger with default settings
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("traversal frontier expanded", "depth", 2, "nodes", 14)
	log.Info("persisted node batch", "count", 128)
	log.Warn("snapshot cache miss", "generation", 42)
	log.Error("backend write failed", "key", "n:ada")

	// Output:
}
