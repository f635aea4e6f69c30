// Command zenlited is a demonstration peer built on top of
// internal/session: it wires the session core to a UDP multicast
// transport, a zap logger and (optionally) Prometheus metrics, and
// exposes put/get/sub/serve subcommands for exercising the core from
// the command line.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/joshuafuller/zenlite/cmd/zenlited/internal/cli"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zenlited: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cli.NewRootCommand(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
