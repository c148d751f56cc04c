// Package main provides the entry point for the OpenShelf server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/mcp-server-go/mcpservice"
	"github.com/ggoodman/mcp-server-go/stdio"
	"github.com/samber/do/v2"

	"github.com/openshelf/openshelf-server/internal/di"
	"github.com/openshelf/openshelf-server/internal/di/providers"
	"github.com/openshelf/openshelf-server/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	server := do.MustInvoke[mcpservice.ServerCapabilities](injector)
	scheduler := do.MustInvoke[*providers.SchedulerHandle](injector)

	scheduler.Start()

	// Serve until the client closes stdin or we get a signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := stdio.NewHandler(server, stdio.WithLogger(log.Logger))
	if err := handler.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server stopped with error", "error", err)
	}

	log.Info("Shutting down server gracefully...")

	// Shutdown all services in reverse order; the container handles
	// everything that implements do.Shutdownable.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Goodbye")
}
