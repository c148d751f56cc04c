// Package di provides dependency injection configuration for the OpenShelf server.
package di

import (
	"github.com/ggoodman/mcp-server-go/mcpservice"
	"github.com/samber/do/v2"

	"github.com/openshelf/openshelf-server/internal/catalog"
	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/di/providers"
	"github.com/openshelf/openshelf-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideClock)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideEngine)
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Workers
	do.Provide(injector, providers.ProvideScheduler)

	// Server
	do.Provide(injector, providers.ProvideMCPServer)

	return injector
}

// Bootstrap initializes all services. Invoking them here surfaces
// construction errors before the transport starts accepting requests.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[clock.Clock](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*circulation.Engine](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*catalog.Service](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.RateLimiterHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SchedulerHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[mcpservice.ServerCapabilities](injector); err != nil {
		return err
	}

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
