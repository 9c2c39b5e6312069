// Package di provides dependency injection configuration for the ReadAlong server.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/readalong/readalong-server/internal/channel"
	"github.com/readalong/readalong-server/internal/config"
	"github.com/readalong/readalong-server/internal/di/providers"
	"github.com/readalong/readalong-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage and search
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Runtime sync
	do.Provide(injector, providers.ProvideChannel)
	do.Provide(injector, providers.ProvideContentService)

	// Workers
	do.Provide(injector, providers.ProvideWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNS)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services. Stored content is
// activated before the artifact watcher starts so disk imports never race
// the startup load.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*channel.Channel](injector)

	contentHandle := do.MustInvoke[*providers.ContentServiceHandle](injector)
	if err := contentHandle.LoadStored(context.Background()); err != nil {
		log.Error("Failed to load stored content", "error", err)
		return err
	}

	// Workers
	_ = do.MustInvoke[*providers.WatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSHandle](injector)

	return nil
}
