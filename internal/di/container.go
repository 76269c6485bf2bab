// Package di provides dependency injection configuration for chaptify.
package di

import (
	"github.com/samber/do/v2"

	"github.com/chaptifyapp/chaptify/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Catalog layer
	do.Provide(injector, providers.ProvideSpotifyClient)

	// Media toolchain
	do.Provide(injector, providers.ProvideProber)
	do.Provide(injector, providers.ProvideRemuxer)

	// Pipeline
	do.Provide(injector, providers.ProvideIdentityExtractor)
	do.Provide(injector, providers.ProvideMatcher)
	do.Provide(injector, providers.ProvidePipeline)

	return injector
}
