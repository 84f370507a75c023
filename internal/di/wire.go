//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/guarzo/thriftflip/internal/app"
	"github.com/guarzo/thriftflip/internal/config"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*app.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Collaborators
		ProvideEbayClient,
		ProvideScraper,
		ProvideSearcher,
		ProvideAnnotator,

		// Pipeline
		ProvideService,

		// Transport and background jobs
		ProvideHandler,
		ProvideServer,
		ProvideScheduler,
		ProvideApp,
	)
	return nil, nil, nil
}
