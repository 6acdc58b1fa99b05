//go:build wireinject
// +build wireinject

package di

import (
	"BrentShift/pkg/config"
	"BrentShift/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Data sources and persistence
		ProvidePriceSource,
		ProvideEventSource,
		ProvideResultStore,
		ProvidePublisher,

		// Analysis
		ProvideSampler,
		ProvideHolder,
		ProvideProgressHub,
		ProvideReportWriter,
		ProvidePipeline,
		ProvideScheduler,

		// Serving
		ProvideCache,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
