//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	domsvc "ImpVol/internal/domain/service"
	"ImpVol/internal/usecase"
	"ImpVol/pkg/config"
	"ImpVol/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideSolverConfig,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideDigest,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideIVStorage,
		ProvideIVPublisher,

		// Use cases
		ProvideIVCalculator,
		wire.Bind(new(domsvc.Calculator), new(*usecase.IVCalculator)),
		ProvideChainSolver,
		wire.Bind(new(domsvc.ChainSolver), new(*usecase.ChainSolver)),
		ProvideQuoteProcessor,
		ProvideQuoteCollector,
		ProvideKafkaConsumer,
		ProvideKafkaQuotesHandler,

		// Transport
		ProvideIVHandler,
		ProvideHTTPServer,

		ProvideResources,
		ProvideApp,
	)
	return &server.App{}, nil
}
