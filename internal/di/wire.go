//go:build wireinject
// +build wireinject

package di

import (
	"SignalFusion/pkg/config"
	"SignalFusion/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCache,
		ProvideQueue,
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStore,
		ProvideCandleSource,
		ProvidePredictionCache,
		ProvidePredictionHistory,
		ProvideCandlePublisher,
		ProvidePredictionPublisher,

		// Engine and collaborators
		ProvideEngine,
		ProvideClassifier,
		ProvideFearGreed,
		ProvideNewsSentiment,

		// Use cases
		ProvidePredictionService,
		ProvideMarketData,
		ProvideCandleProcessor,
		ProvideCandleCollector,
		ProvideKafkaCandlesHandler,
		ProvideRefreshJob,
		ProvideScheduler,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
