package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-guardian/internal/adapters/ratelimit"
	"github.com/mikey/email-guardian/internal/adapters/store"
	"github.com/mikey/email-guardian/internal/config"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/mikey/email-guardian/internal/factory"
	"github.com/mikey/email-guardian/internal/logging"
	"github.com/mikey/email-guardian/internal/ports"
	"github.com/mikey/email-guardian/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	// Register rate limiter
	if err := container.Provide(factory.NewLimiterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.LimiterFactory) (ratelimit.Limiter, error) {
		return f.CreateLimiter(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register frontends
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) ([]ports.Frontend, error) {
		return f.CreateFrontends()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCore registers the store, the oracle and the core services. It
// expects *config.Config and *zap.Logger to be provided already.
func provideCore(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewOracleFactory); err != nil {
		return err
	}

	// Register store, which backs both scan records and credentials
	if err := container.Provide(func(f *factory.StoreFactory) (store.Store, error) {
		return f.CreateStore(context.Background())
	}); err != nil {
		return err
	}

	// Register oracle; nil when AI is disabled
	if err := container.Provide(func(f *factory.OracleFactory) (core.ToxicityOracle, error) {
		return f.CreateOracle(context.Background())
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register clock
	if err := container.Provide(func() core.Clock {
		return core.NewMonotonicClock()
	}); err != nil {
		return err
	}

	// Register pipeline stages
	if err := container.Provide(core.NewPatternMatcher); err != nil {
		return err
	}
	if err := container.Provide(core.NewVerdictCombiner); err != nil {
		return err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		oracle core.ToxicityOracle,
		logger *zap.Logger,
		tp *utils.TextProcessor,
	) *core.AISignalClient {
		return core.NewAISignalClient(oracle, cfg.GetAI().Timeout, logger, tp)
	}); err != nil {
		return err
	}

	// Register scan service
	if err := container.Provide(func(
		cfg *config.Config,
		matcher *core.PatternMatcher,
		signals *core.AISignalClient,
		combiner *core.VerdictCombiner,
		records store.Store,
		clock core.Clock,
		tp *utils.TextProcessor,
		logger *zap.Logger,
	) *core.ScanService {
		return core.NewScanService(matcher, signals, combiner, records, clock, tp, logger, cfg.GetStore().WriteTimeout)
	}); err != nil {
		return err
	}

	// Register credential service
	if err := container.Provide(func(s store.Store, clock core.Clock, logger *zap.Logger) *core.CredentialService {
		return core.NewCredentialService(s, clock, logger)
	}); err != nil {
		return err
	}

	return nil
}
