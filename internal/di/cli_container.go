package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-guardian/internal/config"
	"github.com/mikey/email-guardian/internal/logging"
)

// CLIOptions contains the global flags of the command line tool
type CLIOptions struct {
	ConfigFile string
	Provider   string
	StoreType  string
	SQLitePath string
	Verbose    bool
	JSONLog    bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(opts *CLIOptions) (*dig.Container, error) {
	container := dig.New()

	// Register options
	if err := container.Provide(func() *CLIOptions { return opts }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(opts *CLIOptions) (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(opts *CLIOptions, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewFromFile(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyOverrides(cfg, opts)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyOverrides lets command line flags take precedence over the configuration file
func applyOverrides(cfg *config.Config, opts *CLIOptions) {
	v := cfg.GetViper()
	if opts.Provider != "" {
		v.Set("ai.provider", opts.Provider)
	}
	if opts.StoreType != "" {
		v.Set("store.type", opts.StoreType)
	}
	if opts.SQLitePath != "" {
		v.Set("store.sqlite_path", opts.SQLitePath)
	}
}
