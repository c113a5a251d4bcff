package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/email-guardian/internal/adapters/ratelimit"
	"github.com/mikey/email-guardian/internal/adapters/store"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/mikey/email-guardian/internal/di"
	"github.com/mikey/email-guardian/internal/factory"
	"github.com/mikey/email-guardian/internal/ports"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

type deps struct {
	dig.In

	Logger    *zap.Logger
	Frontends []ports.Frontend
	Scans     *core.ScanService
	Store     store.Store
	Limiter   ratelimit.Limiter
	Oracles   *factory.OracleFactory
}

// run is the main application function that gets all dependencies injected
func run(d deps) error {
	logger := d.Logger
	defer logger.Sync()

	logger.Info("Email guardian starting",
		zap.Bool("ai_enabled", d.Scans.AIEnabled()),
		zap.Int("frontends", len(d.Frontends)))

	// Start the frontends
	started := make([]ports.Frontend, 0, len(d.Frontends))
	for _, fe := range d.Frontends {
		if err := fe.Start(); err != nil {
			logger.Error("Failed to start frontend", zap.String("frontend", fe.Name()), zap.Error(err))
			stopAll(logger, started)
			return err
		}
		started = append(started, fe)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	stopAll(logger, started)

	// Close any resources that need closing
	if d.Limiter != nil {
		if err := d.Limiter.Close(); err != nil {
			logger.Error("Failed to close rate limiter", zap.Error(err))
		}
	}
	if err := d.Oracles.Close(); err != nil {
		logger.Error("Failed to close AI client", zap.Error(err))
	}
	if err := d.Store.Close(); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

func stopAll(logger *zap.Logger, frontends []ports.Frontend) {
	for i := len(frontends) - 1; i >= 0; i-- {
		if err := frontends[i].Stop(); err != nil {
			logger.Error("Failed to stop frontend", zap.String("frontend", frontends[i].Name()), zap.Error(err))
		}
	}
}
