package main

import (
	"encoding/json"
	"io"

	"github.com/mikey/email-guardian/internal/adapters/store"
	"github.com/mikey/email-guardian/internal/di"
	"github.com/mikey/email-guardian/internal/factory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var opts di.CLIOptions

var rootCmd = &cobra.Command{
	Use:           "guardian-scan",
	Short:         "Scan emails for phishing and spam from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "path to config file")
	flags.StringVar(&opts.Provider, "provider", "", "AI provider override (huggingface, openai, gemini, bedrock, none)")
	flags.StringVar(&opts.StoreType, "store", "", "store type override (memory, sqlite, mysql, postgres)")
	flags.StringVar(&opts.SQLitePath, "sqlite-path", "", "SQLite database path override")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&opts.JSONLog, "json-log", false, "output logs in JSON format")

	rootCmd.AddCommand(scanCmd, createKeyCmd, historyCmd)
}

// invoke builds the CLI container and runs fn with its dependencies. The
// store and AI clients are released once fn returns.
func invoke(fn interface{}) error {
	container, err := di.BuildCLIContainer(&opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = container.Invoke(func(s store.Store, oracles *factory.OracleFactory, logger *zap.Logger) {
			_ = oracles.Close()
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close store", zap.Error(err))
			}
			_ = logger.Sync()
		})
	}()
	return container.Invoke(fn)
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
