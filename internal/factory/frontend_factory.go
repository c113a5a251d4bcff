package factory

import (
	"fmt"

	"github.com/mikey/email-guardian/internal/adapters/api"
	"github.com/mikey/email-guardian/internal/adapters/mailfilter"
	"github.com/mikey/email-guardian/internal/adapters/ratelimit"
	"github.com/mikey/email-guardian/internal/config"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/mikey/email-guardian/internal/ports"
	"github.com/mikey/email-guardian/internal/utils"
	"github.com/mikey/email-guardian/internal/whitelist"
	"go.uber.org/zap"
)

// FrontendFactory creates the enabled intake frontends
type FrontendFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	scans         *core.ScanService
	credentials   *core.CredentialService
	limiter       ratelimit.Limiter
	clock         core.Clock
	textProcessor *utils.TextProcessor
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(
	cfg *config.Config,
	logger *zap.Logger,
	scans *core.ScanService,
	credentials *core.CredentialService,
	limiter ratelimit.Limiter,
	clock core.Clock,
	textProcessor *utils.TextProcessor,
) *FrontendFactory {
	return &FrontendFactory{
		cfg:           cfg,
		logger:        logger,
		scans:         scans,
		credentials:   credentials,
		limiter:       limiter,
		clock:         clock,
		textProcessor: textProcessor,
	}
}

// CreateFrontends returns every frontend enabled in the configuration
func (f *FrontendFactory) CreateFrontends() ([]ports.Frontend, error) {
	var frontends []ports.Frontend

	if srv := f.cfg.GetServer(); srv.Enabled {
		var limiter core.RateLimiter
		if f.limiter != nil {
			limiter = f.limiter
		}
		frontends = append(frontends, api.NewServer(f.scans, f.credentials, limiter, f.clock, api.Options{
			ListenAddress:   srv.ListenAddress,
			Mode:            srv.Mode,
			ReadTimeout:     srv.ReadTimeout,
			WriteTimeout:    srv.WriteTimeout,
			ShutdownTimeout: srv.ShutdownTimeout,
			AuthEnabled:     f.cfg.GetAuth().Enabled,
			AIProvider:      f.cfg.GetAI().Provider,
			StoreType:       f.cfg.GetStore().Type,
		}, f.logger))
	}

	if sm := f.cfg.GetSMTP(); sm.Enabled {
		var relay mailfilter.Relay
		if sm.RelayEnabled {
			relay = mailfilter.NewSMTPRelay(sm.RelayAddress, sm.RelayPort, f.logger)
		}
		frontends = append(frontends, mailfilter.NewFilter(
			f.scans,
			whitelist.NewChecker(sm.WhitelistedDomains, f.logger),
			relay,
			f.textProcessor,
			mailfilter.Options{
				ListenAddress:        sm.ListenAddress,
				RejectHighRisk:       sm.RejectHighRisk,
				ClassificationHeader: sm.ClassificationHeader,
				ConfidenceHeader:     sm.ConfidenceHeader,
				RiskHeader:           sm.RiskHeader,
				ScanIDHeader:         sm.ScanIDHeader,
			},
			f.logger,
		))
	}

	if len(frontends) == 0 {
		return nil, fmt.Errorf("no frontend enabled: set server.enabled or smtp.enabled")
	}
	return frontends, nil
}
