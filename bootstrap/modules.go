package bootstrap

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/adapters/idgen"
	"github.com/artpar/saasgate/config"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/features/appearance"
	"github.com/artpar/saasgate/features/fragments"
	"github.com/artpar/saasgate/features/locale"
	"github.com/artpar/saasgate/features/monitoring"
	"github.com/artpar/saasgate/features/organization"
	"github.com/artpar/saasgate/ports"
)

// Modules holds the feature modules and the registrars they contribute.
// Server registrars run once per request; client registrars run once at
// startup.
type Modules struct {
	Locale    *locale.Locale
	Fragments *fragments.Source
	Reporter  *monitoring.Reporter

	Server []filter.Registrar[filter.Server]
	Client []filter.Registrar[filter.Client]
}

// NewModules builds the feature modules from configuration. reports may be
// nil when metrics are disabled.
func NewModules(cfg *config.Config, clock ports.Clock, reports *prometheus.CounterVec, logger zerolog.Logger) (*Modules, error) {
	l, err := locale.New(cfg.Locale.Languages, cfg.Locale.Default)
	if err != nil {
		return nil, err
	}

	src, err := fragments.NewSource(cfg.Settings.FragmentFiles, logger)
	if err != nil {
		return nil, fmt.Errorf("load fragments: %w", err)
	}

	reporter := monitoring.New(logger, idgen.Ordered{Prefix: "err_"}, clock, reports)

	m := &Modules{
		Locale:    l,
		Fragments: src,
		Reporter:  reporter,
	}
	m.Server = []filter.Registrar[filter.Server]{
		appearance.RegisterServer,
		organization.RegisterServer,
		l.RegisterServer,
		src.RegisterServer,
		reporter.RegisterServer,
	}
	m.Client = []filter.Registrar[filter.Client]{
		appearance.RegisterClient,
		l.RegisterClient,
	}
	return m, nil
}

// ServerRegistry builds a server registry outside of a request, for the CLI.
func (m *Modules) ServerRegistry(observer filter.Observer) (*filter.Registry[filter.Server], error) {
	return filter.Setup(observer, m.Server...)
}

// ClientRegistry builds the client registry used for page rendering.
func (m *Modules) ClientRegistry(observer filter.Observer) (*filter.Registry[filter.Client], error) {
	return filter.Setup(observer, m.Client...)
}
