package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/route"
	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/ports"
)

// CallbackRoute names one auth callback pattern.
type CallbackRoute struct {
	Name    string
	Pattern string
}

// Redirect is the outcome of a matched callback.
type Redirect struct {
	Match    route.Match
	Location string
}

// CallbackTable holds the matcher currently in use.
type CallbackTable struct {
	Matcher         *route.Matcher
	DefaultRedirect string
	LoadedAt        time.Time
}

// CallbackRouter matches auth callback paths and computes where to send the
// user next. The table can be swapped while requests are served.
type CallbackRouter struct {
	table  atomic.Pointer[CallbackTable]
	clock  ports.Clock
	logger zerolog.Logger
}

// NewCallbackRouter builds a router from routes.
func NewCallbackRouter(routes []CallbackRoute, defaultRedirect string, clock ports.Clock, logger zerolog.Logger) (*CallbackRouter, error) {
	r := &CallbackRouter{
		clock:  clock,
		logger: logger.With().Str("service", "callback").Logger(),
	}
	if err := r.Reload(routes, defaultRedirect); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload replaces the routing table. On error the previous table stays.
func (r *CallbackRouter) Reload(routes []CallbackRoute, defaultRedirect string) error {
	if defaultRedirect == "" {
		defaultRedirect = "/"
	}
	if !isLocalPath(defaultRedirect) {
		return fmt.Errorf("default redirect %q must be a local path", defaultRedirect)
	}

	m := route.NewMatcher()
	for _, cr := range routes {
		if err := m.Add(cr.Name, cr.Pattern); err != nil {
			return err
		}
	}

	r.table.Store(&CallbackTable{
		Matcher:         m,
		DefaultRedirect: defaultRedirect,
		LoadedAt:        r.clock.Now(),
	})
	r.logger.Info().Strs("routes", m.Names()).Msg("callback routes loaded")
	return nil
}

// Table returns the current routing table.
func (r *CallbackRouter) Table() *CallbackTable {
	return r.table.Load()
}

// Resolve matches path and builds the redirect target. next is the
// caller-requested destination; anything other than a local path falls back
// to the default redirect. The target is passed through server_get_url.
// An unmatched path returns false and no error.
func (r *CallbackRouter) Resolve(ctx context.Context, reg *filter.Registry[filter.Server], path, next string, scope settings.Scope) (Redirect, bool, error) {
	table := r.table.Load()
	m, ok := table.Matcher.Match(path)
	if !ok {
		return Redirect{}, false, nil
	}

	if !isLocalPath(next) {
		if next != "" {
			r.logger.Warn().Str("next", next).Str("route", m.Name).Msg("ignoring non-local redirect target")
		}
		next = table.DefaultRedirect
	}
	target, err := url.Parse(next)
	if err != nil {
		return Redirect{}, true, fmt.Errorf("parse redirect target: %w", err)
	}

	args := extension.URLArgs{
		Route:    m.Name,
		Params:   m.Params,
		Language: m.Params["lang"],
		Scope:    scope,
	}
	target, err = extension.ServerGetURL.Apply(reg, target, args)
	if err != nil {
		return Redirect{}, true, err
	}

	if target == nil {
		return Redirect{}, true, fmt.Errorf("server_get_url returned no target for %q", m.Name)
	}
	return Redirect{Match: m, Location: target.String()}, true, nil
}

// isLocalPath accepts absolute paths on this host and rejects scheme-relative
// or absolute URLs.
func isLocalPath(s string) bool {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme == "" && u.Host == ""
}
