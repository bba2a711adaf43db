// Package extension declares the extension points the application applies.
// Feature modules enqueue callbacks against these values; the HTTP layer and
// the settings service apply them.
package extension

import (
	"net/url"
	"time"

	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
)

// PageArgs describes the page being rendered.
type PageArgs struct {
	Path     string
	Title    string
	Language string
	Theme    string
	Scope    settings.Scope
}

// URLUpdater rewrites an application link before it is rendered.
type URLUpdater func(link string) string

// Identity leaves links unchanged. It seeds the get_url_updater chain.
func Identity(link string) string { return link }

// Then returns an updater applying u and then next.
func (u URLUpdater) Then(next func(string) string) URLUpdater {
	if u == nil {
		return next
	}
	return func(link string) string { return next(u(link)) }
}

// URLArgs describes the redirect being built.
type URLArgs struct {
	Route    string            // Matched route name
	Params   map[string]string // Placeholder bindings of the matched route
	Language string
	Scope    settings.Scope
}

// ErrorReport is the value threaded through capture_global_error.
type ErrorReport struct {
	ID      string
	Err     error
	Message string
	Time    time.Time
	Tags    map[string]string
}

// RequestInfo identifies the request that failed.
type RequestInfo struct {
	Method    string
	Path      string
	RequestID string
}

var (
	// DisplayAppProvider wraps the page body in providers.
	DisplayAppProvider = filter.NewRender[filter.Client, PageArgs]("display_app_provider")

	// GetURLUpdater builds the link rewriter used while rendering.
	GetURLUpdater = filter.NewTransform[filter.Client, URLUpdater, PageArgs]("get_url_updater")

	// ServerGetSettingsSchema assembles the settings schema from fragments.
	ServerGetSettingsSchema = filter.NewAsync[filter.Server, settings.Schema, settings.Scope]("server_get_settings_schema")

	// ServerGetURL rewrites redirect targets.
	ServerGetURL = filter.NewTransform[filter.Server, *url.URL, URLArgs]("server_get_url")

	// CaptureGlobalError runs side effects for errors recovered by the HTTP layer.
	CaptureGlobalError = filter.NewAsync[filter.Server, ErrorReport, RequestInfo]("capture_global_error")
)
