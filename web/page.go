// Package web renders the server-side pages.
// Page bodies are html/template fragments turned into templ components, then
// wrapped by the display_app_provider chain of the client registry.
package web

import (
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
)

// PageData holds the data every page template receives.
type PageData struct {
	Title    string
	Path     string
	Language string
	Theme    string
	Values   []app.Value
	Link     extension.URLUpdater // Rewrites application links, use as {{call .Link "/path"}}
}

// Renderer builds page components.
type Renderer struct {
	client *filter.Registry[filter.Client]
	pages  *template.Template
	logger zerolog.Logger
}

// NewRenderer parses the page templates. client may be nil, in which case
// pages render without providers and links are left unchanged.
func NewRenderer(client *filter.Registry[filter.Client], logger zerolog.Logger) (*Renderer, error) {
	pages, err := template.New("pages").Parse(pageTemplates)
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &Renderer{
		client: client,
		pages:  pages,
		logger: logger.With().Str("component", "web").Logger(),
	}, nil
}

// Page returns the component for the named page template.
func (r *Renderer) Page(name string, args extension.PageArgs, values []app.Value) (templ.Component, error) {
	if r.pages.Lookup(name) == nil {
		return nil, fmt.Errorf("unknown page %q", name)
	}

	link, err := extension.GetURLUpdater.Apply(r.client, extension.Identity, args)
	if err != nil {
		return nil, err
	}

	data := PageData{
		Title:    args.Title,
		Path:     args.Path,
		Language: args.Language,
		Theme:    args.Theme,
		Values:   values,
		Link:     link,
	}
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.pages.ExecuteTemplate(w, name, data)
	})

	wrapped, err := extension.DisplayAppProvider.Apply(r.client, body, args)
	if err != nil {
		return nil, err
	}

	if r.client != nil {
		r.logger.Debug().
			Str("page", name).
			Strs("providers", r.client.Entries(extension.DisplayAppProvider.Name())).
			Msg("page assembled")
	}
	return document(wrapped, data), nil
}

// document renders the HTML shell around body.
func document(body templ.Component, data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := shell.ExecuteTemplate(w, "head", data); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n</body>\n</html>\n")
		return err
	})
}

var shell = template.Must(template.New("shell").Parse(`{{define "head"}}<!DOCTYPE html>
<html lang="{{if .Language}}{{.Language}}{{else}}en{{end}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
</head>
<body>
{{end}}`))
