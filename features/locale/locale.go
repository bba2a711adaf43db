// Package locale contributes the user's language setting and prefixes
// application links and redirects with the language segment.
package locale

import (
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
)

// Locale holds the supported languages.
type Locale struct {
	languages []string
	fallback  string
}

// New returns a Locale. The fallback must be one of languages.
func New(languages []string, fallback string) (*Locale, error) {
	if len(languages) == 0 {
		return nil, errors.New("locale: at least one language is required")
	}
	if !slices.Contains(languages, fallback) {
		return nil, errors.New("locale: default language " + fallback + " is not supported")
	}
	return &Locale{languages: slices.Clone(languages), fallback: fallback}, nil
}

// Fragment declares the language setting.
func (l *Locale) Fragment() settings.Fragment {
	return settings.Fragment{
		Name: "locale",
		Fields: map[string]settings.Field{
			"language": {
				Type:        settings.TypeEnum,
				Values:      slices.Clone(l.languages),
				Storage:     settings.UserSettings,
				Default:     l.fallback,
				Description: "Interface language",
			},
		},
	}
}

// Supported reports whether lang is a configured language.
func (l *Locale) Supported(lang string) bool {
	return slices.Contains(l.languages, lang)
}

// RegisterServer contributes the fragment and the redirect rewriter.
func (l *Locale) RegisterServer(r *filter.Registry[filter.Server]) error {
	if err := extension.ServerGetSettingsSchema.Enqueue(r, "locale", settings.Contribute(l.Fragment())); err != nil {
		return err
	}
	return extension.ServerGetURL.Enqueue(r, "locale", l.rewriteURL)
}

// RegisterClient installs the link updater.
func (l *Locale) RegisterClient(r *filter.Registry[filter.Client]) error {
	return extension.GetURLUpdater.Enqueue(r, "locale", func(u extension.URLUpdater, args extension.PageArgs) extension.URLUpdater {
		if !l.Supported(args.Language) || args.Language == l.fallback {
			return u
		}
		return u.Then(func(link string) string { return l.prefix(link, args.Language) })
	})
}

func (l *Locale) rewriteURL(u *url.URL, args extension.URLArgs) *url.URL {
	if u == nil || u.IsAbs() || !l.Supported(args.Language) {
		return u
	}
	out := *u
	out.Path = l.prefix(u.Path, args.Language)
	return &out
}

// prefix adds "/lang" to a local path unless it already starts with a
// supported language segment.
func (l *Locale) prefix(path, lang string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return path
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if l.Supported(first) {
		return path
	}
	if path == "/" {
		return "/" + lang
	}
	return "/" + lang + path
}
