// Package appearance contributes the user's theme settings and wraps pages in
// a theme provider.
package appearance

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
)

// Themes lists the accepted theme values.
var Themes = []string{"light", "dark", "system"}

// Fragment declares the appearance settings.
var Fragment = settings.Fragment{
	Name: "appearance",
	Fields: map[string]settings.Field{
		"theme": {
			Type:        settings.TypeEnum,
			Values:      Themes,
			Storage:     settings.UserSettings,
			Default:     "system",
			Description: "Color scheme of the application",
		},
		"font_scale": {
			Type:    settings.TypeFloat,
			Storage: settings.UserSettings,
			Default: 1.0,
			Constraints: []settings.Constraint{
				{Type: settings.ConstraintMin, Value: 0.5},
				{Type: settings.ConstraintMax, Value: 2.0},
			},
			Description: "Text size multiplier",
		},
	},
}

// RegisterServer contributes the appearance fragment.
func RegisterServer(r *filter.Registry[filter.Server]) error {
	return extension.ServerGetSettingsSchema.Enqueue(r, Fragment.Name, settings.Contribute(Fragment))
}

// RegisterClient installs the theme provider.
func RegisterClient(r *filter.Registry[filter.Client]) error {
	return extension.DisplayAppProvider.Enqueue(r, "appearance.theme", ThemeProvider)
}

// ThemeProvider wraps child in an element carrying the page theme.
func ThemeProvider(child templ.Component, args extension.PageArgs) templ.Component {
	theme := args.Theme
	if theme == "" {
		theme = "system"
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="theme-provider" data-theme="`+templ.EscapeString(theme)+`">`); err != nil {
			return err
		}
		if err := child.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
