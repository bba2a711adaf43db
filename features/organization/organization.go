// Package organization contributes organization-wide settings.
package organization

import (
	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
)

// Fragment declares the organization settings.
var Fragment = settings.Fragment{
	Name: "organization",
	Fields: map[string]settings.Field{
		"billing_email": {
			Type:        settings.TypeEmail,
			Storage:     settings.OrganizationSettings,
			Description: "Address receiving invoices",
		},
		"seats": {
			Type:    settings.TypeInt,
			Storage: settings.OrganizationSettings,
			Default: 1,
			Constraints: []settings.Constraint{
				{Type: settings.ConstraintMin, Value: 1, Message: "an organization needs at least one seat"},
				{Type: settings.ConstraintMax, Value: 10000},
			},
		},
		"webhook_secret": {
			Type:      settings.TypeString,
			Storage:   settings.OrganizationSettings,
			Sensitive: true,
			Constraints: []settings.Constraint{
				{Type: settings.ConstraintMinLength, Value: 16},
			},
			Description: "Shared secret used to sign outgoing webhooks",
		},
	},
}

// RegisterServer contributes the organization fragment.
func RegisterServer(r *filter.Registry[filter.Server]) error {
	return extension.ServerGetSettingsSchema.Enqueue(r, Fragment.Name, settings.Contribute(Fragment))
}
