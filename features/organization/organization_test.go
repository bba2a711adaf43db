package organization_test

import (
	"errors"
	"testing"

	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/features/organization"
)

func TestFragment(t *testing.T) {
	if err := organization.Fragment.Check(); err != nil {
		t.Fatalf("Check() = %v", err)
	}
	for name, f := range organization.Fragment.Fields {
		if f.Storage != settings.OrganizationSettings {
			t.Errorf("%s stored in %q", name, f.Storage)
		}
	}
	if !organization.Fragment.Fields["webhook_secret"].Sensitive {
		t.Error("webhook_secret must be sensitive")
	}
}

func TestSeats(t *testing.T) {
	seats := organization.Fragment.Fields["seats"]
	_, err := seats.Validate("seats", 0)

	var verr *settings.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate(0) error = %v, want *ValidationError", err)
	}
	if verr.Errors[0].Message != "an organization needs at least one seat" {
		t.Errorf("message = %q", verr.Errors[0].Message)
	}
}
