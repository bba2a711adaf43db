package app_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/adapters/memory"
	"github.com/artpar/saasgate/adapters/random"
	"github.com/artpar/saasgate/adapters/secretbox"
	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/ports"
)

var (
	userFragment = settings.Fragment{
		Name: "appearance",
		Fields: map[string]settings.Field{
			"theme":      {Type: settings.TypeEnum, Values: []string{"light", "dark"}, Storage: settings.UserSettings, Default: "light"},
			"font_scale": {Type: settings.TypeFloat, Storage: settings.UserSettings, Default: 1},
		},
	}
	orgFragment = settings.Fragment{
		Name: "organization",
		Fields: map[string]settings.Field{
			"seats": {
				Type:        settings.TypeInt,
				Storage:     settings.OrganizationSettings,
				Constraints: []settings.Constraint{{Type: settings.ConstraintMin, Value: 1}},
			},
			"webhook_secret": {Type: settings.TypeString, Storage: settings.OrganizationSettings, Sensitive: true},
			"metadata":       {Type: settings.TypeJSON, Storage: settings.OrganizationSettings},
		},
	}
	scope = settings.Scope{UserID: "u1", OrganizationID: "o1"}
)

func registry(t *testing.T, fragments ...settings.Fragment) *filter.Registry[filter.Server] {
	t.Helper()
	r, err := filter.Setup[filter.Server](nil, func(r *filter.Registry[filter.Server]) error {
		for _, f := range fragments {
			if err := extension.ServerGetSettingsSchema.Enqueue(r, f.Name, settings.Contribute(f)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return r
}

type fixture struct {
	svc   *app.SettingsService
	users *memory.SettingsStore
	orgs  *memory.SettingsStore
	ops   *recorder
}

type recorder struct {
	ops []string
}

func (r *recorder) SettingsOperation(op, backend string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.ops = append(r.ops, op+"/"+backend+"/"+outcome)
}

func newFixture(t *testing.T, cipher ports.Cipher) fixture {
	t.Helper()
	f := fixture{
		users: memory.NewSettingsStore(),
		orgs:  memory.NewSettingsStore(),
		ops:   &recorder{},
	}
	backends := ports.SettingsBackends{
		settings.UserSettings:         f.users,
		settings.OrganizationSettings: f.orgs,
	}
	f.svc = app.NewSettingsService(backends, cipher, zerolog.Nop()).WithObserver(f.ops)
	return f
}

func TestSettingsService_ResolveSchema(t *testing.T) {
	f := newFixture(t, nil)
	schema, err := f.svc.ResolveSchema(context.Background(), registry(t, userFragment, orgFragment), scope)
	if err != nil {
		t.Fatalf("ResolveSchema failed: %v", err)
	}
	want := []string{"font_scale", "metadata", "seats", "theme", "webhook_secret"}
	if diff := cmp.Diff(want, schema.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsService_ResolveSchemaEmpty(t *testing.T) {
	f := newFixture(t, nil)
	schema, err := f.svc.ResolveSchema(context.Background(), registry(t), scope)
	if err != nil {
		t.Fatalf("ResolveSchema failed: %v", err)
	}
	if schema.Len() != 0 {
		t.Errorf("Len() = %d, want 0", schema.Len())
	}
}

func TestSettingsService_ResolveSchemaConflict(t *testing.T) {
	legacy := settings.Fragment{Name: "legacy", Fields: map[string]settings.Field{
		"theme": {Type: settings.TypeString, Storage: settings.UserSettings},
	}}
	f := newFixture(t, nil)

	_, err := f.svc.ResolveSchema(context.Background(), registry(t, userFragment, legacy), scope)
	var conflict *settings.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("ResolveSchema error = %v, want *settings.ConflictError", err)
	}
	if conflict.Key != "theme" {
		t.Errorf("conflict key = %q, want theme", conflict.Key)
	}
	var chainErr *filter.ChainError
	if !errors.As(err, &chainErr) || chainErr.Entry != "legacy" {
		t.Errorf("chain error = %v, want failing entry legacy", chainErr)
	}
}

func TestSettingsService_GetDefault(t *testing.T) {
	f := newFixture(t, nil)
	v, err := f.svc.GetValue(context.Background(), registry(t, userFragment), scope, "font_scale")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	want := app.Value{Name: "font_scale", Value: float64(1), Default: true, Storage: settings.UserSettings}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("GetValue mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsService_SetThenGet(t *testing.T) {
	f := newFixture(t, nil)
	reg := registry(t, userFragment, orgFragment)
	ctx := context.Background()

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"theme", "dark", "dark"},
		{"font_scale", 1.25, 1.25},
		{"seats", float64(12), int64(12)},
		{"metadata", map[string]any{"tier": "gold", "limits": []any{1.0, 2.0}}, map[string]any{"tier": "gold", "limits": []any{1.0, 2.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.SetValue(ctx, reg, scope, tt.name, tt.value); err != nil {
				t.Fatalf("SetValue failed: %v", err)
			}
			got, err := f.svc.GetValue(ctx, reg, scope, tt.name)
			if err != nil {
				t.Fatalf("GetValue failed: %v", err)
			}
			if got.Default {
				t.Error("stored value reported as default")
			}
			if diff := cmp.Diff(tt.want, got.Value); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSettingsService_DispatchesToBackend(t *testing.T) {
	f := newFixture(t, nil)
	reg := registry(t, userFragment, orgFragment)
	ctx := context.Background()

	f.svc.SetValue(ctx, reg, scope, "theme", "dark")
	f.svc.SetValue(ctx, reg, scope, "seats", 3)

	if _, found, _ := f.users.Get(ctx, "u1", "theme"); !found {
		t.Error("theme not written to the user backend")
	}
	if _, found, _ := f.orgs.Get(ctx, "o1", "seats"); !found {
		t.Error("seats not written to the organization backend")
	}
	if _, found, _ := f.users.Get(ctx, "o1", "seats"); found {
		t.Error("seats leaked into the user backend")
	}
}

func TestSettingsService_Errors(t *testing.T) {
	f := newFixture(t, nil)
	reg := registry(t, userFragment, orgFragment)
	ctx := context.Background()

	if _, err := f.svc.GetValue(ctx, reg, scope, "nope"); !errors.Is(err, settings.ErrNotFound) {
		t.Errorf("GetValue(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.SetValue(ctx, reg, scope, "nope", 1); !errors.Is(err, settings.ErrNotFound) {
		t.Errorf("SetValue(nope) error = %v, want ErrNotFound", err)
	}

	var verr *settings.ValidationError
	if _, err := f.svc.SetValue(ctx, reg, scope, "seats", 0); !errors.As(err, &verr) {
		t.Errorf("SetValue(seats=0) error = %v, want *ValidationError", err)
	}
	if _, err := f.svc.SetValue(ctx, reg, scope, "theme", "blue"); !errors.As(err, &verr) {
		t.Errorf("SetValue(theme=blue) error = %v, want *ValidationError", err)
	}

	userOnly := settings.Scope{UserID: "u1"}
	if _, err := f.svc.SetValue(ctx, reg, userOnly, "seats", 2); !errors.Is(err, settings.ErrMissingOwner) {
		t.Errorf("SetValue without organization error = %v, want ErrMissingOwner", err)
	}
}

func TestSettingsService_UnknownBackend(t *testing.T) {
	team := settings.Fragment{Name: "team", Fields: map[string]settings.Field{
		"standup": {Type: settings.TypeString, Storage: settings.UserSettings},
	}}
	svc := app.NewSettingsService(ports.SettingsBackends{}, nil, zerolog.Nop())

	_, err := svc.GetValue(context.Background(), registry(t, team), scope, "standup")
	if !errors.Is(err, settings.ErrUnknownBackend) {
		t.Errorf("GetValue error = %v, want ErrUnknownBackend", err)
	}
}

func TestSettingsService_ResetToDefault(t *testing.T) {
	f := newFixture(t, nil)
	reg := registry(t, userFragment)
	ctx := context.Background()

	f.svc.SetValue(ctx, reg, scope, "theme", "dark")
	v, err := f.svc.SetValue(ctx, reg, scope, "theme", nil)
	if err != nil {
		t.Fatalf("SetValue(nil) failed: %v", err)
	}
	if !v.Default || v.Value != "light" {
		t.Errorf("reset value = %+v, want default light", v)
	}
	if _, found, _ := f.users.Get(ctx, "u1", "theme"); found {
		t.Error("stored value not deleted")
	}
}

func TestSettingsService_Values(t *testing.T) {
	f := newFixture(t, nil)
	reg := registry(t, userFragment, orgFragment)
	ctx := context.Background()

	f.svc.SetValue(ctx, reg, scope, "theme", "dark")

	values, err := f.svc.Values(ctx, reg, settings.Scope{UserID: "u1"})
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	want := []app.Value{
		{Name: "font_scale", Value: float64(1), Default: true, Storage: settings.UserSettings},
		{Name: "theme", Value: "dark", Storage: settings.UserSettings},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("Values mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsService_Undeclared(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	full := registry(t, userFragment, orgFragment)
	if _, err := f.svc.SetValue(ctx, full, scope, "theme", "dark"); err != nil {
		t.Fatalf("SetValue theme: %v", err)
	}
	if _, err := f.svc.SetValue(ctx, full, scope, "seats", 3); err != nil {
		t.Fatalf("SetValue seats: %v", err)
	}
	if err := f.users.Set(ctx, "u1", "legacy_color", []byte{0x00, 0xa3, 'r', 'e', 'd'}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		scope settings.Scope
		want  []string
	}{
		{"both owners", scope, []string{"user_settings/legacy_color", "organization_settings/seats"}},
		{"user only", settings.Scope{UserID: "u1"}, []string{"user_settings/legacy_color"}},
		{"no owners", settings.Scope{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := f.svc.Undeclared(ctx, registry(t, userFragment), tt.scope)
			if err != nil {
				t.Fatalf("Undeclared failed: %v", err)
			}
			var got []string
			for _, k := range keys {
				got = append(got, string(k.Storage)+"/"+k.Name)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Undeclared mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSettingsService_SensitiveSealed(t *testing.T) {
	cipher, err := secretbox.New("0123456789abcdef0123", random.Real{})
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, cipher)
	reg := registry(t, orgFragment)
	ctx := context.Background()

	if _, err := f.svc.SetValue(ctx, reg, scope, "webhook_secret", "whsec_abc"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	raw, _, _ := f.orgs.Get(ctx, "o1", "webhook_secret")
	if bytes.Contains(raw, []byte("whsec_abc")) {
		t.Error("sensitive value stored in plaintext")
	}

	v, err := f.svc.GetValue(ctx, reg, scope, "webhook_secret")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v.Value != "whsec_abc" || !v.Sensitive {
		t.Errorf("GetValue = %+v", v)
	}
	if masked := v.Masked(); masked.Value != "********" {
		t.Errorf("Masked().Value = %v", masked.Value)
	}
}

func TestSettingsService_SealedWithoutKey(t *testing.T) {
	cipher, _ := secretbox.New("0123456789abcdef0123", random.Real{})
	sealing := newFixture(t, cipher)
	reg := registry(t, orgFragment)
	ctx := context.Background()

	sealing.svc.SetValue(ctx, reg, scope, "webhook_secret", "whsec_abc")

	// A service without the key cannot open the stored value.
	backends := ports.SettingsBackends{settings.OrganizationSettings: sealing.orgs}
	plain := app.NewSettingsService(backends, nil, zerolog.Nop())
	if _, err := plain.GetValue(ctx, reg, scope, "webhook_secret"); err == nil {
		t.Error("GetValue without key should fail")
	}
}

func TestSettingsService_Observer(t *testing.T) {
	f := newFixture(t, nil)
	reg := registry(t, userFragment)
	ctx := context.Background()

	f.svc.SetValue(ctx, reg, scope, "theme", "dark")
	f.svc.SetValue(ctx, reg, scope, "theme", "blue")
	f.svc.GetValue(ctx, reg, scope, "theme")

	want := []string{"set/user_settings/ok", "set/user_settings/error", "get/user_settings/ok"}
	if diff := cmp.Diff(want, f.ops.ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
}
