package app_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/adapters/clock"
	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
)

var callbackRoutes = []app.CallbackRoute{
	{Name: "localized", Pattern: "/auth/[lang]/callback"},
	{Name: "provider", Pattern: "/auth/callback/[provider]"},
}

func newRouter(t *testing.T) *app.CallbackRouter {
	t.Helper()
	r, err := app.NewCallbackRouter(callbackRoutes, "/dashboard", clock.NewFake(time.Unix(0, 0)), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCallbackRouter failed: %v", err)
	}
	return r
}

func prefixLanguage(t *testing.T) *filter.Registry[filter.Server] {
	t.Helper()
	r, err := filter.Setup[filter.Server](nil, func(r *filter.Registry[filter.Server]) error {
		return extension.ServerGetURL.Enqueue(r, "locale", func(u *url.URL, args extension.URLArgs) *url.URL {
			if args.Language == "" {
				return u
			}
			out := *u
			out.Path = "/" + args.Language + u.Path
			return &out
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCallbackRouter_Resolve(t *testing.T) {
	router := newRouter(t)
	reg := prefixLanguage(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		path     string
		next     string
		wantOK   bool
		wantLoc  string
		wantName string
	}{
		{"localized with next", "/auth/fr/callback", "/settings?tab=profile", true, "/fr/settings?tab=profile", "localized"},
		{"localized default", "/auth/de/callback", "", true, "/de/dashboard", "localized"},
		{"absolute next rejected", "/auth/fr/callback", "https://evil.example/", true, "/fr/dashboard", "localized"},
		{"scheme relative rejected", "/auth/fr/callback", "//evil.example/x", true, "/fr/dashboard", "localized"},
		{"provider no language", "/auth/callback/github", "/home", true, "/home", "provider"},
		{"extra segment", "/auth/fr/extra/callback", "/home", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := router.Resolve(ctx, reg, tt.path, tt.next, settings.Scope{})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Resolve ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Location != tt.wantLoc {
				t.Errorf("Location = %q, want %q", got.Location, tt.wantLoc)
			}
			if got.Match.Name != tt.wantName {
				t.Errorf("route = %q, want %q", got.Match.Name, tt.wantName)
			}
		})
	}
}

func TestCallbackRouter_Reload(t *testing.T) {
	router := newRouter(t)

	if err := router.Reload([]app.CallbackRoute{{Name: "bad", Pattern: "/auth/[]"}}, "/"); err == nil {
		t.Fatal("Reload accepted an invalid pattern")
	}
	if diff := cmp.Diff([]string{"localized", "provider"}, router.Table().Matcher.Names()); diff != "" {
		t.Errorf("table replaced after failed reload (-want +got):\n%s", diff)
	}

	if err := router.Reload([]app.CallbackRoute{{Name: "sso", Pattern: "/auth/sso/[tenant]"}}, "/home"); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	table := router.Table()
	if diff := cmp.Diff([]string{"sso"}, table.Matcher.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if table.DefaultRedirect != "/home" {
		t.Errorf("DefaultRedirect = %q, want /home", table.DefaultRedirect)
	}
}

func TestNewCallbackRouter_RejectsRemoteDefault(t *testing.T) {
	_, err := app.NewCallbackRouter(nil, "https://example.com", clock.Real{}, zerolog.Nop())
	if err == nil {
		t.Error("expected error for non-local default redirect")
	}
}
