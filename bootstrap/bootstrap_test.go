package bootstrap_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/bootstrap"
	"github.com/artpar/saasgate/config"
	"github.com/artpar/saasgate/domain/settings"
)

func orgScope() settings.Scope {
	return settings.Scope{UserID: "u1", OrganizationID: "o1"}
}

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *bootstrap.App {
	t.Helper()
	a, err := bootstrap.New(cfg, bootstrap.Options{Version: "test", Output: io.Discard})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	a := newApp(t, parseConfig(t, `
database:
  driver: sqlite
  dsn: `+dbPath+`
settings:
  encryption_key: "0123456789abcdef0123"
`))

	if a.DB == nil {
		t.Fatal("DB should not be nil")
	}
	if a.HTTPServer == nil {
		t.Error("HTTPServer should not be nil")
	}
	if a.Metrics == nil {
		t.Error("metrics are enabled by default")
	}

	var count int
	if err := a.DB.QueryRow("SELECT COUNT(*) FROM settings").Scan(&count); err != nil {
		t.Errorf("query settings table: %v", err)
	}
}

func TestNew_SealsSensitiveValues(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sealed.db")
	a := newApp(t, parseConfig(t, `
database:
  dsn: `+dbPath+`
settings:
  encryption_key: "0123456789abcdef0123"
`))

	reg, err := a.ServerRegistry()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	scope := orgScope()
	if _, err := a.Settings.SetValue(ctx, reg, scope, "webhook_secret", "whsec_0123456789abcdef"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	var raw []byte
	if err := a.DB.QueryRow("SELECT value FROM settings WHERE key = 'webhook_secret'").Scan(&raw); err != nil {
		t.Fatalf("read stored value: %v", err)
	}
	if bytes.Contains(raw, []byte("whsec_")) {
		t.Error("sensitive value stored in plaintext")
	}

	v, err := a.Settings.GetValue(ctx, reg, scope, "webhook_secret")
	if err != nil {
		t.Fatal(err)
	}
	if v.Value != "whsec_0123456789abcdef" {
		t.Errorf("round trip value = %v", v.Value)
	}
}

func TestNew_MemoryWithoutMetrics(t *testing.T) {
	a := newApp(t, parseConfig(t, `
database:
  driver: memory
metrics:
  enabled: false
openapi:
  enabled: false
`))

	if a.DB != nil {
		t.Error("memory driver should not open a database")
	}
	if a.Metrics != nil {
		t.Error("metrics should be disabled")
	}

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusNotFound},
		{"/swagger/index.html", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestNew_InvalidFragmentFile(t *testing.T) {
	cfg := parseConfig(t, `
database:
  driver: memory
`)
	cfg.Settings.FragmentFiles = []string{filepath.Join(t.TempDir(), "missing.yaml")}

	if _, err := bootstrap.New(cfg, bootstrap.Options{Output: io.Discard}); err == nil {
		t.Fatal("expected error for missing fragment file")
	}
}

func TestNew_ShortEncryptionKeyRejected(t *testing.T) {
	cfg := parseConfig(t, `
database:
  driver: memory
`)
	cfg.Settings.EncryptionKey = "short"

	if _, err := bootstrap.New(cfg, bootstrap.Options{Output: io.Discard}); err == nil {
		t.Fatal("expected error for short encryption key")
	}
}

func TestApply_ReloadsRoutesAndFragments(t *testing.T) {
	dir := t.TempDir()
	a := newApp(t, parseConfig(t, `
database:
  driver: memory
locale:
  languages: [en, fr]
`))
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	fragment := filepath.Join(dir, "billing.yaml")
	if err := os.WriteFile(fragment, []byte(`
name: billing
fields:
  invoice_prefix:
    type: string
    storage: organization_settings
    default: INV
`), 0o644); err != nil {
		t.Fatal(err)
	}

	next := *a.Config
	next.Settings.FragmentFiles = []string{fragment}
	next.Auth.CallbackRoutes = []config.CallbackRouteConfig{{Name: "sso", Pattern: "/auth/sso/[provider]"}}
	next.Auth.DefaultRedirect = "/welcome"
	next.Logging.Level = "warn"
	a.Apply(&next)

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/sso/okta", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/welcome" {
		t.Errorf("GET /auth/sso/okta = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/callback", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("old route still served: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/settings/schema", nil))
	if !strings.Contains(rec.Body.String(), "invoice_prefix") {
		t.Errorf("schema does not include reloaded fragment: %s", rec.Body.String())
	}

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
}

func TestApply_KeepsRoutesOnInvalidPattern(t *testing.T) {
	a := newApp(t, parseConfig(t, `
database:
  driver: memory
`))

	next := *a.Config
	next.Auth.CallbackRoutes = []config.CallbackRouteConfig{{Name: "bad", Pattern: "/auth/[]"}}
	a.Apply(&next)

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/callback", nil))
	if rec.Code != http.StatusFound {
		t.Errorf("GET /auth/callback = %d, want previous routes kept", rec.Code)
	}
	if got := strings.Join(a.Callbacks.Table().Matcher.Names(), ","); got != "callback,localized_callback" {
		t.Errorf("active routes = %q, want callback,localized_callback", got)
	}
}

func TestWatch_RecordsReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	holder, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	a := newApp(t, holder.Get())
	if err := a.Watch(holder); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	// The file watcher may reload as well.
	if got := testutil.ToFloat64(a.Metrics.ConfigReloads); got < 1 {
		t.Errorf("config reloads = %v, want at least 1", got)
	}

	if err := os.WriteFile(path, []byte("server:\n  port: 0\n  bad: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := holder.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := testutil.ToFloat64(a.Metrics.ConfigReloadErrors); got < 1 {
		t.Errorf("config reload errors = %v, want at least 1", got)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	a := newApp(t, parseConfig(t, `
database:
  driver: memory
`))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNewLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := bootstrap.NewLogger(config.LoggingConfig{Level: "error", Format: "json"}, &buf)
	logger.Info().Msg("hidden")
	logger.Error().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at error level")
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("expected JSON error line, got %q", out)
	}

	buf.Reset()
	logger = bootstrap.NewLogger(config.LoggingConfig{Level: "info", Format: "console"}, &buf)
	logger.Info().Msg("console line")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console format wrote JSON: %q", buf.String())
	}
}
