package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/adapters/clock"
	apihttp "github.com/artpar/saasgate/adapters/http"
	"github.com/artpar/saasgate/adapters/idgen"
	"github.com/artpar/saasgate/adapters/memory"
	"github.com/artpar/saasgate/adapters/metrics"
	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/features/appearance"
	"github.com/artpar/saasgate/features/locale"
	"github.com/artpar/saasgate/features/monitoring"
	"github.com/artpar/saasgate/features/organization"
	"github.com/artpar/saasgate/pkg/jsonapi"
	"github.com/artpar/saasgate/ports"
	"github.com/artpar/saasgate/web"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	handler chi.Router
	metrics *metrics.Collector
}

func setupTestServer(t *testing.T, extra ...filter.Registrar[filter.Server]) testServer {
	t.Helper()
	logger := zerolog.Nop()
	clk := clock.NewFake(baseTime)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	l, err := locale.New([]string{"en", "fr", "de"}, "en")
	if err != nil {
		t.Fatal(err)
	}
	reporter := monitoring.New(logger, idgen.NewSequential("rep_"), clk, m.ErrorReports)

	registrars := []filter.Registrar[filter.Server]{
		appearance.RegisterServer,
		organization.RegisterServer,
		l.RegisterServer,
		reporter.RegisterServer,
	}
	registrars = append(registrars, extra...)

	client, err := filter.Setup[filter.Client](m, appearance.RegisterClient, l.RegisterClient)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := web.NewRenderer(client, logger)
	if err != nil {
		t.Fatal(err)
	}

	backends := ports.SettingsBackends{
		settings.UserSettings:         memory.NewSettingsStore().WithClock(clk),
		settings.OrganizationSettings: memory.NewSettingsStore().WithClock(clk),
	}
	service := app.NewSettingsService(backends, nil, logger).WithObserver(m)

	callbacks, err := app.NewCallbackRouter([]app.CallbackRoute{
		{Name: "callback", Pattern: "/auth/callback"},
		{Name: "localized_callback", Pattern: "/auth/[lang]/callback"},
	}, "/", clk, logger)
	if err != nil {
		t.Fatal(err)
	}

	router := apihttp.NewRouter(logger, apihttp.RouterConfig{
		Settings:         apihttp.NewSettingsHandler(service, logger),
		Callbacks:        apihttp.NewCallbackHandler(callbacks, logger),
		Pages:            apihttp.NewPageHandler(pages, service, "Acme", "en", logger),
		ServerRegistrars: registrars,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		EnableOpenAPI:    true,
		Version:          "1.2.3",
	})
	return testServer{handler: router, metrics: m}
}

func (s testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeDocument(t *testing.T, rec *httptest.ResponseRecorder) jsonapi.Document {
	t.Helper()
	var doc jsonapi.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return doc
}

func decodeResource(t *testing.T, rec *httptest.ResponseRecorder) jsonapi.Resource {
	t.Helper()
	var doc struct {
		Data jsonapi.Resource `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return doc.Data
}

func valueBody(v string) string {
	return `{"data":{"type":"settings","attributes":{"value":` + v + `}}}`
}

var (
	user = map[string]string{apihttp.HeaderUserID: "u1"}
	org  = map[string]string{apihttp.HeaderUserID: "u1", apihttp.HeaderOrganizationID: "o1"}
)

func TestHealthAndVersion(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, "GET", "/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("GET /healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, "GET", "/version", "", nil)
	if !strings.Contains(rec.Body.String(), `"1.2.3"`) {
		t.Errorf("GET /version body = %s", rec.Body.String())
	}
}

func TestSettingsSchema(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, "GET", "/settings/schema", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var doc struct {
		Data []jsonapi.Resource `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, r := range doc.Data {
		names = append(names, r.ID)
	}
	want := "billing_email,font_scale,language,seats,theme,webhook_secret"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("schema fields = %s, want %s", got, want)
	}
	for _, r := range doc.Data {
		if r.ID == "theme" && r.Meta["fragment"] != "appearance" {
			t.Errorf("theme fragment = %v, want appearance", r.Meta["fragment"])
		}
	}
}

func TestSettingsSchema_Conflict(t *testing.T) {
	duplicate := settings.Fragment{
		Name: "legacy",
		Fields: map[string]settings.Field{
			"theme": {Type: settings.TypeString, Storage: settings.UserSettings},
		},
	}
	s := setupTestServer(t, func(r *filter.Registry[filter.Server]) error {
		return extension.ServerGetSettingsSchema.Enqueue(r, "legacy", settings.Contribute(duplicate))
	})

	rec := s.do(t, "GET", "/settings/schema", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSettings_PutAndGet(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, "PUT", "/settings/theme", valueBody(`"dark"`), user)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, "GET", "/settings/theme", "", user)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decodeResource(t, rec)
	if res.Attributes["value"] != "dark" {
		t.Errorf("value = %v, want dark", res.Attributes["value"])
	}
	if res.Meta["default"] != false {
		t.Errorf("default = %v, want false", res.Meta["default"])
	}

	// Another user still sees the default.
	rec = s.do(t, "GET", "/settings/theme", "", map[string]string{apihttp.HeaderUserID: "u2"})
	if res := decodeResource(t, rec); res.Attributes["value"] != "system" || res.Meta["default"] != true {
		t.Errorf("u2 theme = %v (default %v), want system default", res.Attributes["value"], res.Meta["default"])
	}
}

func TestSettings_Reset(t *testing.T) {
	s := setupTestServer(t)

	s.do(t, "PUT", "/settings/font_scale", valueBody(`1.5`), user)
	rec := s.do(t, "PUT", "/settings/font_scale", valueBody(`null`), user)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, "GET", "/settings/font_scale", "", user)
	res := decodeResource(t, rec)
	if res.Attributes["value"] != 1.0 || res.Meta["default"] != true {
		t.Errorf("after reset value = %v (default %v), want 1 default", res.Attributes["value"], res.Meta["default"])
	}
}

func TestSettings_Errors(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		headers    map[string]string
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{"unknown setting", "GET", "/settings/nope", "", user, 404, "not_found", "nope"},
		{"missing organization", "GET", "/settings/seats", "", user, 400, "missing_scope", "X-Organization-ID"},
		{"missing user", "PUT", "/settings/theme", valueBody(`"dark"`), nil, 400, "missing_scope", "X-User-ID"},
		{"below minimum", "PUT", "/settings/seats", valueBody(`0`), org, 422, "validation_error", "an organization needs at least one seat"},
		{"int64 overflow", "PUT", "/settings/seats", valueBody(`9223372036854775808`), org, 422, "validation_error", ""},
		{"max int64 above maximum", "PUT", "/settings/seats", valueBody(`9223372036854775807`), org, 422, "validation_error", ""},
		{"not in enum", "PUT", "/settings/theme", valueBody(`"blue"`), user, 422, "validation_error", ""},
		{"bad email", "PUT", "/settings/billing_email", valueBody(`"not-an-email"`), org, 422, "validation_error", ""},
		{"malformed body", "PUT", "/settings/theme", `{"data":`, user, 400, "bad_request", ""},
		{"missing value", "PUT", "/settings/theme", `{"data":{"attributes":{}}}`, user, 400, "bad_request", "value attribute"},
		{"wrong type", "PUT", "/settings/theme", `{"data":{"type":"users","attributes":{"value":"dark"}}}`, user, 409, "type_mismatch", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, tt.headers)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != jsonapi.ContentType {
				t.Errorf("Content-Type = %q", ct)
			}
			doc := decodeDocument(t, rec)
			if len(doc.Errors) == 0 {
				t.Fatal("expected errors in response")
			}
			if doc.Errors[0].Code != tt.wantCode {
				t.Errorf("code = %q, want %q", doc.Errors[0].Code, tt.wantCode)
			}
			if tt.wantDetail != "" {
				e := doc.Errors[0]
				text := e.Detail
				if e.Source != nil {
					text += " " + e.Source.Header
				}
				if !strings.Contains(text, tt.wantDetail) {
					t.Errorf("error %+v does not mention %q", e, tt.wantDetail)
				}
			}
		})
	}
}

func TestSettings_SensitiveValuesMasked(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, "PUT", "/settings/webhook_secret", valueBody(`"whsec_0123456789abcdef"`), org)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "whsec_") {
		t.Error("PUT response leaked the secret")
	}

	rec = s.do(t, "GET", "/settings", "", org)
	if strings.Contains(rec.Body.String(), "whsec_") {
		t.Error("list response leaked the secret")
	}
	if !strings.Contains(rec.Body.String(), "********") {
		t.Errorf("list should show the masked secret: %s", rec.Body.String())
	}
}

func TestSettings_ListSkipsFieldsWithoutOwner(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, "GET", "/settings", "", user)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	doc := decodeDocument(t, rec)
	if total := doc.Meta["total"]; total != 3.0 {
		t.Errorf("total = %v, want 3 user settings", total)
	}
}

func TestAuthCallback(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"localized with next", "/auth/fr/callback?next=/settings", http.StatusFound, "/fr/settings"},
		{"localized default", "/auth/de/callback", http.StatusFound, "/de"},
		{"plain", "/auth/callback?next=/settings%3Ftab%3D2", http.StatusFound, "/settings?tab=2"},
		{"external next ignored", "/auth/callback?next=https://evil.example", http.StatusFound, "/"},
		{"extra segment", "/auth/fr/extra/callback", http.StatusNotFound, ""},
		{"unknown", "/auth/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "GET", tt.path, "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestHomePage(t *testing.T) {
	s := setupTestServer(t)

	s.do(t, "PUT", "/settings/theme", valueBody(`"dark"`), user)
	s.do(t, "PUT", "/settings/language", valueBody(`"fr"`), user)

	rec := s.do(t, "GET", "/", "", user)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{`<html lang="fr">`, `data-theme="dark"`, `href="/fr/settings"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestNotFoundPage(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, "GET", "/nowhere", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSwaggerDoc(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, "GET", "/swagger/doc.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/settings/{name}") {
		t.Error("swagger doc does not describe the settings API")
	}
}

func TestMetricsRecorded(t *testing.T) {
	s := setupTestServer(t)

	s.do(t, "PUT", "/settings/theme", valueBody(`"light"`), user)
	s.do(t, "GET", "/settings/theme", "", user)
	s.do(t, "GET", "/healthz", "", nil)

	if got := testutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("GET", "/settings/{name}", "2xx")); got != 1 {
		t.Errorf("GET /settings/{name} requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("GET", "/healthz", "2xx")); got != 0 {
		t.Errorf("/healthz should not be measured, got %v", got)
	}
	if got := testutil.ToFloat64(s.metrics.SettingsOperations.WithLabelValues("set", "user_settings", "ok")); got != 1 {
		t.Errorf("settings set operations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.ChainApplications.WithLabelValues("server", "server_get_settings_schema", "ok")); got != 2 {
		t.Errorf("schema chain applications = %v, want 2", got)
	}

	rec := s.do(t, "GET", "/metrics", "", nil)
	if !strings.Contains(rec.Body.String(), "saasgate_requests_total") {
		t.Error("metrics endpoint does not expose saasgate_requests_total")
	}
}

func TestRecoverCapturesPanic(t *testing.T) {
	s := setupTestServer(t)
	s.handler.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := s.do(t, "GET", "/boom", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	doc := decodeDocument(t, rec)
	if len(doc.Errors) != 1 || doc.Errors[0].ID != "rep_1" {
		t.Errorf("errors = %+v, want one error with id rep_1", doc.Errors)
	}
	if strings.Contains(rec.Body.String(), "kaboom") {
		t.Error("panic value leaked to the client")
	}
	if got := testutil.ToFloat64(s.metrics.ErrorReports.WithLabelValues("GET")); got != 1 {
		t.Errorf("error reports = %v, want 1", got)
	}
}
