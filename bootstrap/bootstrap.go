// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/saasgate/adapters/clock"
	apihttp "github.com/artpar/saasgate/adapters/http"
	"github.com/artpar/saasgate/adapters/memory"
	"github.com/artpar/saasgate/adapters/metrics"
	"github.com/artpar/saasgate/adapters/random"
	"github.com/artpar/saasgate/adapters/secretbox"
	"github.com/artpar/saasgate/adapters/sqlite"
	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/config"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/ports"
	"github.com/artpar/saasgate/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB // nil with the memory driver
	HTTPServer *http.Server
	Metrics    *metrics.Collector // nil when metrics are disabled
	Modules    *Modules
	Settings   *app.SettingsService
	Callbacks  *app.CallbackRouter

	holder          *config.Holder
	shutdownTimeout time.Duration
}

// Options provides optional configuration for application initialization.
type Options struct {
	Version string
	Output  io.Writer    // Log destination; defaults to os.Stdout
	Clock   ports.Clock  // Defaults to clock.Real
	Random  ports.Random // Defaults to random.Real
}

// New creates and initializes the application from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Random == nil {
		opts.Random = random.Real{}
	}

	logger := NewLogger(cfg.Logging, opts.Output)
	logger.Info().Str("version", opts.Version).Msg("initializing saasgate")

	a := &App{
		Logger:          logger,
		Config:          cfg,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	var (
		reg      *prometheus.Registry
		observer filter.Observer
		reports  *prometheus.CounterVec
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = metrics.NewWithRegistry(reg)
		observer = a.Metrics
		reports = a.Metrics.ErrorReports
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	backends, err := a.initStorage(opts.Clock)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	cipher, err := newCipher(cfg.Settings, opts.Random)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	a.Modules, err = NewModules(cfg, opts.Clock, reports, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init modules: %w", err)
	}

	a.Settings = app.NewSettingsService(backends, cipher, logger)
	if a.Metrics != nil {
		a.Settings = a.Settings.WithObserver(a.Metrics)
	}

	a.Callbacks, err = app.NewCallbackRouter(callbackRoutes(cfg.Auth.CallbackRoutes), cfg.Auth.DefaultRedirect, opts.Clock, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init callback routes: %w", err)
	}

	client, err := a.Modules.ClientRegistry(observer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init client registry: %w", err)
	}
	pages, err := web.NewRenderer(client, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init pages: %w", err)
	}

	routerCfg := apihttp.RouterConfig{
		Settings:         apihttp.NewSettingsHandler(a.Settings, logger),
		Callbacks:        apihttp.NewCallbackHandler(a.Callbacks, logger),
		Pages:            apihttp.NewPageHandler(pages, a.Settings, "saasgate", cfg.Locale.Default, logger),
		ServerRegistrars: a.Modules.Server,
		Metrics:          a.Metrics,
		MetricsPath:      cfg.Metrics.Path,
		EnableOpenAPI:    cfg.OpenAPI.Enabled,
		Version:          opts.Version,
	}
	if reg != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      apihttp.NewRouter(logger, routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Info().Str("addr", a.HTTPServer.Addr).Msg("http server configured")
	return a, nil
}

func (a *App) initStorage(clk ports.Clock) (ports.SettingsBackends, error) {
	switch a.Config.Database.Driver {
	case "memory":
		a.Logger.Warn().Msg("using in-memory settings storage; values are lost on restart")
		return ports.SettingsBackends{
			settings.UserSettings:         memory.NewSettingsStore().WithClock(clk),
			settings.OrganizationSettings: memory.NewSettingsStore().WithClock(clk),
		}, nil
	default:
		db, err := sqlite.Open(a.Config.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		a.Logger.Info().Str("dsn", a.Config.Database.DSN).Msg("database initialized")
		return sqlite.Backends(db, clk), nil
	}
}

// newCipher returns nil when no encryption key is configured, in which case
// sensitive values are stored unsealed.
func newCipher(cfg config.SettingsConfig, rnd ports.Random) (ports.Cipher, error) {
	if cfg.EncryptionKey == "" {
		return nil, nil
	}
	c, err := secretbox.New(cfg.Key(), rnd)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func callbackRoutes(in []config.CallbackRouteConfig) []app.CallbackRoute {
	out := make([]app.CallbackRoute, len(in))
	for i, r := range in {
		out[i] = app.CallbackRoute{Name: r.Name, Pattern: r.Pattern}
	}
	return out
}

// ServerRegistry builds a server registry the way each request does.
func (a *App) ServerRegistry() (*filter.Registry[filter.Server], error) {
	var observer filter.Observer
	if a.Metrics != nil {
		observer = a.Metrics
	}
	return a.Modules.ServerRegistry(observer)
}

// Watch subscribes the application to configuration reloads from h and
// starts watching the config file and SIGHUP. Close stops the watchers.
func (a *App) Watch(h *config.Holder) error {
	a.holder = h
	h.OnChange(a.Apply)
	if a.Metrics != nil {
		h.OnReload(a.Metrics.ConfigReloaded)
	}
	if err := h.WatchFile(); err != nil {
		return err
	}
	h.WatchSignals()
	return nil
}

// Apply updates the reloadable parts of the application: fragment files,
// callback routes and the log level. A part that fails to reload keeps its
// previous state.
func (a *App) Apply(cfg *config.Config) {
	if err := a.Modules.Fragments.Reload(cfg.Settings.FragmentFiles); err != nil {
		a.Logger.Error().Err(err).Msg("reload fragments")
	}
	if err := a.Callbacks.Reload(callbackRoutes(cfg.Auth.CallbackRoutes), cfg.Auth.DefaultRedirect); err != nil {
		active := a.Callbacks.Table()
		a.Logger.Error().Err(err).
			Strs("active_routes", active.Matcher.Names()).
			Time("active_since", active.LoadedAt).
			Msg("reload callback routes; keeping active table")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.Logger.Info().Msg("configuration applied")
}

// Run listens on the configured address and serves until ctx is canceled
// or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.HTTPServer.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is canceled, then shuts the server down
// gracefully.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().Str("addr", ln.Addr().String()).Msg("starting http server")
		if err := a.HTTPServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutting down")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown() error {
	timeout := a.shutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// Close stops config watching and closes the database.
func (a *App) Close() error {
	if a.holder != nil {
		a.holder.Stop()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
			return err
		}
	}
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// NewLogger builds the application logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
