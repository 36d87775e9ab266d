// Package app wires the application's services together and runs them.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/audit"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/cache"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/logging"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/metrics"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/pubsub"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/server"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/tracing"
	"github.com/samber/do/v2"
)

// shutdownTimeout bounds how long services may take to release resources.
const shutdownTimeout = 10 * time.Second

// New returns an injector with every service registered. Services are built
// lazily on first use and shut down in reverse order of creation.
func New(cfg *config.Config) *do.RootScope {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.Provide(i, func(i do.Injector) (config.Provider, error) {
		return do.MustInvoke[*config.Config](i), nil
	})
	do.Provide(i, provideLogger)
	do.Provide(i, provideTracing)
	do.Provide(i, func(do.Injector) (*metrics.Metrics, error) {
		return metrics.New()
	})
	do.Provide(i, provideCache)
	do.Provide(i, provideAuth)
	do.Provide(i, providePowerBI)
	do.Provide(i, provideBus)
	do.Provide(i, func(i do.Injector) (*audit.Recorder, error) {
		return audit.NewRecorder(do.MustInvoke[*pubsub.WatermillBridge](i)), nil
	})
	do.Provide(i, provideAuditSink)
	do.Provide(i, provideServer)

	return i
}

func provideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logging.New(cfg.LogFormat, cfg.LogLevel), nil
}

func provideTracing(i do.Injector) (*tracing.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return tracing.Setup(context.Background(), tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Exporter:    cfg.TracingExporter,
		ServiceName: cfg.TracingServiceName,
		ZipkinURL:   cfg.TracingZipkinURL,
	})
}

func provideCache(i do.Injector) (*cache.Cache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cache.New(ctx, cfg.RedisURL, cfg.ReportCacheTTL)
}

func provideAuth(i do.Injector) (*auth.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewProvider(ProviderConfig(cfg)), nil
}

// ProviderConfig maps the Azure AD settings onto the sign-in provider.
func ProviderConfig(cfg *config.Config) auth.ProviderConfig {
	return auth.ProviderConfig{
		Instance:     cfg.AzureInstance,
		TenantID:     cfg.AzureTenantID,
		ClientID:     cfg.AzureClientID,
		ClientSecret: cfg.AzureClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		Scopes:       cfg.PowerBIScopes,
	}
}

func providePowerBI(i do.Injector) (*powerbi.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)

	opts := powerbi.Options{
		BaseURL:   cfg.PowerBIAPIURL,
		TokenType: powerbi.TokenType(cfg.PowerBITokenType),
		Timeout:   cfg.PowerBITimeout,
		Recorder:  do.MustInvoke[*metrics.Metrics](i),
		Logger:    logger,
	}
	// The cache is only connected when configured.
	if cfg.RedisURL != "" {
		c, err := do.Invoke[*cache.Cache](i)
		if err != nil {
			return nil, fmt.Errorf("report cache: %w", err)
		}
		opts.Cache = c
	}
	return powerbi.NewClient(opts)
}

func provideBus(i do.Injector) (*pubsub.WatermillBridge, error) {
	tp := do.MustInvoke[*tracing.Provider](i)
	return pubsub.NewWatermillBridge(tp), nil
}

func provideAuditSink(i do.Injector) (*audit.Sink, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)
	store, name, err := audit.OpenTrail(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("audit trail: %w", err)
	}
	return audit.NewSink(store, name, logger), nil
}

func provideServer(i do.Injector) (*server.Server, error) {
	return server.New(server.Dependencies{
		Config:   do.MustInvoke[config.Provider](i),
		PowerBI:  do.MustInvoke[*powerbi.Client](i),
		Identity: do.MustInvoke[*auth.Provider](i),
		Embeds:   do.MustInvoke[*audit.Recorder](i),
		Metrics:  do.MustInvoke[*metrics.Metrics](i),
		Tracing:  do.MustInvoke[*tracing.Provider](i),
	})
}

// Run builds the application and serves it until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config) error {
	injector := New(cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = injector.ShutdownWithContext(shutdownCtx)
	}()

	logger, err := do.Invoke[*slog.Logger](injector)
	if err != nil {
		return err
	}

	sink, err := do.Invoke[*audit.Sink](injector)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	if err := sink.Start(ctx, do.MustInvoke[*pubsub.WatermillBridge](injector)); err != nil {
		return fmt.Errorf("start audit sink: %w", err)
	}

	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	srv.RegisterRoutes()

	logger.Info("Application started", "env", cfg.AppEnv, "token_type", cfg.PowerBITokenType)
	return srv.Start(ctx)
}
