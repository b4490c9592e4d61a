package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rosterly/rosterly/pkg/announcements"
	"github.com/rosterly/rosterly/pkg/api"
	"github.com/rosterly/rosterly/pkg/config"
	"github.com/rosterly/rosterly/pkg/keystore"
	"github.com/rosterly/rosterly/pkg/navigation"
	"github.com/rosterly/rosterly/pkg/notifications"
	"github.com/rosterly/rosterly/pkg/observability"
	"github.com/rosterly/rosterly/pkg/orgs"
	"github.com/rosterly/rosterly/pkg/permissions"
	"github.com/rosterly/rosterly/pkg/session"
)

// app wires the client stack together for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics
	otel    *observability.OTelProviders

	keystore      *keystore.Store
	client        *api.Client
	permissions   *permissions.Cache
	sessions      *session.Store
	guard         *navigation.Guard
	orgs          *orgs.Directory
	announcements *announcements.Service
	notifications *notifications.Service
}

// newApp builds the full client stack from configuration.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	var otel *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otel, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Keystore.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating keystore directory: %w", err)
	}
	store, err := keystore.Open(cfg.Keystore.Path)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(store, &api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout.Std(),
		UserAgent: cfg.API.UserAgent,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	cache := permissions.NewCache(client, &permissions.Config{
		Validity:    cfg.Permissions.Validity.Std(),
		WaitTimeout: cfg.Permissions.WaitTimeout.Std(),
		Logger:      logger,
		Metrics:     metrics,
	})
	client.SetInvalidator(cache)

	sessions := session.NewStore(client, store, &session.Config{
		Logger:  logger,
		OnReset: cache.InvalidateAll,
	})

	registry := navigation.NewRegistry()
	if err := registry.Register(navigation.DefaultRoutes()...); err != nil {
		store.Close()
		return nil, err
	}
	guard := navigation.NewGuard(registry, sessions, cache, &navigation.GuardConfig{
		Logger:  logger,
		Metrics: metrics,
	})

	return &app{
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
		otel:          otel,
		keystore:      store,
		client:        client,
		permissions:   cache,
		sessions:      sessions,
		guard:         guard,
		orgs:          orgs.NewDirectory(client, &orgs.Config{Logger: logger}),
		announcements: announcements.NewService(client),
		notifications: notifications.NewService(client),
	}, nil
}

// close releases the app's resources.
func (a *app) close(ctx context.Context) {
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("tracing shutdown failed")
		}
	}
	if err := a.keystore.Close(); err != nil {
		a.logger.WithError(err).Warn("keystore close failed")
	}
}

// requireIdentity restores the session and fails when nobody is signed in.
func (a *app) requireIdentity(ctx context.Context) (*session.Identity, error) {
	if identity := a.sessions.Restore(ctx); identity != nil {
		return identity, nil
	}
	return nil, fmt.Errorf("not signed in; run 'rosterly login' first")
}
