package main

import (
	"context"

	"github.com/facto/facto/internal/checkout"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/console"
	"github.com/facto/facto/internal/entitlement"
	"github.com/facto/facto/internal/httpclient"
	"github.com/facto/facto/internal/identity"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/pdfgen"
	"github.com/facto/facto/internal/pending"
	"github.com/facto/facto/internal/reconcile"
	"github.com/facto/facto/internal/storage"
	"github.com/facto/facto/internal/storage/driver"
	"go.uber.org/fx"
)

// stores are the two lifetimes of client storage over one backend
type stores struct {
	Tab   storage.Store
	Local storage.Store
}

type deps struct {
	fx.In

	Config       *config.Configuration
	Logger       *logger.Logger
	Identity     *identity.Provider
	Pending      *pending.Store
	Entitlements *entitlement.Cache
	Checkout     *checkout.Client
	Exporter     *pdfgen.Exporter
	Notifier     *console.Notifier
	Navigator    *console.Navigator
}

func newApp(cfg *config.Configuration, target *deps) *fx.App {
	return fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			logger.NewLogger,
			provideBackend,
			provideStores,
			provideHTTPClient,
			provideIdentity,
			provideCheckoutClient,
			providePending,
			provideEntitlements,
			pdfgen.NewExporter,
			provideNotifier,
			provideNavigator,
		),
		fx.Invoke(func(d deps) {
			*target = d
		}),
	)
}

func provideBackend(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (storage.Backend, error) {
	backend, err := driver.Open(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return backend.Close()
		},
	})
	return backend, nil
}

func provideStores(backend storage.Backend, cfg *config.Configuration) stores {
	return stores{
		Tab:   storage.TabScope(backend, cfg.Storage.TabID, cfg.Storage.TabTTL),
		Local: storage.LocalScope(backend),
	}
}

func provideHTTPClient(cfg *config.Configuration) httpclient.Client {
	return httpclient.NewClient(httpclient.ClientConfig{Timeout: cfg.API.Timeout})
}

func provideIdentity(lc fx.Lifecycle, cfg *config.Configuration, client httpclient.Client, s stores, log *logger.Logger) *identity.Provider {
	p := identity.NewProvider(cfg, client, s.Local, log)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Close()
		},
	})
	return p
}

func provideCheckoutClient(cfg *config.Configuration, client httpclient.Client, p *identity.Provider, log *logger.Logger) *checkout.Client {
	return checkout.NewClient(cfg, client, p, log)
}

func providePending(s stores, log *logger.Logger) *pending.Store {
	return pending.NewStore(s.Tab, log)
}

func provideEntitlements(s stores, log *logger.Logger) *entitlement.Cache {
	return entitlement.NewCache(s.Local, log)
}

func provideNotifier(log *logger.Logger) *console.Notifier {
	return console.NewNotifier(stdout, log)
}

func provideNavigator() *console.Navigator {
	return console.NewNavigator(stdout)
}

// controller builds the reconciliation controller for one page view
func (d deps) controller(location *console.Location, workspace *console.Workspace) *reconcile.Controller {
	return reconcile.NewController(reconcile.Params{
		Config:       d.Config,
		Logger:       d.Logger,
		Auth:         d.Identity,
		Checkout:     d.Checkout,
		Pending:      d.Pending,
		Entitlements: d.Entitlements,
		Location:     location,
		Notifier:     d.Notifier,
		Workspace:    workspace,
		Exporter:     d.Exporter,
		Navigator:    d.Navigator,
	})
}

// waitForIdentity resolves the persisted session. Subscribers have run by
// the time it returns.
func (d deps) waitForIdentity(ctx context.Context) error {
	d.Identity.Start(ctx)
	select {
	case <-d.Identity.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
