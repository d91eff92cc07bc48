package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"trapline/internal/broker"
	"trapline/internal/chart"
	"trapline/internal/config"
	"trapline/internal/engine"
	"trapline/internal/logger"
	"trapline/internal/market"
	"trapline/internal/oracle"
	"trapline/internal/profile"
	"trapline/internal/relay"
	"trapline/internal/store"
	"trapline/internal/store/oraclelog"
	httpapi "trapline/internal/transport/http"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	cfg *config.Config

	store     *store.Store
	oracleLog *oraclelog.Store
	seeds     *profile.SeedLoader
	gateway   *broker.Binance
	hub       *relay.Hub
	engine    *engine.Engine
	server    *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	olog, err := oraclelog.Open(cfg.Store.OracleLogPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open oracle log: %w", err)
	}

	seeds, err := profile.NewSeedLoader(cfg.App.ProfileSeed)
	if err != nil {
		olog.Close()
		st.Close()
		return nil, fmt.Errorf("load profile seed: %w", err)
	}
	if err := st.UpsertProfiles(context.Background(), seeds.Profiles()); err != nil {
		seeds.Close()
		olog.Close()
		st.Close()
		return nil, fmt.Errorf("seed profiles: %w", err)
	}
	seeds.Subscribe(func(profiles []profile.Profile) {
		if err := st.UpsertProfiles(context.Background(), profiles); err != nil {
			logger.Errorf("App: profile reload persist failed: %v", err)
			return
		}
		logger.Infof("App: %d profiles reloaded from seed", len(profiles))
	})

	gateway := broker.NewBinance(broker.Config{
		APIKey:             cfg.Broker.APIKey,
		SecretKey:          cfg.Broker.SecretKey,
		RESTBaseURL:        cfg.Broker.RESTBaseURL,
		HTTPTimeout:        cfg.Broker.HTTPTimeout,
		MinStopDistancePct: cfg.Broker.MinStopDistancePct,
	})

	hub := relay.NewHub()
	states := engine.NewStateStore()
	focus := engine.NewFocus(defaultFocus(cfg, seeds.Profiles()))

	var renderer chart.Renderer
	if cfg.Oracle.Charts {
		renderer = chart.NewEcharts()
	}
	adapter := &engine.Adapter{
		Decider: oracle.NewModelDecider(&oracle.ChatClient{
			BaseURL:    cfg.Oracle.BaseURL,
			APIKey:     cfg.Oracle.APIKey,
			Model:      cfg.Oracle.Model,
			Timeout:    cfg.Oracle.Timeout,
			MaxRetries: cfg.Oracle.MaxRetries,
		}),
		Renderer: renderer,
		Log:      olog,
		States:   states,
	}
	dispatcher := &engine.Dispatcher{
		Gateway: gateway,
		Paper:   broker.NewPaperTrader(),
		Store:   st,
		Relay:   hub,
	}
	eng := &engine.Engine{
		Store:          st,
		Gateway:        gateway,
		Fetcher:        market.NewFetcher(gateway),
		Adapter:        adapter,
		Dispatcher:     dispatcher,
		States:         states,
		Relay:          hub,
		Focus:          focus,
		CycleInterval:  cfg.Engine.CycleInterval,
		MarketInterval: cfg.Engine.MarketInterval,
		TickInterval:   cfg.Engine.TickInterval,
	}

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:      cfg.App.ListenAddr,
		Store:     st,
		OracleLog: olog,
		Hub:       hub,
		Focus:     focus,
		Gateway:   gateway,
	})
	if err != nil {
		seeds.Close()
		olog.Close()
		st.Close()
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:       cfg,
		store:     st,
		oracleLog: olog,
		seeds:     seeds,
		gateway:   gateway,
		hub:       hub,
		engine:    eng,
		server:    server,
	}, nil
}

// defaultFocus is the relay's initial instrument: the configured one, else
// the first seeded profile's.
func defaultFocus(cfg *config.Config, profiles []profile.Profile) string {
	if cfg.Relay.DefaultFocus != "" {
		return cfg.Relay.DefaultFocus
	}
	if len(profiles) > 0 {
		return profiles[0].Symbol
	}
	return ""
}

// Run connects the gateway and drives the engine and the HTTP server until
// ctx cancels.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := a.gateway.Connect(ctx); err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}
	if err := a.seeds.Watch(); err != nil {
		logger.Warnf("App: profile hot reload disabled: %v", err)
	}
	logger.Infof("App: started listen=%s focus=%s", a.server.Addr(), a.engine.Focus.Get())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.engine.Run(gctx) })
	g.Go(func() error { return a.server.Start(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) close() {
	if a.seeds != nil {
		_ = a.seeds.Close()
	}
	if a.oracleLog != nil {
		_ = a.oracleLog.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
