package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"trapline/internal/broker"
	"trapline/internal/logger"
	"trapline/internal/market"
	"trapline/internal/oracle"
	"trapline/internal/pkg/circuit"
	"trapline/internal/profile"
	"trapline/internal/relay"
	"trapline/internal/scheduler"
	"trapline/internal/store"
)

// Default cadences of the three background loops.
const (
	DefaultCycleInterval  = 15 * time.Second
	DefaultMarketInterval = 30 * time.Second
	DefaultTickInterval   = 500 * time.Millisecond
)

const (
	breakerThreshold = 3
	breakerTimeout   = 2 * time.Minute
)

// Engine drives the trading cycle over every enabled profile and keeps the
// relay fed with market context for whichever instrument is in focus.
type Engine struct {
	Store      *store.Store
	Gateway    broker.Gateway
	Fetcher    *market.Fetcher
	Adapter    *Adapter
	Dispatcher *Dispatcher
	States     *StateStore
	Relay      relay.Publisher
	Focus      *Focus

	CycleInterval  time.Duration
	MarketInterval time.Duration
	TickInterval   time.Duration

	breakers map[string]*circuit.Breaker
}

// Run blocks until the context is cancelled, driving the trading cycle, the
// market-data relay and the tick relay concurrently.
func (e *Engine) Run(ctx context.Context) error {
	if e.breakers == nil {
		e.breakers = make(map[string]*circuit.Breaker)
	}
	cycle := newLoop("trading-cycle", e.CycleInterval, DefaultCycleInterval)
	cycle.RunImmediately = true
	marketLoop := newLoop("market-relay", e.MarketInterval, DefaultMarketInterval)
	tick := newLoop("tick-relay", e.TickInterval, DefaultTickInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cycle.Start(gctx, e.runCycle) })
	g.Go(func() error { return marketLoop.Start(gctx, e.relayMarket) })
	g.Go(func() error { return tick.Start(gctx, e.relayTick) })
	return g.Wait()
}

// runCycle is one pass over every enabled profile. A profile failure trips
// its breaker and aborts the pass so the loop backs off.
func (e *Engine) runCycle(ctx context.Context) error {
	profiles, err := e.Store.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	for _, p := range profiles {
		br := e.breaker(p.ID)
		if !br.Allow() {
			logger.Warnf("Engine: profile=%s breaker open, skipping", p.ID)
			e.summary(p.ID, "circuit breaker open, profile paused")
			continue
		}
		if err := e.processProfile(ctx, p); err != nil {
			br.RecordFailure()
			e.Relay.Publish(relay.NewEvent(relay.TypeError, p.ID, err.Error()))
			return fmt.Errorf("profile %s: %w", p.ID, err)
		}
		br.RecordSuccess()
	}
	return nil
}

func (e *Engine) breaker(profileID string) *circuit.Breaker {
	br, ok := e.breakers[profileID]
	if !ok {
		br = circuit.NewBreaker("profile-"+profileID, breakerThreshold, breakerTimeout)
		e.breakers[profileID] = br
	}
	return br
}

// processProfile is one cycle for one profile: risk gate, snapshot, trigger
// management, and only then an oracle consultation.
func (e *Engine) processProfile(ctx context.Context, p profile.Profile) error {
	pnl, err := e.Gateway.DailyRealizedPnL(ctx)
	if err != nil {
		// Without a trustworthy P/L figure the risk gate cannot run, so
		// the profile sits out this cycle rather than trading blind.
		logger.Warnf("Engine: profile=%s daily pnl unavailable, skipping cycle: %v", p.ID, err)
		e.summary(p.ID, "daily P/L unavailable, cycle skipped")
		return nil
	}
	if blocked, reason := PnLBlocked(p, pnl); blocked {
		e.summary(p.ID, "standing down: "+reason)
		return nil
	}
	if !InWindow(p, time.Now()) {
		e.summary(p.ID, fmt.Sprintf("standing down: outside trading window %s-%s", p.WindowStart, p.WindowEnd))
		return nil
	}

	snap, err := e.Fetcher.Fetch(ctx, p.Symbol)
	if err != nil {
		return err
	}
	if snap.Empty() {
		logger.Warnf("Engine: profile=%s empty candle snapshot for %s", p.ID, p.Symbol)
		e.summary(p.ID, "no market data this cycle")
		return nil
	}

	open, err := e.Gateway.HasOpenPosition(ctx, p.Symbol)
	if err != nil {
		// Both the trigger safety check and the double-entry guard need
		// this answer; without it the profile sits out.
		logger.Warnf("Engine: profile=%s position check failed, cycle skipped: %v", p.ID, err)
		e.summary(p.ID, "position state unknown, cycle skipped")
		return nil
	}

	if fired := e.manageTrigger(ctx, p, snap, open); fired {
		return nil
	}
	if open {
		e.summary(p.ID, "position open, holding")
		return nil
	}

	decision := e.Adapter.Consult(ctx, p, snap)
	e.Store.AppendSystemLog(p.ID, "analysis", fmt.Sprintf("%s relevance=%d: %s",
		decision.Decision, decision.Relevance, decision.Reason))
	evt := relay.NewEvent(relay.TypeAnalysis, p.ID, decision.Reason)
	evt.Payload = decisionJSON(decision)
	e.Relay.Publish(evt)

	e.actOn(ctx, p, snap, decision)
	e.summary(p.ID, fmt.Sprintf("cycle done: %s relevance=%d", decision.Decision, decision.Relevance))
	return nil
}

// manageTrigger runs the expiry and confirmation checks on an armed trigger.
// It returns true only when the trigger fired (or was consumed trying): the
// fast path that skips the oracle. In every other case, expired, unconfirmed
// or blocked by an open position, the cycle continues.
func (e *Engine) manageTrigger(ctx context.Context, p profile.Profile, snap market.Snapshot, open bool) bool {
	st := e.States.Snapshot(p.ID)
	t := st.Trigger
	if t == nil {
		return false
	}
	now := time.Now()
	if t.Expired(now) {
		logger.Infof("Engine: profile=%s trigger %s@%.5f expired after %s", p.ID, t.Action, t.Price, TriggerTTL)
		e.States.ClearTrigger(p.ID)
		e.Relay.Publish(relay.NewEvent(relay.TypeInfo, p.ID,
			fmt.Sprintf("trigger %s @ %.5f expired", t.Action, t.Price)))
		return false
	}
	if open {
		// Never fire into an existing position. The trap stays armed and may
		// still expire or be replaced later.
		logger.Debugf("Engine: profile=%s trigger armed but position open, confirmation skipped", p.ID)
		return false
	}

	candle, ok := market.LastClosed(snap.Fast, market.GranularityFast.Step, now)
	if !ok || !t.Confirms(candle) {
		// Stays armed; the oracle gets its usual say and may replace it.
		return false
	}

	// Confirmed. The trap is consumed no matter what happens next: a trigger
	// fires at most once.
	e.States.ClearTrigger(p.ID)
	if !PolicyAllows(p.Policy, st.Relevance) {
		logger.Infof("Engine: profile=%s trigger confirmed but policy %s blocks relevance=%d",
			p.ID, p.Policy, st.Relevance)
		e.summary(p.ID, fmt.Sprintf("trigger confirmed, blocked by %s policy", p.Policy))
		return true
	}
	logger.Infof("Engine: profile=%s trigger fired: %s %s @ close %.5f (armed %.5f)",
		p.ID, t.Action, p.Symbol, candle.Close, t.Price)
	e.Dispatcher.Dispatch(ctx, p, t.Action, st.Relevance, t.Reason)
	e.summary(p.ID, fmt.Sprintf("trigger fired: %s %s", t.Action, p.Symbol))
	return true
}

// actOn executes the oracle's verdict: immediate entries go to the
// dispatcher, and any trigger proposal arms (or replaces) the pending trap.
func (e *Engine) actOn(ctx context.Context, p profile.Profile, snap market.Snapshot, d oracle.Decision) {
	switch d.Decision {
	case oracle.ActionBuy, oracle.ActionSell:
		side := broker.SideBuy
		if d.Decision == oracle.ActionSell {
			side = broker.SideSell
		}
		if !PolicyAllows(p.Policy, d.Relevance) {
			logger.Infof("Engine: profile=%s %s signal blocked by policy %s (relevance=%d)",
				p.ID, side, p.Policy, d.Relevance)
			return
		}
		e.Dispatcher.Dispatch(ctx, p, side, d.Relevance, d.Reason)
	}

	if d.Trigger.Action != oracle.TriggerNone {
		e.armTrigger(p, snap, d)
	}
}

func (e *Engine) armTrigger(p profile.Profile, snap market.Snapshot, d oracle.Decision) {
	t := d.Trigger
	side := broker.SideBuy
	if t.Action == oracle.TriggerSell {
		side = broker.SideSell
	}
	if t.Price <= 0 {
		logger.Warnf("Engine: profile=%s trigger proposal without a price (%s), ignored", p.ID, t.Action)
		return
	}
	current := 0.0
	if n := len(snap.Fast); n > 0 {
		current = snap.Fast[n-1].Close
	}
	if !SaneDirection(side, t.Price, current) {
		logger.Warnf("Engine: profile=%s inverted trigger discarded: %s @ %.5f with market at %.5f",
			p.ID, side, t.Price, current)
		return
	}
	e.States.SetTrigger(p.ID, &TriggerOrder{
		Action:  side,
		Price:   t.Price,
		Reason:  t.Reason,
		ArmedAt: time.Now(),
	})
	msg := fmt.Sprintf("trigger armed: %s %s @ %.5f", side, p.Symbol, t.Price)
	logger.Infof("Engine: profile=%s %s", p.ID, msg)
	e.Store.AppendSystemLog(p.ID, "trigger", msg)
	e.Relay.Publish(relay.NewEvent(relay.TypeInfo, p.ID, msg))
}

// summary emits the per-profile cycle outcome. Every cycle branch ends here
// exactly once so subscribers always see a heartbeat.
func (e *Engine) summary(profileID, msg string) {
	e.Relay.Publish(relay.NewEvent(relay.TypeInfo, profileID, msg))
}

// relayMarket streams medium-granularity candles of the focused instrument.
func (e *Engine) relayMarket(ctx context.Context) error {
	symbol := e.Focus.Get()
	if symbol == "" {
		return nil
	}
	candles, err := e.Gateway.Candles(ctx, symbol, market.GranularityMedium, 60)
	if err != nil {
		return fmt.Errorf("market relay %s: %w", symbol, err)
	}
	evt := relay.NewEvent(relay.TypeMarket, "", symbol)
	evt.Payload = map[string]any{
		"symbol":   symbol,
		"interval": market.GranularityMedium.Interval,
		"candles":  candles,
	}
	e.Relay.Publish(evt)
	return nil
}

// relayTick streams the focused instrument's last price.
func (e *Engine) relayTick(ctx context.Context) error {
	symbol := e.Focus.Get()
	if symbol == "" {
		return nil
	}
	price, err := e.Gateway.LastPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("tick relay %s: %w", symbol, err)
	}
	evt := relay.NewEvent(relay.TypeTick, "", symbol)
	evt.Payload = map[string]any{"symbol": symbol, "price": price}
	e.Relay.Publish(evt)
	return nil
}

func newLoop(name string, interval, fallback time.Duration) *scheduler.Loop {
	if interval <= 0 {
		interval = fallback
	}
	return scheduler.NewLoop(name, interval)
}
