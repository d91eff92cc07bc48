package engine

import (
	"context"
	"fmt"
	"time"

	"trapline/internal/broker"
	"trapline/internal/logger"
	"trapline/internal/profile"
	"trapline/internal/relay"
	"trapline/internal/store"
)

// Dispatcher routes an approved entry either to the live gateway or to the
// paper simulator, then records it. A failed submission is logged and relayed
// but never aborts the cycle.
type Dispatcher struct {
	Gateway broker.Gateway
	Paper   *broker.PaperTrader
	Store   *store.Store
	Relay   relay.Publisher
}

// PolicyAllows applies the profile's aggressiveness filter. SNIPER only takes
// top-conviction setups, SCALPER accepts one notch below, an empty policy
// accepts everything.
func PolicyAllows(policy profile.Policy, relevance int) bool {
	switch policy {
	case profile.PolicySniper:
		return relevance == 5
	case profile.PolicyScalper:
		return relevance >= 4
	default:
		return true
	}
}

// Dispatch submits a market order for the profile. side and relevance come
// from the decision (or the fired trigger) that approved the entry; the
// policy filter has already been applied by the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, p profile.Profile, side broker.Side, relevance int, reason string) {
	req := broker.OrderRequest{
		Symbol:       p.Symbol,
		Side:         side,
		Size:         p.Size,
		StopPoints:   p.StopPoints,
		TargetPoints: p.TargetPoints,
		Reason:       reason,
	}

	var (
		res       broker.OrderResult
		err       error
		simulated = p.Environment == profile.EnvReplay
	)
	if simulated {
		price, perr := d.Gateway.LastPrice(ctx, p.Symbol)
		if perr != nil {
			logger.Warnf("Dispatcher: profile=%s no reference price for simulation: %v", p.ID, perr)
		}
		res = d.Paper.Simulate(req, price)
	} else {
		res, err = d.Gateway.SubmitMarketOrder(ctx, req)
	}
	if err != nil {
		msg := fmt.Sprintf("order rejected: %s %s x%.4f: %v", side, p.Symbol, p.Size, err)
		logger.Errorf("Dispatcher: profile=%s %s", p.ID, msg)
		d.Store.AppendSystemLog(p.ID, "error", msg)
		d.Relay.Publish(relay.NewEvent(relay.TypeError, p.ID, msg))
		return
	}

	mode := "LIVE"
	if simulated {
		mode = "REPLAY"
	}
	msg := fmt.Sprintf("%s %s %s x%.4f @ %.5f ticket=%s (relevance=%d)",
		mode, side, p.Symbol, p.Size, res.FillPrice, res.Ticket, relevance)
	logger.Infof("Dispatcher: profile=%s %s", p.ID, msg)
	d.Store.AppendSystemLog(p.ID, "trade", msg)

	if err := d.Store.RecordTrade(ctx, store.TradeHistoryModel{
		ProfileID: p.ID,
		Ticket:    res.Ticket,
		Symbol:    p.Symbol,
		Side:      string(side),
		Price:     res.FillPrice,
		Size:      p.Size,
		Relevance: relevance,
		Reason:    reason,
		Simulated: simulated,
	}); err != nil {
		logger.Warnf("Dispatcher: profile=%s trade history write failed: %v", p.ID, err)
	}

	evt := relay.NewEvent(relay.TypeTrade, p.ID, msg)
	evt.Marker = &relay.TradeMarker{
		Symbol:    p.Symbol,
		Side:      string(side),
		Price:     res.FillPrice,
		Time:      time.Now().Unix(),
		Relevance: relevance,
	}
	d.Relay.Publish(evt)
}
