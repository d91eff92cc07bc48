package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"trapline/internal/chart"
	"trapline/internal/logger"
	"trapline/internal/market"
	"trapline/internal/oracle"
	"trapline/internal/profile"
	"trapline/internal/store/oraclelog"
)

// maxImages caps how many chart renders are attached to one consultation.
const maxImages = 2

// Adapter owns the round trip to the oracle: it serializes the snapshot into
// prompt material, consults the decider and absorbs every failure into a safe
// WAIT fallback. The caller always gets a usable decision.
type Adapter struct {
	Decider  oracle.Decider
	Renderer chart.Renderer // nil disables chart attachments
	Log      *oraclelog.Store
	States   *StateStore
}

// Consult asks the oracle about one profile's snapshot and persists the
// exchange. The returned decision's memory is already written back to the
// state store, fallback or not.
func (a *Adapter) Consult(ctx context.Context, p profile.Profile, snap market.Snapshot) oracle.Decision {
	state := a.States.Snapshot(p.ID)

	req := oracle.Request{
		ProfileID: p.ID,
		Symbol:    p.Symbol,
		Strategy:  p.Strategy,
		Memory:    state.Memory,
		Relevance: state.Relevance,
		PrevDay:   snap.PrevDay,
		Tables:    buildTables(snap),
		Images:    a.renderImages(ctx, p, snap),
	}

	res, err := a.Decider.Decide(ctx, req)
	rec := oraclelog.Record{
		TraceID:    uuid.NewString(),
		ProfileID:  p.ID,
		Symbol:     p.Symbol,
		ImageCount: len(req.Images),
	}
	if err != nil {
		logger.Warnf("Adapter: profile=%s oracle failed, holding position flat: %v", p.ID, err)
		res.Decision = oracle.Fallback(err.Error(), state.Memory)
		rec.Fallback = true
		rec.Error = err.Error()
	}

	rec.System = res.SystemPrompt
	rec.User = res.UserPrompt
	rec.RawOutput = res.RawOutput
	rec.Decision = string(res.Decision.Decision)
	rec.Relevance = res.Decision.Relevance
	if a.Log != nil {
		if lerr := a.Log.Append(ctx, rec); lerr != nil {
			logger.Warnf("Adapter: profile=%s oracle log write failed: %v", p.ID, lerr)
		}
	}

	// Memory is overwritten unconditionally: the oracle rewrites it every
	// cycle, and the fallback already carried the previous one forward.
	a.States.SetMemory(p.ID, res.Decision.Memory, res.Decision.Relevance)
	return res.Decision
}

func buildTables(snap market.Snapshot) []oracle.TableSection {
	// Fastest first; the prompt builder walks the slice backwards so the
	// oracle reads slowest to fastest.
	series := []struct {
		g       market.Granularity
		candles []market.Candle
	}{
		{market.GranularityFast, snap.Fast},
		{market.GranularityFast2x, snap.Fast2x},
		{market.GranularityMedium, snap.Medium},
		{market.GranularityMacro, snap.Macro},
	}
	out := make([]oracle.TableSection, 0, len(series))
	for _, s := range series {
		if len(s.candles) == 0 {
			continue
		}
		out = append(out, oracle.TableSection{
			Name:     s.g.Name,
			Interval: s.g.Interval,
			CSV: market.BuildCandleTable(s.candles, market.CandleTableOptions{
				Interval:       s.g.Interval,
				PricePrecision: market.PrecisionAuto,
			}),
		})
	}
	return out
}

// renderImages attaches charts only on 5-minute boundaries so the vision
// budget is spent on frames that actually changed.
func (a *Adapter) renderImages(ctx context.Context, p profile.Profile, snap market.Snapshot) []oracle.ImageAttachment {
	if a.Renderer == nil {
		return nil
	}
	at := snap.TakenAt
	if at.IsZero() {
		at = time.Now()
	}
	if at.Minute()%5 != 0 {
		return nil
	}
	images, err := a.Renderer.Render(ctx, snap)
	if err != nil {
		logger.Warnf("Adapter: profile=%s chart render failed, continuing text-only: %v", p.ID, err)
		return nil
	}
	if len(images) > maxImages {
		images = images[:maxImages]
	}
	return images
}

// decisionJSON is a debug helper for relay payloads.
func decisionJSON(d oracle.Decision) json.RawMessage {
	b, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	return b
}
