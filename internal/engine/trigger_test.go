package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trapline/internal/broker"
	"trapline/internal/market"
	"trapline/internal/oracle"
)

func TestTriggerExpiry(t *testing.T) {
	armed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	trig := &TriggerOrder{Action: broker.SideBuy, Price: 100, ArmedAt: armed}

	assert.False(t, trig.Expired(armed.Add(14*time.Minute)))
	assert.False(t, trig.Expired(armed.Add(TriggerTTL)), "exactly at TTL is still valid")
	assert.True(t, trig.Expired(armed.Add(TriggerTTL+time.Second)))

	var nilTrig *TriggerOrder
	assert.False(t, nilTrig.Expired(armed))
}

func TestBuyTriggerConfirmation(t *testing.T) {
	trig := &TriggerOrder{Action: broker.SideBuy, Price: 100}

	assert.True(t, trig.Confirms(market.Candle{Open: 99, Close: 100.5}))
	// A touch without a close beyond the level holds.
	assert.False(t, trig.Confirms(market.Candle{Open: 99, High: 101, Close: 100}))
	// Close beyond the level but against the direction holds.
	assert.False(t, trig.Confirms(market.Candle{Open: 102, Close: 100.5}))
	assert.False(t, trig.Confirms(market.Candle{Open: 99, Close: 99.5}))
}

func TestSellTriggerConfirmation(t *testing.T) {
	trig := &TriggerOrder{Action: broker.SideSell, Price: 100}

	assert.True(t, trig.Confirms(market.Candle{Open: 101, Close: 99.5}))
	assert.False(t, trig.Confirms(market.Candle{Open: 101, Low: 98, Close: 100}))
	assert.False(t, trig.Confirms(market.Candle{Open: 99, Close: 99.5}))
	assert.False(t, trig.Confirms(market.Candle{Open: 101, Close: 100.5}))
}

func TestSaneDirection(t *testing.T) {
	assert.True(t, SaneDirection(broker.SideBuy, 105, 100))
	assert.False(t, SaneDirection(broker.SideBuy, 95, 100), "buy trap below market is inverted")
	assert.True(t, SaneDirection(broker.SideSell, 95, 100))
	assert.False(t, SaneDirection(broker.SideSell, 105, 100), "sell trap above market is inverted")
	assert.True(t, SaneDirection(broker.SideBuy, 95, 0), "no reference price, no veto")
}

func TestStateStoreDefaults(t *testing.T) {
	s := NewStateStore()
	st := s.Snapshot("p1")
	assert.Equal(t, 1, st.Relevance)
	assert.Equal(t, oracle.FirstRunMemory, st.Memory)
	assert.Nil(t, st.Trigger)
}

func TestStateStoreTriggerIsolation(t *testing.T) {
	s := NewStateStore()
	s.SetTrigger("p1", &TriggerOrder{Action: broker.SideBuy, Price: 100})

	snap := s.Snapshot("p1")
	snap.Trigger.Price = 999

	again := s.Snapshot("p1")
	assert.Equal(t, 100.0, again.Trigger.Price, "snapshot mutation must not leak back")

	s.ClearTrigger("p1")
	assert.Nil(t, s.Snapshot("p1").Trigger)
}

func TestStateStoreMemoryOverwrite(t *testing.T) {
	s := NewStateStore()
	s.SetMemory("p1", "range day, fade extremes", 4)
	st := s.Snapshot("p1")
	assert.Equal(t, "range day, fade extremes", st.Memory)
	assert.Equal(t, 4, st.Relevance)

	s.SetMemory("p1", "", 1)
	assert.Equal(t, "", s.Snapshot("p1").Memory, "empty memory still overwrites")
}
