package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"trapline/internal/logger"
)

// Event is one realtime message pushed to external observers. Emission is
// fire-and-forget: a slow or absent observer never blocks a trading cycle.
type Event struct {
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	ProfileID string       `json:"profile_id,omitempty"`
	Message   string       `json:"message"`
	Marker    *TradeMarker `json:"marker,omitempty"`
	Payload   any          `json:"payload,omitempty"`
}

// TradeMarker annotates a chart with an executed entry.
type TradeMarker struct {
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Time      int64   `json:"time"`
	Relevance int     `json:"relevance"`
}

const (
	TypeInfo     = "info"
	TypeAnalysis = "ai_analysis"
	TypeTrade    = "trade"
	TypeError    = "error"
	TypeMarket   = "market_data"
	TypeTick     = "tick"
)

// Publisher is the one-way sink the engine writes to.
type Publisher interface {
	Publish(evt Event)
}

const subscriberBuffer = 64

// Hub fans events out to websocket subscribers through bounded per-subscriber
// buffers. When a buffer is full the event is dropped for that subscriber and
// counted, never retried.
type Hub struct {
	mu      sync.RWMutex
	nextID  int64
	subs    map[int64]chan Event
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]chan Event)}
}

// NewEvent stamps an event with an ID and timestamp.
func NewEvent(evtType, profileID, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().Format("15:04:05"),
		Type:      evtType,
		ProfileID: profileID,
		Message:   message,
	}
}

func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp == "" {
		evt.Timestamp = time.Now().Format("15:04:05")
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			n := h.dropped.Add(1)
			if n%100 == 1 {
				logger.Warnf("Hub: subscriber buffer full, dropped=%d", n)
			}
		}
	}
}

// Subscribe returns a receive channel and its cancel function.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if existing, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(existing)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Dropped reports how many events were lost to full buffers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers reports the current observer count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
