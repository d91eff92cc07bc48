package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanout(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe()
	ch2, cancel2 := h.Subscribe()
	defer cancel1()
	defer cancel2()

	assert.Equal(t, 2, h.Subscribers())

	h.Publish(NewEvent(TypeInfo, "p1", "hello"))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			assert.Equal(t, TypeInfo, evt.Type)
			assert.Equal(t, "p1", evt.ProfileID)
			assert.Equal(t, "hello", evt.Message)
			assert.NotEmpty(t, evt.ID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()
	cancel()
	assert.Equal(t, 0, h.Subscribers())

	// Cancelling twice must be harmless.
	cancel()
	h.Publish(NewEvent(TypeInfo, "", "nobody listening"))
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()
	defer cancel()

	// Never read: the buffer fills and further events are dropped, not
	// blocked on.
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(NewEvent(TypeTick, "", "tick"))
	}
	assert.Equal(t, int64(10), h.Dropped())
}

func TestNewEventFields(t *testing.T) {
	evt := NewEvent(TypeTrade, "p1", "filled")
	require.NotEmpty(t, evt.ID)
	assert.NotEmpty(t, evt.Timestamp)
	assert.Equal(t, TypeTrade, evt.Type)
}
