package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trapline/internal/profile"
)

func TestPnLBlockedTargetInclusive(t *testing.T) {
	p := profile.Profile{ID: "p1", DailyTarget: 150, DailyLossLimit: -75}

	blocked, _ := PnLBlocked(p, 149.99)
	assert.False(t, blocked)

	blocked, reason := PnLBlocked(p, 150)
	assert.True(t, blocked)
	assert.Contains(t, reason, "target")

	blocked, _ = PnLBlocked(p, 180)
	assert.True(t, blocked)
}

func TestPnLBlockedLossInclusive(t *testing.T) {
	p := profile.Profile{ID: "p1", DailyTarget: 150, DailyLossLimit: -75}

	blocked, _ := PnLBlocked(p, -74.99)
	assert.False(t, blocked)

	blocked, reason := PnLBlocked(p, -75)
	assert.True(t, blocked)
	assert.Contains(t, reason, "loss limit")

	blocked, _ = PnLBlocked(p, -200)
	assert.True(t, blocked)
}

func TestPnLBlockedZeroThresholdsDisabled(t *testing.T) {
	p := profile.Profile{ID: "p1"}
	blocked, _ := PnLBlocked(p, 99999)
	assert.False(t, blocked)
	blocked, _ = PnLBlocked(p, -99999)
	assert.False(t, blocked)
}

func clock(hh, mm int) time.Time {
	return time.Date(2026, 3, 10, hh, mm, 0, 0, time.UTC)
}

func TestInWindowDaytime(t *testing.T) {
	p := profile.Profile{ID: "p1", WindowStart: "07:00", WindowEnd: "21:00"}

	assert.False(t, InWindow(p, clock(6, 59)))
	assert.True(t, InWindow(p, clock(7, 0)), "start boundary is inside")
	assert.True(t, InWindow(p, clock(12, 30)))
	assert.True(t, InWindow(p, clock(21, 0)), "end boundary is inside")
	assert.False(t, InWindow(p, clock(21, 1)))
}

func TestInWindowOvernightWrap(t *testing.T) {
	p := profile.Profile{ID: "p1", WindowStart: "22:00", WindowEnd: "02:00"}

	assert.True(t, InWindow(p, clock(23, 30)))
	assert.True(t, InWindow(p, clock(0, 15)))
	assert.True(t, InWindow(p, clock(22, 0)))
	assert.True(t, InWindow(p, clock(2, 0)))
	assert.False(t, InWindow(p, clock(2, 1)))
	assert.False(t, InWindow(p, clock(12, 0)))
	assert.False(t, InWindow(p, clock(21, 59)))
}

func TestInWindowMalformedFailsOpen(t *testing.T) {
	for _, p := range []profile.Profile{
		{ID: "p1", WindowStart: "7am", WindowEnd: "21:00"},
		{ID: "p1", WindowStart: "07:00", WindowEnd: "25:99"},
		{ID: "p1", WindowStart: "", WindowEnd: ""},
	} {
		assert.True(t, InWindow(p, clock(3, 0)), "malformed window must not halt trading")
	}
}
