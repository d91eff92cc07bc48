package engine

import (
	"fmt"
	"time"

	"trapline/internal/logger"
	"trapline/internal/profile"
)

// PnLBlocked applies the daily P/L gates. Both thresholds are inclusive:
// reaching the target or the loss limit exactly stops trading for the day.
func PnLBlocked(p profile.Profile, dailyPnL float64) (bool, string) {
	if p.DailyTarget > 0 && dailyPnL >= p.DailyTarget {
		return true, fmt.Sprintf("daily target reached (pnl=%.2f >= %.2f)", dailyPnL, p.DailyTarget)
	}
	if p.DailyLossLimit < 0 && dailyPnL <= p.DailyLossLimit {
		return true, fmt.Sprintf("daily loss limit hit (pnl=%.2f <= %.2f)", dailyPnL, p.DailyLossLimit)
	}
	return false, ""
}

// InWindow reports whether now falls inside the profile's trading hours.
// Boundaries are inside the window. start > end means the window wraps past
// midnight. Malformed time strings fail OPEN: the profile is treated as
// always in window, with a warning, rather than silently stopping trading.
func InWindow(p profile.Profile, now time.Time) bool {
	start, err := parseClock(p.WindowStart)
	if err != nil {
		logger.Warnf("RiskGate: profile=%s bad window_start %q, failing open: %v", p.ID, p.WindowStart, err)
		return true
	}
	end, err := parseClock(p.WindowEnd)
	if err != nil {
		logger.Warnf("RiskGate: profile=%s bad window_end %q, failing open: %v", p.ID, p.WindowEnd, err)
		return true
	}
	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return start <= minute && minute <= end
	}
	// Overnight window, e.g. 22:00-02:00.
	return minute >= start || minute <= end
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
