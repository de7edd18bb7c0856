package signals

import (
	"fmt"
	"time"

	"github.com/aristath/fks-analytics/internal/domain"
)

const marketTimezone = "America/New_York"

// US equity session boundaries in exchange-local time
const (
	marketOpenHour   = 9
	marketOpenMinute = 30
	marketCloseHour  = 16
)

// Entry strategies
const (
	EntryMarket = "market"
	EntryLimit  = "limit"
)

// EntryPlan describes when and how a stored signal should be entered.
type EntryPlan struct {
	NextTradingDay time.Time `json:"next_trading_day"`
	Strategy       string    `json:"entry_strategy"`
	Note           string    `json:"entry_note"`
	TimeUntilOpen  string    `json:"time_until_open,omitempty"`
}

// NextTradingDay returns the next session start for the asset class, in
// UTC. Crypto trades around the clock, so its next day is simply the next
// UTC midnight. Traditional markets open at 09:30 exchange time: after the
// 16:00 close the date rolls forward, and weekends are skipped.
func NextTradingDay(class domain.AssetClass, now time.Time) time.Time {
	if class == domain.ClassCrypto {
		next := now.UTC().AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
	}

	loc, err := time.LoadLocation(marketTimezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	if local.Hour() >= marketCloseHour {
		local = local.AddDate(0, 0, 1)
	}
	for local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		local = local.AddDate(0, 0, 1)
	}
	open := time.Date(local.Year(), local.Month(), local.Day(), marketOpenHour, marketOpenMinute, 0, 0, loc)
	return open.UTC()
}

// BuildEntryPlan turns a signal into an actionable entry for the next
// session. Crypto enters at market immediately; traditional assets get a
// limit order to place before the open.
func BuildEntryPlan(class domain.AssetClass, sig domain.TradingSignal, now time.Time) EntryPlan {
	next := NextTradingDay(class, now)
	plan := EntryPlan{NextTradingDay: next}

	if class == domain.ClassCrypto {
		plan.Strategy = EntryMarket
		plan.Note = "market open 24/7, enter at market"
	} else {
		plan.Strategy = EntryLimit
		plan.Note = fmt.Sprintf("place limit order at %.2f before the 09:30 open", sig.EntryPrice)
	}

	if until := next.Sub(now); until > 0 {
		plan.TimeUntilOpen = until.Round(time.Minute).String()
	}
	return plan
}
