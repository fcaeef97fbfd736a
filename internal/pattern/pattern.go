// Package pattern labels why a flagged trade is anomalous using
// deterministic rules over the trade and its batch context.
package pattern

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"trade-anomaly-alerts/internal/trades"
)

// Type enumerates the heuristic anomaly categories.
type Type string

const (
	TypeUnusuallyLargeTrade  Type = "UNUSUALLY_LARGE_TRADE"
	TypeRapidTrading         Type = "RAPID_TRADING"
	TypeOffHoursTrading      Type = "OFF_HOURS_TRADING"
	TypeUnusualPriceMovement Type = "UNUSUAL_PRICE_MOVEMENT"
	TypeGeneralAnomaly       Type = "GENERAL_ANOMALY"
)

// Pattern is the structured record produced for every flagged trade.
// Never mutated after creation.
type Pattern struct {
	TradeID      string         `json:"trade_id"`
	Timestamp    time.Time      `json:"timestamp"`
	AccountID    string         `json:"account_id"`
	Instrument   string         `json:"instrument"`
	PatternType  Type           `json:"pattern_type"`
	AnomalyScore float64        `json:"anomaly_score"`
	Confidence   float64        `json:"confidence"`
	Details      map[string]any `json:"details"`
}

// Classifier evaluates the labeling rules in fixed priority order.
type Classifier struct {
	// LargeTradeMultiple is the notional multiple of the batch mean size
	// above which a trade is unusually large.
	LargeTradeMultiple float64
	// RapidGap is the maximum spacing between consecutive same-account
	// trades that counts as rapid trading.
	RapidGap time.Duration
	// MarketOpenHour and MarketCloseHour bound the regular session
	// (inclusive).
	MarketOpenHour  int
	MarketCloseHour int
	// PriceDeviation is the fractional deviation from the same-instrument
	// batch median that counts as unusual price movement.
	PriceDeviation float64
}

// NewClassifier returns a classifier with the standard surveillance
// thresholds.
func NewClassifier() *Classifier {
	return &Classifier{
		LargeTradeMultiple: 10,
		RapidGap:           10 * time.Second,
		MarketOpenHour:     9,
		MarketCloseHour:    15,
		PriceDeviation:     0.1,
	}
}

// Classify assigns the anomaly category for a flagged trade given its batch
// context. Rules are evaluated in priority order; the first match wins.
func (c *Classifier) Classify(trade trades.Trade, batch []trades.Trade) Type {
	switch {
	case c.isUnusuallyLarge(trade, batch):
		return TypeUnusuallyLargeTrade
	case c.isRapidTrading(trade, batch):
		return TypeRapidTrading
	case c.isOffHours(trade):
		return TypeOffHoursTrading
	case c.isUnusualPriceMove(trade, batch):
		return TypeUnusualPriceMovement
	default:
		return TypeGeneralAnomaly
	}
}

// Details builds the pattern detail payload. Trade size, price and quantity
// are always present; large trades add the size multiple and rapid trading
// adds the account trade count plus minimum inter-trade gap.
func (c *Classifier) Details(trade trades.Trade, batch []trades.Trade, patternType Type) map[string]any {
	details := map[string]any{
		"trade_size": trade.Notional().InexactFloat64(),
		"price":      trade.Price.InexactFloat64(),
		"quantity":   trade.Quantity,
	}

	switch patternType {
	case TypeUnusuallyLargeTrade:
		if avg := meanNotional(batch); avg > 0 {
			details["size_multiple"] = trade.Notional().InexactFloat64() / avg
		}
	case TypeRapidTrading:
		accountTimes := accountTimestamps(trade.AccountID, batch)
		details["trade_count"] = len(accountTimes)
		if gap, ok := minGap(accountTimes); ok {
			details["min_time_gap"] = gap.Seconds()
		}
	}

	return details
}

func (c *Classifier) isUnusuallyLarge(trade trades.Trade, batch []trades.Trade) bool {
	avg := meanNotional(batch)
	if avg <= 0 {
		return false
	}
	return trade.Notional().InexactFloat64() > avg*c.LargeTradeMultiple
}

func (c *Classifier) isRapidTrading(trade trades.Trade, batch []trades.Trade) bool {
	times := accountTimestamps(trade.AccountID, batch)
	gap, ok := minGap(times)
	return ok && gap < c.RapidGap
}

func (c *Classifier) isOffHours(trade trades.Trade) bool {
	hour := trade.Timestamp.Hour()
	return hour < c.MarketOpenHour || hour > c.MarketCloseHour
}

func (c *Classifier) isUnusualPriceMove(trade trades.Trade, batch []trades.Trade) bool {
	prices := make([]float64, 0, 8)
	for _, t := range batch {
		if t.Instrument == trade.Instrument {
			prices = append(prices, t.Price.InexactFloat64())
		}
	}
	if len(prices) < 2 {
		return false
	}

	sort.Float64s(prices)
	median := stat.Quantile(0.5, stat.LinInterp, prices, nil)
	if median == 0 {
		return false
	}

	deviation := trade.Price.InexactFloat64() - median
	if deviation < 0 {
		deviation = -deviation
	}
	return deviation/median > c.PriceDeviation
}

// meanNotional is the batch mean quantity times the batch mean price, the
// reference size for the large-trade rule.
func meanNotional(batch []trades.Trade) float64 {
	if len(batch) == 0 {
		return 0
	}
	quantities := make([]float64, len(batch))
	prices := make([]float64, len(batch))
	for i, t := range batch {
		quantities[i] = float64(t.Quantity)
		prices[i] = t.Price.InexactFloat64()
	}
	return stat.Mean(quantities, nil) * stat.Mean(prices, nil)
}

// accountTimestamps returns the time-sorted timestamps of every batch trade
// for the given account.
func accountTimestamps(accountID string, batch []trades.Trade) []time.Time {
	times := make([]time.Time, 0, 8)
	for _, t := range batch {
		if t.AccountID == accountID {
			times = append(times, t.Timestamp)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

func minGap(sorted []time.Time) (time.Duration, bool) {
	if len(sorted) < 2 {
		return 0, false
	}
	min := sorted[1].Sub(sorted[0])
	for i := 2; i < len(sorted); i++ {
		if gap := sorted[i].Sub(sorted[i-1]); gap < min {
			min = gap
		}
	}
	return min, true
}
