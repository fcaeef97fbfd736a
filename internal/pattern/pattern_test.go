package pattern

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade-anomaly-alerts/internal/trades"
)

func mkTrade(id, account, instrument string, ts time.Time, qty int64, price float64) trades.Trade {
	return trades.Trade{
		ID:         id,
		Timestamp:  ts,
		AccountID:  account,
		Instrument: instrument,
		Quantity:   qty,
		Price:      decimal.NewFromFloat(price),
	}
}

func sessionTime(minute int) time.Time {
	return time.Date(2024, 1, 2, 11, minute, 0, 0, time.UTC)
}

// quietBatch produces n small trades on distinct accounts, one per minute.
func quietBatch(n int) []trades.Trade {
	batch := make([]trades.Trade, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, mkTrade(
			fmt.Sprintf("T%d", i+1),
			fmt.Sprintf("A%d", i+1),
			"TCS", sessionTime(i), 10, 100,
		))
	}
	return batch
}

func TestClassifyUnusuallyLargeTrade(t *testing.T) {
	// 11 small trades of notional 1000 and one of 500000. The batch mean
	// notional is ~42583, so the big trade clears the 10x bar.
	batch := quietBatch(11)
	big := mkTrade("T12", "A12", "TCS", sessionTime(11), 5000, 100)
	batch = append(batch, big)

	c := NewClassifier()
	if got := c.Classify(big, batch); got != TypeUnusuallyLargeTrade {
		t.Fatalf("Classify = %s, want %s", got, TypeUnusuallyLargeTrade)
	}

	details := c.Details(big, batch, TypeUnusuallyLargeTrade)
	if details["trade_size"].(float64) != 500000 {
		t.Fatalf("trade_size = %v, want 500000", details["trade_size"])
	}
	multiple, ok := details["size_multiple"].(float64)
	if !ok || multiple <= 10 {
		t.Fatalf("size_multiple = %v, want > 10", details["size_multiple"])
	}
}

func TestClassifyPriorityLargeBeatsRapid(t *testing.T) {
	// The big trade follows another A1 trade by 3 seconds, so it also
	// satisfies the rapid rule; the large-trade rule has priority.
	batch := quietBatch(11)
	big := mkTrade("T12", "A1", "TCS", batch[0].Timestamp.Add(3*time.Second), 5000, 100)
	batch = append(batch, big)

	c := NewClassifier()
	if got := c.Classify(big, batch); got != TypeUnusuallyLargeTrade {
		t.Fatalf("Classify = %s, want %s", got, TypeUnusuallyLargeTrade)
	}
	if !c.isRapidTrading(big, batch) {
		t.Fatal("fixture should also satisfy the rapid-trading rule")
	}
}

func TestClassifyRapidTrading(t *testing.T) {
	batch := []trades.Trade{
		mkTrade("T1", "A1", "TCS", sessionTime(0), 10, 100),
		mkTrade("T2", "A1", "INFY", sessionTime(0).Add(4*time.Second), 10, 100),
		mkTrade("T3", "A2", "TCS", sessionTime(5), 10, 100),
	}

	c := NewClassifier()
	if got := c.Classify(batch[0], batch); got != TypeRapidTrading {
		t.Fatalf("Classify = %s, want %s", got, TypeRapidTrading)
	}

	details := c.Details(batch[0], batch, TypeRapidTrading)
	if details["trade_count"].(int) != 2 {
		t.Fatalf("trade_count = %v, want 2", details["trade_count"])
	}
	if details["min_time_gap"].(float64) != 4 {
		t.Fatalf("min_time_gap = %v, want 4", details["min_time_gap"])
	}
}

func TestClassifyOffHours(t *testing.T) {
	early := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	late := time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	batch := []trades.Trade{
		mkTrade("T1", "A1", "TCS", early, 10, 100),
		mkTrade("T2", "A2", "TCS", late, 10, 100),
		mkTrade("T3", "A3", "TCS", sessionTime(0), 10, 100),
	}

	c := NewClassifier()
	if got := c.Classify(batch[0], batch); got != TypeOffHoursTrading {
		t.Fatalf("early trade Classify = %s, want %s", got, TypeOffHoursTrading)
	}
	if got := c.Classify(batch[1], batch); got != TypeOffHoursTrading {
		t.Fatalf("late trade Classify = %s, want %s", got, TypeOffHoursTrading)
	}
}

func TestClassifyUnusualPriceMovement(t *testing.T) {
	batch := []trades.Trade{
		mkTrade("T1", "A1", "TCS", sessionTime(0), 10, 100),
		mkTrade("T2", "A2", "TCS", sessionTime(1), 10, 101),
		mkTrade("T3", "A3", "TCS", sessionTime(2), 10, 130),
	}

	c := NewClassifier()
	if got := c.Classify(batch[2], batch); got != TypeUnusualPriceMovement {
		t.Fatalf("Classify = %s, want %s", got, TypeUnusualPriceMovement)
	}
}

func TestClassifyGeneralAnomalyFallback(t *testing.T) {
	batch := []trades.Trade{
		mkTrade("T1", "A1", "TCS", sessionTime(0), 10, 100),
		mkTrade("T2", "A2", "TCS", sessionTime(5), 10, 101),
	}

	c := NewClassifier()
	if got := c.Classify(batch[0], batch); got != TypeGeneralAnomaly {
		t.Fatalf("Classify = %s, want %s", got, TypeGeneralAnomaly)
	}

	details := c.Details(batch[0], batch, TypeGeneralAnomaly)
	for _, key := range []string{"trade_size", "price", "quantity"} {
		if _, ok := details[key]; !ok {
			t.Fatalf("details missing %q", key)
		}
	}
}
