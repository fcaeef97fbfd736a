package trades

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

var (
	syntheticAccounts    = []string{"A1", "A2", "A3", "A4", "A5"}
	syntheticInstruments = []string{"RELIANCE", "TCS", "INFY", "HDFCBANK"}
)

// Synthetic generates a deterministic trade stream for the simulate command
// and for offline experiments. Trades arrive one minute apart starting at
// market open. A ratio of the stream is made anomalous: those trades get
// 10× quantity and half of them an additional 1.5× price spike.
func Synthetic(n int, seed int64, anomalyRatio float64, start time.Time) ([]Trade, []bool) {
	rng := rand.New(rand.NewSource(seed))

	batch := make([]Trade, n)
	labels := make([]bool, n)
	for i := 0; i < n; i++ {
		quantity := int64(rng.Intn(1000)) + 1
		price := 100 + rng.Float64()*2900

		batch[i] = Trade{
			ID:         fmt.Sprintf("T%d", i),
			Timestamp:  start.Add(time.Duration(i) * time.Minute),
			AccountID:  syntheticAccounts[rng.Intn(len(syntheticAccounts))],
			Instrument: syntheticInstruments[rng.Intn(len(syntheticInstruments))],
			Quantity:   quantity,
			Price:      decimal.NewFromFloat(price).Round(2),
			TradeType:  pickSide(rng),
		}
	}

	anomalies := int(float64(n) * anomalyRatio)
	perm := rng.Perm(n)
	for k := 0; k < anomalies && k < n; k++ {
		idx := perm[k]
		batch[idx].Quantity *= 10
		if k < anomalies/2 {
			batch[idx].Price = batch[idx].Price.Mul(decimal.NewFromFloat(1.5)).Round(2)
		}
		labels[idx] = true
	}

	return batch, labels
}

func pickSide(rng *rand.Rand) string {
	if rng.Intn(2) == 0 {
		return "BUY"
	}
	return "SELL"
}
