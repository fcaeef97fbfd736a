package feature

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"trade-anomaly-alerts/internal/trades"
)

const (
	volatilityWindow = 10
	rapidGapSeconds  = 10
	marketOpenHour   = 9
	marketCloseHour  = 15
)

// columns is the fixed feature order. Predict-time extraction must produce
// exactly this set in this order; the detector records it at train time and
// rejects any mismatch.
var columns = []string{
	"trade_size",
	"price_change",
	"volume_ratio",
	"trading_hour",
	"trading_minute",
	"account_trade_frequency",
	"instrument_volatility",
	"price_zscore",
	"volume_zscore",
	"rapid_succession",
	"market_open_proximity",
	"market_close_proximity",
}

// Columns returns a copy of the canonical feature column names.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Matrix is one feature vector per trade, rows aligned to batch order.
type Matrix struct {
	ColumnNames []string
	Rows        [][]float64
}

// Extract derives the feature matrix for a trade batch. It is a pure
// function of the batch: identical input yields identical output. Undefined
// group statistics (single-member groups, zero std) fall back to zero.
func Extract(batch []trades.Trade) (*Matrix, error) {
	if err := trades.ValidateBatch(batch); err != nil {
		return nil, err
	}

	n := len(batch)
	prices := make([]float64, n)
	quantities := make([]float64, n)
	for i, t := range batch {
		prices[i] = t.Price.InexactFloat64()
		quantities[i] = float64(t.Quantity)
	}

	byInstrument := groupIndices(batch, func(t trades.Trade) string { return t.Instrument })

	priceChange := make([]float64, n)
	volumeRatio := make([]float64, n)
	volatility := make([]float64, n)
	priceZ := make([]float64, n)
	volumeZ := make([]float64, n)
	for _, idx := range byInstrument {
		groupPrices := gather(prices, idx)
		groupQty := gather(quantities, idx)

		for j, row := range idx {
			if j > 0 {
				prev := groupPrices[j-1]
				if prev != 0 {
					priceChange[row] = (groupPrices[j] - prev) / prev
				}
			}
			volatility[row] = rollingStd(groupPrices, j, volatilityWindow)
		}

		qtyMean := stat.Mean(groupQty, nil)
		for j, row := range idx {
			if qtyMean != 0 {
				volumeRatio[row] = groupQty[j] / qtyMean
			}
		}

		fillZScores(priceZ, groupPrices, idx)
		fillZScores(volumeZ, groupQty, idx)
	}

	accountCount := make(map[string]int, 8)
	rapid := make([]float64, n)
	lastSeen := make(map[string]int64, 8)
	frequency := make([]float64, n)
	for i, t := range batch {
		accountCount[t.AccountID]++
		frequency[i] = float64(accountCount[t.AccountID])

		key := t.AccountID + "\x00" + t.Instrument
		ts := t.Timestamp.UnixNano()
		if prev, ok := lastSeen[key]; ok {
			gap := float64(ts-prev) / 1e9
			if gap < rapidGapSeconds {
				rapid[i] = 1
			}
		}
		lastSeen[key] = ts
	}

	rows := make([][]float64, n)
	for i, t := range batch {
		hour := float64(t.Timestamp.Hour())
		minute := float64(t.Timestamp.Minute())
		rows[i] = sanitize([]float64{
			quantities[i] * prices[i],
			priceChange[i],
			volumeRatio[i],
			hour,
			minute,
			frequency[i],
			volatility[i],
			priceZ[i],
			volumeZ[i],
			rapid[i],
			math.Abs(hour - marketOpenHour),
			math.Abs(hour - marketCloseHour),
		})
	}

	return &Matrix{ColumnNames: Columns(), Rows: rows}, nil
}

// groupIndices collects batch positions per key, preserving batch order both
// across groups (first appearance) and within each group.
func groupIndices(batch []trades.Trade, key func(trades.Trade) string) [][]int {
	order := make([]string, 0, 8)
	groups := make(map[string][]int, 8)
	for i, t := range batch {
		k := key(t)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	out := make([][]int, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}
	return out
}

func gather(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = values[i]
	}
	return out
}

// rollingStd is the sample standard deviation over the trailing window
// ending at position j, with a minimum of one observation. Windows with
// fewer than two observations yield zero.
func rollingStd(values []float64, j, window int) float64 {
	start := j - window + 1
	if start < 0 {
		start = 0
	}
	slice := values[start : j+1]
	if len(slice) < 2 {
		return 0
	}
	return stat.StdDev(slice, nil)
}

// fillZScores writes per-group z-scores into dst at the group's batch
// positions. An undefined or zero group std yields zero for every member.
func fillZScores(dst []float64, group []float64, idx []int) {
	if len(group) < 2 {
		return
	}
	mean, std := stat.MeanStdDev(group, nil)
	if std == 0 || math.IsNaN(std) {
		return
	}
	for j, row := range idx {
		dst[row] = (group[j] - mean) / std
	}
}

func sanitize(row []float64) []float64 {
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			row[i] = 0
		}
	}
	return row
}
