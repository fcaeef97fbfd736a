package feed

import (
	"context"
	"sync"
	"time"

	"trade-anomaly-alerts/internal/trades"
)

// CSVFeed replays a trade file as if it were a live feed. The file is read
// once on first use and window queries filter the cached batch.
type CSVFeed struct {
	path string

	once  sync.Once
	batch []trades.Trade
	err   error
}

// NewCSVFeed constructs a file-backed trade feed.
func NewCSVFeed(path string) *CSVFeed {
	return &CSVFeed{path: path}
}

// FetchTrades returns the file's trades whose timestamps fall in [from, to).
func (f *CSVFeed) FetchTrades(ctx context.Context, from, to time.Time) ([]trades.Trade, error) {
	f.once.Do(func() {
		f.batch, _, f.err = trades.FromCSV(f.path)
	})
	if f.err != nil {
		return nil, f.err
	}

	window := make([]trades.Trade, 0)
	for _, t := range f.batch {
		if !t.Timestamp.Before(from) && t.Timestamp.Before(to) {
			window = append(window, t)
		}
	}
	return window, nil
}

var _ TradeFeeder = (*CSVFeed)(nil)
