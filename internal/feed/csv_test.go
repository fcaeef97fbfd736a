package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTradesFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trades.csv")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write trades file: %v", err)
	}
	return path
}

func TestCSVFeedWindowFilter(t *testing.T) {
	path := writeTradesFile(t, `trade_id,timestamp,account_id,instrument,quantity,price
T1,2024-01-02T10:00:00Z,A1,TCS,100,200
T2,2024-01-02T10:05:00Z,A2,TCS,100,200
T3,2024-01-02T10:10:00Z,A3,TCS,100,200
`)

	feed := NewCSVFeed(path)
	ctx := context.Background()

	from := time.Date(2024, 1, 2, 10, 5, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 10, 10, 0, 0, time.UTC)

	window, err := feed.FetchTrades(ctx, from, to)
	if err != nil {
		t.Fatalf("FetchTrades failed: %v", err)
	}
	// [from, to): T2 is included, T3 is not.
	if len(window) != 1 || window[0].ID != "T2" {
		t.Fatalf("window = %+v, want just T2", window)
	}

	all, err := feed.FetchTrades(ctx, time.Time{}, to.Add(time.Hour))
	if err != nil {
		t.Fatalf("FetchTrades failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("full window returned %d trades, want 3", len(all))
	}
}

func TestCSVFeedMissingFile(t *testing.T) {
	feed := NewCSVFeed(filepath.Join(t.TempDir(), "absent.csv"))
	if _, err := feed.FetchTrades(context.Background(), time.Time{}, time.Now()); err == nil {
		t.Fatal("FetchTrades should fail for a missing file")
	}
	// The load error is cached and returned on every call.
	if _, err := feed.FetchTrades(context.Background(), time.Time{}, time.Now()); err == nil {
		t.Fatal("cached load error should persist")
	}
}
