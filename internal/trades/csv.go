package trades

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// FromCSV reads a trade batch from a CSV file. The header must contain
// timestamp, account_id, instrument, quantity and price; trade_id,
// trade_type and label columns are optional. When a label column is
// present the returned slice holds one ground-truth flag per trade,
// otherwise it is nil.
func FromCSV(path string) ([]Trade, []bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open trades csv: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV parses trades from r; see FromCSV for the expected layout.
func ReadCSV(r io.Reader) ([]Trade, []bool, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "account_id", "instrument", "quantity", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("trades csv missing required column %q", required)
		}
	}
	_, hasLabels := cols["label"]

	var (
		batch  []Trade
		labels []bool
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		trade, err := parseRecord(cols, record)
		if err != nil {
			return nil, nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		batch = append(batch, trade)

		if hasLabels {
			raw := strings.TrimSpace(record[cols["label"]])
			labels = append(labels, raw == "1" || strings.EqualFold(raw, "true"))
		}
	}

	if err := ValidateBatch(batch); err != nil {
		return nil, nil, err
	}
	if !hasLabels {
		return batch, nil, nil
	}
	return batch, labels, nil
}

func parseRecord(cols map[string]int, record []string) (Trade, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return Trade{}, err
	}

	quantity, err := strconv.ParseInt(field("quantity"), 10, 64)
	if err != nil {
		return Trade{}, fmt.Errorf("parse quantity: %w", err)
	}

	price, err := decimal.NewFromString(field("price"))
	if err != nil {
		return Trade{}, fmt.Errorf("parse price: %w", err)
	}

	return Trade{
		ID:         field("trade_id"),
		Timestamp:  ts,
		AccountID:  field("account_id"),
		Instrument: field("instrument"),
		Quantity:   quantity,
		Price:      price,
		TradeType:  field("trade_type"),
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
