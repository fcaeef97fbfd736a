package storage

import (
	"time"

	"trade-anomaly-alerts/internal/pattern"
)

// PatternRecord is a persisted detection result for auditing.
type PatternRecord struct {
	ID           int64
	TradeID      string
	TradeTS      time.Time
	AccountID    string
	Instrument   string
	PatternType  pattern.Type
	AnomalyScore float64
	Confidence   float64
	Details      []byte
	CreatedAt    time.Time
}
