package alerting

import (
	"time"

	"trade-anomaly-alerts/internal/pattern"
	"trade-anomaly-alerts/internal/trades"
)

// Type tags how an alert was produced.
type Type string

const (
	// TypeBatchAnomaly marks alerts produced by a full buffer flush.
	TypeBatchAnomaly Type = "BATCH_ANOMALY"
	// TypeRealTimeAnomaly marks alerts produced by the critical-trade
	// bypass.
	TypeRealTimeAnomaly Type = "REAL_TIME_ANOMALY"
)

// KeyPrefix is prepended to the trade id to form the sink key.
const KeyPrefix = "anomaly_alert:"

// Alert is the transient record handed to the sink and the caller. It wraps
// either a classified pattern (batch) or a single trade result (real-time).
type Alert struct {
	AlertType    Type           `json:"alert_type"`
	TradeID      string         `json:"trade_id,omitempty"`
	PatternType  pattern.Type   `json:"pattern_type,omitempty"`
	AnomalyScore float64        `json:"anomaly_score"`
	Confidence   float64        `json:"confidence,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Details      any            `json:"details,omitempty"`
}

// FromPattern wraps a classified pattern as a batch-flush alert.
func FromPattern(p pattern.Pattern, emitted time.Time) Alert {
	return Alert{
		AlertType:    TypeBatchAnomaly,
		PatternType:  p.PatternType,
		AnomalyScore: p.AnomalyScore,
		Confidence:   p.Confidence,
		Timestamp:    emitted.UTC(),
		Details:      p,
	}
}

// FromTrade wraps a single immediately-scored trade as a real-time alert.
func FromTrade(t trades.Trade, tradeID string, score float64, emitted time.Time) Alert {
	return Alert{
		AlertType:    TypeRealTimeAnomaly,
		TradeID:      tradeID,
		AnomalyScore: score,
		Timestamp:    emitted.UTC(),
		Details:      t,
	}
}

// Key builds the sink key for a trade id.
func Key(tradeID string) string {
	return KeyPrefix + tradeID
}
