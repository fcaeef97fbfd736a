// Package realtime buffers an incoming trade stream and converts detection
// output into alert records.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trade-anomaly-alerts/internal/alerting"
	"trade-anomaly-alerts/internal/pattern"
	"trade-anomaly-alerts/internal/trades"
)

const (
	// DefaultBufferCapacity is the batch size at which the buffer flushes.
	DefaultBufferCapacity = 100
	// DefaultCriticalThreshold is the notional above which a trade is
	// scored immediately instead of waiting for a flush.
	DefaultCriticalThreshold = 10_000_000
	// AlertTTL bounds the lifetime of alerts written to the sink.
	AlertTTL = time.Hour
)

// BatchDetector is the trained detection capability consumed by the
// real-time wrapper.
type BatchDetector interface {
	Predict(batch []trades.Trade) ([]bool, []float64, error)
	DetectPatterns(batch []trades.Trade) ([]pattern.Pattern, error)
}

// Options tune the real-time wrapper.
type Options struct {
	BufferCapacity    int
	CriticalThreshold decimal.Decimal
	AlertTTL          time.Duration
}

// Detector owns the trade buffer and applies the flush/bypass policy.
// All buffer mutation happens under one lock so append, capacity check and
// flush form a single critical section.
type Detector struct {
	mu     sync.Mutex
	buffer []trades.Trade

	detector BatchDetector
	sink     alerting.Sink
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

// New constructs the real-time wrapper around a trained detector. The sink
// may be nil, in which case flushed alerts are only returned to the caller.
func New(detector BatchDetector, sink alerting.Sink, opts Options, logger zerolog.Logger) *Detector {
	if opts.BufferCapacity <= 0 {
		opts.BufferCapacity = DefaultBufferCapacity
	}
	if opts.CriticalThreshold.Sign() <= 0 {
		opts.CriticalThreshold = decimal.NewFromInt(DefaultCriticalThreshold)
	}
	if opts.AlertTTL <= 0 {
		opts.AlertTTL = AlertTTL
	}

	return &Detector{
		buffer:   make([]trades.Trade, 0, opts.BufferCapacity),
		detector: detector,
		sink:     sink,
		opts:     opts,
		logger:   logger.With().Str("component", "realtime").Logger(),
		now:      time.Now,
	}
}

// BufferLen reports the number of currently buffered trades.
func (d *Detector) BufferLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffer)
}

// ProcessTrade appends the trade to the buffer and returns any alerts it
// triggered. A full buffer flushes as one batch; below capacity, a trade
// whose notional exceeds the critical threshold is scored alone through the
// bypass. A critical trade stays buffered either way, so it can surface
// again in a later flush.
func (d *Detector) ProcessTrade(ctx context.Context, trade trades.Trade) ([]alerting.Alert, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buffer = append(d.buffer, trade)

	if len(d.buffer) >= d.opts.BufferCapacity {
		return d.flushLocked(ctx)
	}

	if d.isCritical(trade) {
		return d.processSingleLocked(trade)
	}

	return nil, nil
}

// Flush forces a flush of whatever is buffered, e.g. on shutdown.
func (d *Detector) Flush(ctx context.Context) ([]alerting.Alert, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked(ctx)
}

func (d *Detector) isCritical(trade trades.Trade) bool {
	return trade.Notional().GreaterThan(d.opts.CriticalThreshold)
}

func (d *Detector) processSingleLocked(trade trades.Trade) ([]alerting.Alert, error) {
	flags, scores, err := d.detector.Predict([]trades.Trade{trade})
	if err != nil {
		return nil, err
	}
	if len(flags) == 0 || !flags[0] {
		return nil, nil
	}

	alert := alerting.FromTrade(trade, trade.EffectiveID(0), scores[0], d.now())
	d.logger.Warn().
		Str("trade_id", alert.TradeID).
		Float64("anomaly_score", alert.AnomalyScore).
		Msg("critical trade flagged")

	// Bypass alerts go straight back to the caller; they are not written
	// to the sink and the trade stays buffered.
	return []alerting.Alert{alert}, nil
}

func (d *Detector) flushLocked(ctx context.Context) ([]alerting.Alert, error) {
	if len(d.buffer) == 0 {
		return []alerting.Alert{}, nil
	}

	patterns, err := d.detector.DetectPatterns(d.buffer)
	if err != nil {
		// The buffer is kept so a later flush can retry the batch.
		return nil, err
	}

	batchSize := len(d.buffer)
	d.buffer = make([]trades.Trade, 0, d.opts.BufferCapacity)

	emitted := d.now()
	alerts := make([]alerting.Alert, 0, len(patterns))
	for _, p := range patterns {
		alert := alerting.FromPattern(p, emitted)
		alerts = append(alerts, alert)

		if d.sink == nil {
			continue
		}
		if err := d.sink.Publish(ctx, alerting.Key(p.TradeID), d.opts.AlertTTL, alert); err != nil {
			// Sink writes are best-effort; the computed alerts are
			// still returned to the caller.
			d.logger.Error().Err(err).Str("trade_id", p.TradeID).Msg("failed to persist alert")
		}
	}

	d.logger.Info().
		Int("batch", batchSize).
		Int("alerts", len(alerts)).
		Msg("buffer flushed")

	return alerts, nil
}
