package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"trade-anomaly-alerts/internal/alerting"
	"trade-anomaly-alerts/internal/trades"
)

// Simulate trains a throwaway model on a synthetic trade stream and replays
// the same stream through the real-time detector. It needs no database or
// redis and exists to exercise the full pipeline locally.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.Count <= 0 {
		return errors.New("count must be greater than zero")
	}
	if opts.AnomalyRatio <= 0 || opts.AnomalyRatio >= 1 {
		return errors.New("anomaly ratio must be in (0, 1)")
	}

	start := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	batch, labels := trades.Synthetic(opts.Count, opts.Seed, opts.AnomalyRatio, start)

	det, err := a.newDetector()
	if err != nil {
		return err
	}

	metrics, err := det.Train(batch, labels)
	if err != nil {
		return err
	}
	for name, value := range metrics {
		a.Logger.Info().Str("metric", name).Float64("value", value).Msg("training metric")
	}

	rt := a.newRealtime(det, nil)

	counts := map[alerting.Type]int{}
	for _, trade := range batch {
		alerts, err := rt.ProcessTrade(ctx, trade)
		if err != nil {
			return err
		}
		for _, alert := range alerts {
			counts[alert.AlertType]++
		}
	}

	// Drain whatever is left below capacity.
	tail, err := rt.Flush(ctx)
	if err != nil {
		return err
	}
	for _, alert := range tail {
		counts[alert.AlertType]++
	}

	fmt.Fprintf(os.Stdout, "trades: %d\nbatch alerts: %d\nreal-time alerts: %d\n",
		opts.Count,
		counts[alerting.TypeBatchAnomaly],
		counts[alerting.TypeRealTimeAnomaly],
	)
	return nil
}
