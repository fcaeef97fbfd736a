package app

import (
	"context"
	"errors"
	"time"

	"trade-anomaly-alerts/internal/trades"
)

// Train fits a new model on historical trades and persists it.
func (a *App) Train(ctx context.Context, opts TrainOptions) error {
	if opts.ModelPath == "" {
		opts.ModelPath = a.Config.Detector.ModelPath
	}

	batch, labels, err := a.trainingBatch(ctx, opts)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return errors.New("no trades available for training")
	}

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

	return det.Save(opts.ModelPath)
}

func (a *App) trainingBatch(ctx context.Context, opts TrainOptions) ([]trades.Trade, []bool, error) {
	if opts.InputCSV != "" {
		return trades.FromCSV(opts.InputCSV)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("either --input or database.dsn must be configured")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.Add(-24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return nil, nil, errors.New("from must be before to")
	}

	batch, err := store.ListTradesBetween(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}
	return batch, nil, nil
}
