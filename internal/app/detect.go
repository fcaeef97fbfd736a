package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Detect runs one batch detection pass over a stored trade window and
// prints the classified patterns. With Persist enabled the patterns are
// also written to the audit table.
func (a *App) Detect(ctx context.Context, opts DetectOptions) error {
	if !opts.From.Before(opts.To) {
		return errors.New("from must be before to")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot detect over stored trades")
	}
	if closeStore != nil {
		defer closeStore()
	}

	modelPath := opts.ModelPath
	if modelPath == "" {
		modelPath = a.Config.Detector.ModelPath
	}
	det, err := a.loadDetector(modelPath)
	if err != nil {
		return err
	}

	batch, err := store.ListTradesBetween(ctx, opts.From, opts.To)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		fmt.Fprintln(os.Stdout, "no trades found in window")
		return nil
	}

	patterns, err := det.DetectPatterns(batch)
	if err != nil {
		return err
	}

	a.Logger.Info().Int("trades", len(batch)).Int("patterns", len(patterns)).Msg("batch detection completed")

	if opts.Persist {
		for _, p := range patterns {
			if _, err := store.InsertPattern(ctx, p); err != nil {
				a.Logger.Error().Err(err).Str("trade_id", p.TradeID).Msg("failed to persist pattern")
			}
		}
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Trade\tTime (UTC)\tAccount\tInstrument\tPattern\tScore\tConfidence")
	for _, p := range patterns {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%.4f\t%.4f\n",
			p.TradeID,
			p.Timestamp.UTC().Format(time.RFC3339),
			p.AccountID,
			p.Instrument,
			p.PatternType,
			p.AnomalyScore,
			p.Confidence,
		)
	}
	return writer.Flush()
}
