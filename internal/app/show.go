package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"trade-anomaly-alerts/internal/storage"
)

// Show prints recently persisted patterns, or the recent trade stream when
// requested.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show patterns")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Trades {
		return a.showTrades(ctx, store, opts.Limit)
	}

	records, err := store.ListRecentPatterns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no patterns found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Trade\tTime (UTC)\tAccount\tInstrument\tPattern\tScore\tConfidence\tDetected")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			rec.TradeID,
			rec.TradeTS.UTC().Format(time.RFC3339),
			rec.AccountID,
			sanitizeInline(rec.Instrument),
			rec.PatternType,
			rec.AnomalyScore,
			rec.Confidence,
			rec.CreatedAt.UTC().Format(time.RFC3339),
		)
	}

	return writer.Flush()
}

func (a *App) showTrades(ctx context.Context, store *storage.Store, limit int) error {
	total, err := store.CountTrades(ctx)
	if err != nil {
		return err
	}
	batch, err := store.ListRecentTrades(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "total trades: %d\n", total)
	if len(batch) == 0 {
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Trade\tTime (UTC)\tAccount\tInstrument\tQuantity\tPrice\tSide")
	for _, t := range batch {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			t.ID,
			t.Timestamp.UTC().Format(time.RFC3339),
			t.AccountID,
			sanitizeInline(t.Instrument),
			t.Quantity,
			t.Price.StringFixed(2),
			t.TradeType,
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
