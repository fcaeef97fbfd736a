package app

import (
	"context"
	"errors"
	"time"
)

// Purge deletes persisted patterns older than the retention period.
func (a *App) Purge(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return errors.New("retention period must be greater than zero")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot purge patterns")
	}
	if closeStore != nil {
		defer closeStore()
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	if err := store.DeletePatternsBefore(ctx, cutoff); err != nil {
		return err
	}

	a.Logger.Info().Time("cutoff", cutoff).Msg("purged old patterns")
	return nil
}
