package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"trade-anomaly-alerts/internal/pattern"
	"trade-anomaly-alerts/internal/trades"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listTradesBetweenSQL = `SELECT
        trade_id,
        trade_ts,
        account_id,
        instrument,
        quantity,
        price,
        trade_type
    FROM trades
    WHERE trade_ts >= $1
      AND trade_ts < $2
    ORDER BY trade_ts;`

	listRecentTradesSQL = `SELECT
        trade_id,
        trade_ts,
        account_id,
        instrument,
        quantity,
        price,
        trade_type
    FROM trades
    ORDER BY trade_ts DESC
    LIMIT $1;`

	countTradesSQL = `SELECT COUNT(*) FROM trades;`

	insertPatternSQL = `INSERT INTO patterns (
        trade_id,
        trade_ts,
        account_id,
        instrument,
        pattern_type,
        anomaly_score,
        confidence,
        details
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (trade_id, trade_ts) DO UPDATE
    SET pattern_type  = EXCLUDED.pattern_type,
        anomaly_score = EXCLUDED.anomaly_score,
        confidence    = EXCLUDED.confidence,
        details       = EXCLUDED.details
    RETURNING id, created_at;`

	listRecentPatternsSQL = `SELECT
        id,
        trade_id,
        trade_ts,
        account_id,
        instrument,
        pattern_type,
        anomaly_score,
        confidence,
        details,
        created_at
    FROM patterns
    ORDER BY created_at DESC
    LIMIT $1;`

	listPatternsBetweenSQL = `SELECT
        id,
        trade_id,
        trade_ts,
        account_id,
        instrument,
        pattern_type,
        anomaly_score,
        confidence,
        details,
        created_at
    FROM patterns
    WHERE trade_ts >= $1
      AND trade_ts < $2
    ORDER BY trade_ts;`

	deletePatternsBeforeSQL = `DELETE FROM patterns WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// TradeStore defines read access to the recorded trade stream.
type TradeStore interface {
	ListTradesBetween(ctx context.Context, from, to time.Time) ([]trades.Trade, error)
	ListRecentTrades(ctx context.Context, limit int) ([]trades.Trade, error)
	CountTrades(ctx context.Context) (int64, error)
}

// PatternStore defines operations for detection result auditing.
type PatternStore interface {
	InsertPattern(ctx context.Context, p pattern.Pattern) (PatternRecord, error)
	ListRecentPatterns(ctx context.Context, limit int) ([]PatternRecord, error)
	ListPatternsBetween(ctx context.Context, from, to time.Time) ([]PatternRecord, error)
	DeletePatternsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to trades and detected patterns.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ListTradesBetween lists trades within a time window ordered by timestamp.
func (s *Store) ListTradesBetween(ctx context.Context, from, to time.Time) ([]trades.Trade, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTradesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list trades between: %w", queryErr)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListRecentTrades lists the most recent trades ordered by descending timestamp.
func (s *Store) ListRecentTrades(ctx context.Context, limit int) ([]trades.Trade, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTradesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent trades: %w", queryErr)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// CountTrades counts stored trades.
func (s *Store) CountTrades(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countTradesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count trades: %w", scanErr)
	}
	return count, nil
}

// InsertPattern persists a detection result.
func (s *Store) InsertPattern(ctx context.Context, p pattern.Pattern) (PatternRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return PatternRecord{}, err
	}

	details, err := json.Marshal(p.Details)
	if err != nil {
		return PatternRecord{}, fmt.Errorf("marshal pattern details: %w", err)
	}

	rec := PatternRecord{
		TradeID:      p.TradeID,
		TradeTS:      p.Timestamp,
		AccountID:    p.AccountID,
		Instrument:   p.Instrument,
		PatternType:  p.PatternType,
		AnomalyScore: p.AnomalyScore,
		Confidence:   p.Confidence,
		Details:      details,
	}

	row := pool.QueryRow(ctx, insertPatternSQL,
		rec.TradeID,
		rec.TradeTS,
		rec.AccountID,
		rec.Instrument,
		string(rec.PatternType),
		rec.AnomalyScore,
		rec.Confidence,
		details,
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return PatternRecord{}, fmt.Errorf("insert pattern: %w", scanErr)
	}

	return rec, nil
}

// ListRecentPatterns lists most recent detection results.
func (s *Store) ListRecentPatterns(ctx context.Context, limit int) ([]PatternRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPatternsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent patterns: %w", queryErr)
	}
	defer rows.Close()

	return scanPatternRecords(rows)
}

// ListPatternsBetween lists detection results within a trade-time window.
func (s *Store) ListPatternsBetween(ctx context.Context, from, to time.Time) ([]PatternRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPatternsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list patterns between: %w", queryErr)
	}
	defer rows.Close()

	return scanPatternRecords(rows)
}

// DeletePatternsBefore deletes historical detection results.
func (s *Store) DeletePatternsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deletePatternsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete patterns before: %w", execErr)
	}
	return nil
}

func scanTrades(rows pgx.Rows) ([]trades.Trade, error) {
	batch := make([]trades.Trade, 0)
	for rows.Next() {
		var (
			t        trades.Trade
			priceStr string
		)
		if err := rows.Scan(
			&t.ID,
			&t.Timestamp,
			&t.AccountID,
			&t.Instrument,
			&t.Quantity,
			&priceStr,
			&t.TradeType,
		); err != nil {
			return nil, err
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse trade price: %w", err)
		}
		t.Price = price
		batch = append(batch, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return batch, nil
}

func scanPatternRecords(rows pgx.Rows) ([]PatternRecord, error) {
	records := make([]PatternRecord, 0)
	for rows.Next() {
		var (
			rec         PatternRecord
			patternType string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.TradeID,
			&rec.TradeTS,
			&rec.AccountID,
			&rec.Instrument,
			&patternType,
			&rec.AnomalyScore,
			&rec.Confidence,
			&rec.Details,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.PatternType = pattern.Type(patternType)
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}
