package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trade-anomaly-alerts/internal/alerting"
	"trade-anomaly-alerts/internal/feed"
	"trade-anomaly-alerts/internal/pattern"
	"trade-anomaly-alerts/internal/realtime"
	"trade-anomaly-alerts/internal/scheduler"
	"trade-anomaly-alerts/internal/storage"
)

// Options carry the service-level settings.
type Options struct {
	Interval        time.Duration
	AdvisoryLockKey int64
	NotifierEnabled bool
}

// Service orchestrates trade polling, real-time detection, persistence and
// alert routing.
type Service struct {
	scheduler    *scheduler.Scheduler
	feeder       feed.TradeFeeder
	detector     *realtime.Detector
	patternStore storage.PatternStore
	notifier     alerting.Notifier
	logger       zerolog.Logger

	opts   Options
	locker storage.AdvisoryLocker
}

// New constructs the surveillance service.
func New(opts Options, sched *scheduler.Scheduler, feeder feed.TradeFeeder, detector *realtime.Detector, patternStore storage.PatternStore, notifier alerting.Notifier, locker storage.AdvisoryLocker, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:    sched,
		feeder:       feeder,
		detector:     detector,
		patternStore: patternStore,
		notifier:     notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		opts:         opts,
		locker:       locker,
	}
}

// Run begins the aligned polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket feeds one window's trades through the real-time detector.
// The window covers [bucket−interval, bucket).
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeBucket(ctx, bucket)
}

func (s *Service) executeBucket(ctx context.Context, bucket time.Time) error {
	from := bucket.Add(-s.opts.Interval)
	batch, err := s.feeder.FetchTrades(ctx, from, bucket)
	if err != nil {
		return fmt.Errorf("fetch trades: %w", err)
	}
	if len(batch) == 0 {
		s.logger.Debug().Time("bucket", bucket).Msg("no trades in window")
		return nil
	}

	emitted := make([]alerting.Alert, 0)
	for _, trade := range batch {
		alerts, err := s.detector.ProcessTrade(ctx, trade)
		if err != nil {
			return fmt.Errorf("process trade %s: %w", trade.ID, err)
		}
		emitted = append(emitted, alerts...)
	}

	s.logger.Info().
		Time("bucket", bucket).
		Int("trades", len(batch)).
		Int("alerts", len(emitted)).
		Msg("window processed")

	if len(emitted) == 0 {
		return nil
	}

	s.persistPatterns(ctx, bucket, emitted)

	if s.opts.NotifierEnabled && s.notifier != nil {
		if err := s.notifier.Notify(ctx, emitted); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to dispatch alerts")
		}
	}

	return nil
}

// persistPatterns records flushed batch patterns for auditing. Failures are
// logged and never roll back the detection result.
func (s *Service) persistPatterns(ctx context.Context, bucket time.Time, alerts []alerting.Alert) {
	if s.patternStore == nil {
		return
	}

	for _, alert := range alerts {
		if alert.AlertType != alerting.TypeBatchAnomaly {
			continue
		}
		p, ok := alert.Details.(pattern.Pattern)
		if !ok {
			continue
		}
		if _, err := s.patternStore.InsertPattern(ctx, p); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Str("trade_id", p.TradeID).Msg("failed to persist pattern")
		}
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.AdvisoryLockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.opts.AdvisoryLockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
