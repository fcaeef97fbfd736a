package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trade-anomaly-alerts/internal/alerting"
	"trade-anomaly-alerts/internal/config"
	"trade-anomaly-alerts/internal/detector"
	"trade-anomaly-alerts/internal/feed"
	"trade-anomaly-alerts/internal/realtime"
	"trade-anomaly-alerts/internal/scheduler"
	"trade-anomaly-alerts/internal/service"
	"trade-anomaly-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, storage.PoolConfig{
		DSN:             a.Config.Database.DSN,
		MaxOpenConns:    a.Config.Database.MaxOpenConns,
		MaxIdleConns:    a.Config.Database.MaxIdleConns,
		ConnMaxLifetime: a.Config.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newSink() (alerting.Sink, func()) {
	if a.Config.Redis.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	closer := func() {
		_ = client.Close()
	}
	return alerting.NewRedisSink(client, a.Logger), closer
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Webhook.Enabled {
		cfg := a.Config.Alerting.Webhook
		return alerting.NewWebhookNotifier(cfg.URL, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) newDetector() (*detector.Detector, error) {
	return detector.New(detector.Config{
		Contamination: a.Config.Detector.Contamination,
		RandomSeed:    a.Config.Detector.RandomSeed,
		ModelType:     a.Config.Detector.ModelType,
	}, a.Logger)
}

func (a *App) loadDetector(path string) (*detector.Detector, error) {
	det, err := a.newDetector()
	if err != nil {
		return nil, err
	}
	if err := det.Load(path); err != nil {
		return nil, err
	}
	return det, nil
}

func (a *App) newRealtime(det realtime.BatchDetector, sink alerting.Sink) *realtime.Detector {
	return realtime.New(det, sink, realtime.Options{
		BufferCapacity:    a.Config.Realtime.BufferCapacity,
		CriticalThreshold: decimal.NewFromFloat(a.Config.Realtime.CriticalThreshold),
		AlertTTL:          a.Config.Redis.AlertTTL,
	}, a.Logger)
}

// Run executes the long-running streaming detection service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; the streaming service needs a trade feed")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sink, closeSink := a.newSink()
	if sink == nil {
		a.Logger.Warn().Msg("redis.addr not configured; alert persistence disabled")
	}
	if closeSink != nil {
		defer closeSink()
	}

	det, err := a.loadDetector(a.Config.Detector.ModelPath)
	if err != nil {
		return err
	}

	rt := a.newRealtime(det, sink)
	feeder := feed.NewStoreFeed(store, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(service.Options{
		Interval:        a.Config.Scheduler.Interval,
		AdvisoryLockKey: a.Config.Scheduler.AdvisoryLockKey,
		NotifierEnabled: a.Config.Alerting.Enabled,
	}, sched, feeder, rt, store, a.newNotifier(), store, a.Logger)

	a.Logger.Info().Msg("starting surveillance service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("surveillance service stopped")
	return nil
}

// TrainOptions configure model training.
type TrainOptions struct {
	InputCSV  string
	From      *time.Time
	To        *time.Time
	ModelPath string
}

// DetectOptions configure a batch detection pass.
type DetectOptions struct {
	From      time.Time
	To        time.Time
	ModelPath string
	Persist   bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Trades bool
}

// ExportOptions hold parameters for exporting detected patterns.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions configure the synthetic streaming run.
type SimulateOptions struct {
	Count        int
	Seed         int64
	AnomalyRatio float64
}
