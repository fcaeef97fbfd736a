// Package detector orchestrates feature extraction, scaling, outlier
// scoring and pattern classification over trade batches.
package detector

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"trade-anomaly-alerts/internal/feature"
	"trade-anomaly-alerts/internal/pattern"
	"trade-anomaly-alerts/internal/scorer"
	"trade-anomaly-alerts/internal/trades"
)

// ErrNotTrained is returned when prediction or persistence is requested
// before the detector has been trained or loaded.
var ErrNotTrained = errors.New("detector: model not trained")

// Config carries the tunables that are persisted with the model.
type Config struct {
	Contamination float64
	RandomSeed    int64
	ModelType     string
}

// Detector scores trade batches and classifies flagged trades. Training
// transitions it from untrained to trained; re-training replaces the scaler
// and scorer state.
type Detector struct {
	cfg        Config
	scorer     scorer.OutlierScorer
	scaler     *scorer.StandardScaler
	classifier *pattern.Classifier
	columns    []string
	trained    bool
	logger     zerolog.Logger
}

// New constructs an untrained detector.
func New(cfg Config, logger zerolog.Logger) (*Detector, error) {
	if cfg.Contamination <= 0 {
		cfg.Contamination = 0.1
	}
	if cfg.ModelType == "" {
		cfg.ModelType = scorer.ModelTypeIsolationForest
	}

	model, err := scorer.New(scorer.Config{
		Contamination: cfg.Contamination,
		RandomSeed:    cfg.RandomSeed,
		ModelType:     cfg.ModelType,
	})
	if err != nil {
		return nil, err
	}

	return &Detector{
		cfg:        cfg,
		scorer:     model,
		scaler:     &scorer.StandardScaler{},
		classifier: pattern.NewClassifier(),
		logger:     logger.With().Str("component", "detector").Logger(),
	}, nil
}

// Trained reports whether the detector can predict.
func (d *Detector) Trained() bool {
	return d.trained
}

// Train fits the scaler and the outlier scorer on the batch. When labels
// are supplied and contain both classes, the returned metrics include the
// AUC of the binary flags against the labels; otherwise the map is empty.
func (d *Detector) Train(batch []trades.Trade, labels []bool) (map[string]float64, error) {
	d.logger.Info().Int("samples", len(batch)).Msg("training anomaly detector")

	matrix, err := feature.Extract(batch)
	if err != nil {
		return nil, err
	}

	scaled, err := d.scaler.FitTransform(matrix.Rows)
	if err != nil {
		return nil, err
	}

	if err := d.scorer.Fit(scaled); err != nil {
		return nil, err
	}

	d.columns = matrix.ColumnNames
	d.trained = true

	metrics := map[string]float64{}
	if len(labels) == len(batch) && len(labels) > 0 && hasBothClasses(labels) {
		flags, err := d.scorer.Predict(scaled)
		if err != nil {
			return nil, err
		}
		auc := flagAUC(flags, labels)
		metrics["auc"] = auc
		d.logger.Info().Float64("auc", auc).Msg("training evaluation")
	}

	d.logger.Info().Msg("anomaly detector training completed")
	return metrics, nil
}

// Predict returns one outlier flag and one continuous anomaly score per
// trade, aligned to batch order. Score polarity matches training: lower
// means more anomalous.
func (d *Detector) Predict(batch []trades.Trade) ([]bool, []float64, error) {
	if !d.trained {
		return nil, nil, ErrNotTrained
	}

	matrix, err := feature.Extract(batch)
	if err != nil {
		return nil, nil, err
	}
	if err := d.checkColumns(matrix.ColumnNames); err != nil {
		return nil, nil, err
	}

	scaled, err := d.scaler.Transform(matrix.Rows)
	if err != nil {
		return nil, nil, err
	}

	flags, err := d.scorer.Predict(scaled)
	if err != nil {
		return nil, nil, err
	}
	scores, err := d.scorer.Score(scaled)
	if err != nil {
		return nil, nil, err
	}

	return flags, scores, nil
}

// DetectPatterns predicts the batch and classifies every flagged trade.
// Patterns come back in input order, flagged trades only.
func (d *Detector) DetectPatterns(batch []trades.Trade) ([]pattern.Pattern, error) {
	flags, scores, err := d.Predict(batch)
	if err != nil {
		return nil, err
	}

	patterns := make([]pattern.Pattern, 0)
	for i, flagged := range flags {
		if !flagged {
			continue
		}

		trade := batch[i]
		patternType := d.classifier.Classify(trade, batch)
		patterns = append(patterns, pattern.Pattern{
			TradeID:      trade.EffectiveID(i),
			Timestamp:    trade.Timestamp,
			AccountID:    trade.AccountID,
			Instrument:   trade.Instrument,
			PatternType:  patternType,
			AnomalyScore: scores[i],
			Confidence:   Confidence(scores[i]),
			Details:      d.classifier.Details(trade, batch, patternType),
		})
	}

	return patterns, nil
}

// Confidence maps a raw anomaly score to (0,1) via the logistic transform.
// Lower (more anomalous) scores yield higher confidence.
func Confidence(score float64) float64 {
	return 1 / (1 + math.Exp(score))
}

func (d *Detector) checkColumns(cols []string) error {
	if len(cols) != len(d.columns) {
		return fmt.Errorf("detector: feature set changed: got %d columns, trained with %d", len(cols), len(d.columns))
	}
	for i, name := range cols {
		if name != d.columns[i] {
			return fmt.Errorf("detector: feature column %d is %q, trained with %q", i, name, d.columns[i])
		}
	}
	return nil
}

func hasBothClasses(labels []bool) bool {
	first := labels[0]
	for _, l := range labels[1:] {
		if l != first {
			return true
		}
	}
	return false
}

// flagAUC computes the area under the ROC curve of binary outlier flags
// against ground-truth labels.
func flagAUC(flags, labels []bool) float64 {
	y := make([]float64, len(flags))
	classes := make([]bool, len(labels))
	order := make([]int, len(flags))
	for i := range flags {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return asFloat(flags[order[a]]) < asFloat(flags[order[b]])
	})
	for rank, i := range order {
		y[rank] = asFloat(flags[i])
		classes[rank] = labels[i]
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

func asFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
