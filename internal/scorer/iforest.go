package scorer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"

	"github.com/e-XpertSolutions/go-iforest/v2/iforest"
)

const (
	forestTrees        = 200
	forestMaxSubsample = 256
)

// IsolationForest adapts the go-iforest ensemble to the OutlierScorer
// interface. The library already reports scores in decision-function
// polarity (negative = more anomalous) and labels anomalies with 1, so
// both pass through unchanged.
type IsolationForest struct {
	cfg    Config
	forest *iforest.Forest
}

// NewIsolationForest constructs an unfitted isolation forest scorer.
func NewIsolationForest(cfg Config) *IsolationForest {
	if cfg.Contamination <= 0 {
		cfg.Contamination = 0.1
	}
	return &IsolationForest{cfg: cfg}
}

// Fit trains the forest on the feature matrix. The subsample size follows
// the usual min(256, n) heuristic.
func (s *IsolationForest) Fit(features [][]float64) error {
	if len(features) == 0 {
		return fmt.Errorf("scorer: empty training matrix")
	}

	subsample := forestMaxSubsample
	if len(features) < subsample {
		subsample = len(features)
	}

	// go-iforest samples through the process-global rand source; seeding
	// it here is the only reproducibility handle the library exposes,
	// and it reseeds that global source for the whole process.
	rand.Seed(s.cfg.RandomSeed)

	forest := iforest.NewForest(forestTrees, subsample, s.cfg.Contamination)
	forest.Train(features)
	if err := forest.Test(features); err != nil {
		return fmt.Errorf("scorer: calibrate forest: %w", err)
	}

	s.forest = forest
	return nil
}

// Predict returns one outlier flag per input row.
func (s *IsolationForest) Predict(features [][]float64) ([]bool, error) {
	if s.forest == nil {
		return nil, ErrNotFitted
	}

	labels, _, err := s.forest.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("scorer: forest predict: %w", err)
	}

	flags := make([]bool, len(labels))
	for i, label := range labels {
		flags[i] = label == 1
	}
	return flags, nil
}

// Score returns one continuous anomaly score per input row, negative for
// outliers.
func (s *IsolationForest) Score(features [][]float64) ([]float64, error) {
	if s.forest == nil {
		return nil, ErrNotFitted
	}

	_, scores, err := s.forest.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("scorer: forest score: %w", err)
	}
	return scores, nil
}

// State gob-encodes the fitted forest.
func (s *IsolationForest) State() ([]byte, error) {
	if s.forest == nil {
		return nil, ErrNotFitted
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.forest); err != nil {
		return nil, fmt.Errorf("scorer: encode forest: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the fitted forest with a previously saved state.
func (s *IsolationForest) Restore(state []byte) error {
	forest := &iforest.Forest{}
	if err := gob.NewDecoder(bytes.NewReader(state)).Decode(forest); err != nil {
		return fmt.Errorf("scorer: decode forest: %w", err)
	}
	s.forest = forest
	return nil
}

var _ OutlierScorer = (*IsolationForest)(nil)
