// Package scorer wraps interchangeable outlier scoring models behind a
// stable interface so the detector is not coupled to one algorithm family.
package scorer

import "errors"

// ErrNotFitted is returned when a scorer is asked to predict before Fit.
var ErrNotFitted = errors.New("scorer: model not fitted")

// OutlierScorer is the black-box scoring capability consumed by the
// detector. Score follows the decision-function convention: lower (more
// negative) values indicate stronger outliers.
type OutlierScorer interface {
	Fit(features [][]float64) error
	Predict(features [][]float64) ([]bool, error)
	Score(features [][]float64) ([]float64, error)

	// State and Restore serialise the fitted model for persistence.
	State() ([]byte, error)
	Restore(state []byte) error
}

// Config parameterises scorer construction.
type Config struct {
	Contamination float64
	RandomSeed    int64
	ModelType     string
}

// ModelTypeIsolationForest is the one supported scorer family.
const ModelTypeIsolationForest = "isolation_forest"

// New constructs a scorer for the configured model type.
func New(cfg Config) (OutlierScorer, error) {
	switch cfg.ModelType {
	case "", ModelTypeIsolationForest:
		return NewIsolationForest(cfg), nil
	default:
		return nil, errors.New("scorer: unsupported model type " + cfg.ModelType)
	}
}
