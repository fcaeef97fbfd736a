package scorer

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres each feature column to zero mean and unit
// variance. Columns with zero variance are shifted but not scaled.
// Fields are exported for gob persistence alongside the forest state.
type StandardScaler struct {
	Means []float64
	Stds  []float64
}

// Fit computes per-column means and standard deviations.
func (s *StandardScaler) Fit(features [][]float64) error {
	if len(features) == 0 {
		return fmt.Errorf("scaler: empty matrix")
	}

	width := len(features[0])
	s.Means = make([]float64, width)
	s.Stds = make([]float64, width)

	column := make([]float64, len(features))
	for c := 0; c < width; c++ {
		for r, row := range features {
			column[r] = row[c]
		}
		mean, std := stat.MeanStdDev(column, nil)
		s.Means[c] = mean
		s.Stds[c] = std
	}
	return nil
}

// Transform returns a scaled copy of the matrix using the fitted
// statistics.
func (s *StandardScaler) Transform(features [][]float64) ([][]float64, error) {
	if len(s.Means) == 0 {
		return nil, fmt.Errorf("scaler: not fitted")
	}

	out := make([][]float64, len(features))
	for r, row := range features {
		if len(row) != len(s.Means) {
			return nil, fmt.Errorf("scaler: row %d has %d columns, fitted with %d", r, len(row), len(s.Means))
		}
		scaled := make([]float64, len(row))
		for c, v := range row {
			scaled[c] = v - s.Means[c]
			if std := s.Stds[c]; std > 0 {
				scaled[c] /= std
			}
		}
		out[r] = scaled
	}
	return out, nil
}

// FitTransform fits the scaler and scales the training matrix in one pass.
func (s *StandardScaler) FitTransform(features [][]float64) ([][]float64, error) {
	if err := s.Fit(features); err != nil {
		return nil, err
	}
	return s.Transform(features)
}
