package scorer

import (
	"math"
	"testing"
)

func TestScalerFitTransform(t *testing.T) {
	features := [][]float64{
		{1, 10},
		{2, 10},
		{3, 10},
	}

	s := &StandardScaler{}
	scaled, err := s.FitTransform(features)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	// first column: mean 2, sample std 1
	want := []float64{-1, 0, 1}
	for i, row := range scaled {
		if math.Abs(row[0]-want[i]) > 1e-12 {
			t.Fatalf("row %d col 0 = %v, want %v", i, row[0], want[i])
		}
	}

	// constant column is shifted to zero, not divided
	for i, row := range scaled {
		if row[1] != 0 {
			t.Fatalf("row %d col 1 = %v, want 0", i, row[1])
		}
	}

	// input must not be mutated
	if features[0][0] != 1 || features[2][1] != 10 {
		t.Fatal("FitTransform mutated its input")
	}
}

func TestScalerTransformRequiresFit(t *testing.T) {
	s := &StandardScaler{}
	if _, err := s.Transform([][]float64{{1}}); err == nil {
		t.Fatal("Transform before Fit should fail")
	}
}

func TestScalerRejectsWidthMismatch(t *testing.T) {
	s := &StandardScaler{}
	if _, err := s.FitTransform([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if _, err := s.Transform([][]float64{{1, 2, 3}}); err == nil {
		t.Fatal("Transform should reject rows wider than the fitted matrix")
	}
}

func TestScalerRejectsEmptyMatrix(t *testing.T) {
	s := &StandardScaler{}
	if err := s.Fit(nil); err == nil {
		t.Fatal("Fit of an empty matrix should fail")
	}
}

func TestScorerFactory(t *testing.T) {
	model, err := New(Config{ModelType: ModelTypeIsolationForest})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := model.(*IsolationForest); !ok {
		t.Fatalf("New returned %T, want *IsolationForest", model)
	}

	if _, err := New(Config{}); err != nil {
		t.Fatalf("empty model type should default: %v", err)
	}

	if _, err := New(Config{ModelType: "one_class_svm"}); err == nil {
		t.Fatal("unsupported model type should fail")
	}
}

func TestIsolationForestUnfitted(t *testing.T) {
	model := NewIsolationForest(Config{Contamination: 0.1})
	if _, err := model.Predict([][]float64{{0, 0}}); err != ErrNotFitted {
		t.Fatalf("Predict error = %v, want ErrNotFitted", err)
	}
	if _, err := model.Score([][]float64{{0, 0}}); err != ErrNotFitted {
		t.Fatalf("Score error = %v, want ErrNotFitted", err)
	}
	if _, err := model.State(); err != ErrNotFitted {
		t.Fatalf("State error = %v, want ErrNotFitted", err)
	}
}
