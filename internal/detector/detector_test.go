package detector

import (
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trade-anomaly-alerts/internal/trades"
)

// stubScorer flags trades by index so tests control the detection outcome.
type stubScorer struct {
	flagged map[int]bool
	score   float64
	fitted  bool
}

func (s *stubScorer) Fit(features [][]float64) error {
	s.fitted = true
	return nil
}

func (s *stubScorer) Predict(features [][]float64) ([]bool, error) {
	flags := make([]bool, len(features))
	for i := range features {
		flags[i] = s.flagged[i]
	}
	return flags, nil
}

func (s *stubScorer) Score(features [][]float64) ([]float64, error) {
	scores := make([]float64, len(features))
	for i := range features {
		scores[i] = s.score
	}
	return scores, nil
}

func (s *stubScorer) State() ([]byte, error) { return []byte("stub"), nil }

func (s *stubScorer) Restore(state []byte) error { return nil }

func sampleBatch(n int) []trades.Trade {
	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	batch := make([]trades.Trade, n)
	for i := range batch {
		batch[i] = trades.Trade{
			ID:         fmt.Sprintf("T%d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			AccountID:  fmt.Sprintf("A%d", i%3+1),
			Instrument: "TCS",
			Quantity:   int64(10 + i),
			Price:      decimal.NewFromInt(int64(100 + i)),
		}
	}
	return batch
}

// stubDetector trains a detector whose scoring is driven by the stub, while
// the scaler and feature pipeline stay real.
func stubDetector(t *testing.T, batch []trades.Trade, stub *stubScorer) *Detector {
	t.Helper()
	d, err := New(Config{Contamination: 0.1, RandomSeed: 42}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	d.scorer = stub
	if _, err := d.Train(batch, nil); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return d
}

func TestPredictRequiresTraining(t *testing.T) {
	d, err := New(Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, _, err := d.Predict(sampleBatch(3)); err != ErrNotTrained {
		t.Fatalf("Predict error = %v, want ErrNotTrained", err)
	}
	if _, err := d.DetectPatterns(sampleBatch(3)); err != ErrNotTrained {
		t.Fatalf("DetectPatterns error = %v, want ErrNotTrained", err)
	}
	if err := d.Save(filepath.Join(t.TempDir(), "model.bin")); err != ErrNotTrained {
		t.Fatalf("Save error = %v, want ErrNotTrained", err)
	}
}

func TestPredictAlignsToBatchOrder(t *testing.T) {
	batch := sampleBatch(6)
	stub := &stubScorer{flagged: map[int]bool{1: true, 4: true}, score: -0.3}
	d := stubDetector(t, batch, stub)

	flags, scores, err := d.Predict(batch)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(flags) != len(batch) || len(scores) != len(batch) {
		t.Fatalf("got %d flags and %d scores for %d trades", len(flags), len(scores), len(batch))
	}
	for i, flag := range flags {
		want := i == 1 || i == 4
		if flag != want {
			t.Fatalf("flag %d = %v, want %v", i, flag, want)
		}
	}
}

func TestDetectPatternsFlaggedOnly(t *testing.T) {
	batch := sampleBatch(6)
	stub := &stubScorer{flagged: map[int]bool{1: true, 4: true}, score: -0.3}
	d := stubDetector(t, batch, stub)

	patterns, err := d.DetectPatterns(batch)
	if err != nil {
		t.Fatalf("DetectPatterns failed: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("got %d patterns, want 2", len(patterns))
	}
	if patterns[0].TradeID != batch[1].ID || patterns[1].TradeID != batch[4].ID {
		t.Fatalf("patterns out of input order: %s, %s", patterns[0].TradeID, patterns[1].TradeID)
	}
	for _, p := range patterns {
		if p.PatternType == "" {
			t.Fatal("pattern type must be assigned")
		}
		if p.Confidence <= 0 || p.Confidence >= 1 {
			t.Fatalf("confidence %v outside (0,1)", p.Confidence)
		}
		if p.Details == nil {
			t.Fatal("details must be populated")
		}
	}
}

func TestDetectPatternsIdempotent(t *testing.T) {
	batch := sampleBatch(6)
	stub := &stubScorer{flagged: map[int]bool{0: true, 3: true}, score: -0.1}
	d := stubDetector(t, batch, stub)

	first, err := d.DetectPatterns(batch)
	if err != nil {
		t.Fatalf("first DetectPatterns failed: %v", err)
	}
	second, err := d.DetectPatterns(batch)
	if err != nil {
		t.Fatalf("second DetectPatterns failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated detection over the same batch diverged")
	}
}

func TestConfidence(t *testing.T) {
	cases := []struct {
		score float64
		want  float64
	}{
		{0, 0.5},
		{-0.5, 1 / (1 + math.Exp(-0.5))},
		{0.5, 1 / (1 + math.Exp(0.5))},
	}
	for _, tc := range cases {
		if got := Confidence(tc.score); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("Confidence(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}

	// Lower scores mean stronger outliers and must yield higher confidence.
	if Confidence(-1) <= Confidence(0) || Confidence(0) <= Confidence(1) {
		t.Fatal("Confidence is not decreasing in score")
	}
}

func TestTrainReportsAUC(t *testing.T) {
	batch, labels := trades.Synthetic(300, 42, 0.1, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))

	d, err := New(Config{Contamination: 0.1, RandomSeed: 42}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	metrics, err := d.Train(batch, labels)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	auc, ok := metrics["auc"]
	if !ok {
		t.Fatal("training with labels should report auc")
	}
	if auc < 0 || auc > 1 {
		t.Fatalf("auc = %v outside [0,1]", auc)
	}
}

func TestTrainWithoutLabelsSkipsMetrics(t *testing.T) {
	batch, _ := trades.Synthetic(200, 42, 0.1, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))

	d, err := New(Config{Contamination: 0.1, RandomSeed: 42}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	metrics, err := d.Train(batch, nil)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(metrics) != 0 {
		t.Fatalf("unlabelled training reported metrics: %v", metrics)
	}
	if !d.Trained() {
		t.Fatal("detector should be trained")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	batch, _ := trades.Synthetic(300, 42, 0.1, start)

	d, err := New(Config{Contamination: 0.1, RandomSeed: 42}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := d.Train(batch, nil); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.bin")
	if err := d.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored, err := New(Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !restored.Trained() {
		t.Fatal("loaded detector should be trained")
	}

	probe, _ := trades.Synthetic(100, 7, 0.1, start)
	wantFlags, wantScores, err := d.Predict(probe)
	if err != nil {
		t.Fatalf("Predict on original failed: %v", err)
	}
	gotFlags, gotScores, err := restored.Predict(probe)
	if err != nil {
		t.Fatalf("Predict on restored failed: %v", err)
	}
	if !reflect.DeepEqual(wantFlags, gotFlags) {
		t.Fatal("restored model produced different flags")
	}
	if !reflect.DeepEqual(wantScores, gotScores) {
		t.Fatal("restored model produced different scores")
	}
}

func TestLoadMissingFile(t *testing.T) {
	d, err := New(Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Load(filepath.Join(t.TempDir(), "absent.bin")); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
	if d.Trained() {
		t.Fatal("failed load must not mark the detector trained")
	}
}
