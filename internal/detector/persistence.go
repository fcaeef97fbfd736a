package detector

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"trade-anomaly-alerts/internal/scorer"
)

// modelSnapshot is the single persisted unit: scorer state, scaler state,
// feature column list and detector configuration.
type modelSnapshot struct {
	ModelType      string
	Contamination  float64
	RandomSeed     int64
	FeatureColumns []string
	Scaler         scorer.StandardScaler
	ScorerState    []byte
}

// Save persists the trained detector atomically to path. Untrained
// detectors cannot be saved.
func (d *Detector) Save(path string) error {
	if !d.trained {
		return ErrNotTrained
	}

	state, err := d.scorer.State()
	if err != nil {
		return fmt.Errorf("detector: snapshot scorer: %w", err)
	}

	snapshot := modelSnapshot{
		ModelType:      d.cfg.ModelType,
		Contamination:  d.cfg.Contamination,
		RandomSeed:     d.cfg.RandomSeed,
		FeatureColumns: d.columns,
		Scaler:         *d.scaler,
		ScorerState:    state,
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return fmt.Errorf("detector: create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snapshot); err != nil {
		tmp.Close()
		return fmt.Errorf("detector: encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("detector: close temp model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("detector: replace model file: %w", err)
	}

	d.logger.Info().Str("path", path).Msg("model saved")
	return nil
}

// Load restores a previously saved detector. The blob must match a
// supported model type; absent or corrupt blobs fail without partial
// restoration.
func (d *Detector) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("detector: open model file: %w", err)
	}
	defer file.Close()

	var snapshot modelSnapshot
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		return fmt.Errorf("detector: decode model: %w", err)
	}
	if len(snapshot.FeatureColumns) == 0 || len(snapshot.ScorerState) == 0 {
		return fmt.Errorf("detector: model blob incomplete")
	}

	model, err := scorer.New(scorer.Config{
		Contamination: snapshot.Contamination,
		RandomSeed:    snapshot.RandomSeed,
		ModelType:     snapshot.ModelType,
	})
	if err != nil {
		return err
	}
	if err := model.Restore(snapshot.ScorerState); err != nil {
		return err
	}

	scaler := snapshot.Scaler
	d.cfg.ModelType = snapshot.ModelType
	d.cfg.Contamination = snapshot.Contamination
	d.cfg.RandomSeed = snapshot.RandomSeed
	d.scorer = model
	d.scaler = &scaler
	d.columns = snapshot.FeatureColumns
	d.trained = true

	d.logger.Info().Str("path", path).Msg("model loaded")
	return nil
}
