// Package model loads per-sensor artifact bundles and runs the forecast
// head. The predictor is a pure black-box function of the input tensor;
// nothing here knows about the training pipeline.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skylens/aqcast/pkg/features"
	"github.com/skylens/aqcast/pkg/types"
)

// Artifact bundle file names.
const (
	ModelFile   = "model.json"
	ScalerXFile = "scaler_x.json"
	ScalerYFile = "scaler_y.json"
)

// Predictor maps an encoded input tensor to a scaled forecast vector.
// Implementations must be deterministic for a given artifact version and
// free of side effects.
type Predictor interface {
	Predict(t features.Tensor) ([]float64, error)
}

// Bundle is one sensor's serving-ready artifact set.
type Bundle struct {
	Predictor Predictor
	ScalerX   *AffineScaler
	ScalerY   *AffineScaler
}

// Load reads a bundle from an artifact directory.
func Load(dir string) (*Bundle, error) {
	predictor, err := LoadLinearPredictor(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, err
	}

	scalerX, err := LoadScaler(filepath.Join(dir, ScalerXFile))
	if err != nil {
		return nil, err
	}
	if len(scalerX.Scale) != types.NumFeatures {
		return nil, fmt.Errorf("input scaler fitted for %d columns, expected %d",
			len(scalerX.Scale), types.NumFeatures)
	}

	scalerY, err := LoadScaler(filepath.Join(dir, ScalerYFile))
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Predictor: predictor,
		ScalerX:   scalerX,
		ScalerY:   scalerY,
	}, nil
}

// LinearPredictor evaluates an exported regression head over the flattened
// input window: output[j] = Bias[j] + Σ_i Weights[i][j] * x[i].
type LinearPredictor struct {
	// Weights has one row per flattened input element and one column per
	// forecast horizon step.
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// LoadLinearPredictor reads model weights from a JSON file.
func LoadLinearPredictor(path string) (*LinearPredictor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}

	var p LinearPredictor
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}

	if len(p.Bias) == 0 {
		return nil, fmt.Errorf("model %s: empty bias vector", path)
	}
	for i, row := range p.Weights {
		if len(row) != len(p.Bias) {
			return nil, fmt.Errorf("model %s: weight row %d has %d columns, expected %d",
				path, i, len(row), len(p.Bias))
		}
	}

	return &p, nil
}

// Horizon returns the number of forecast steps the model produces.
func (p *LinearPredictor) Horizon() int {
	return len(p.Bias)
}

// Predict implements Predictor.
func (p *LinearPredictor) Predict(t features.Tensor) ([]float64, error) {
	if len(t) != 1 {
		return nil, fmt.Errorf("expected batch of 1, got %d", len(t))
	}

	flat := make([]float64, 0, types.WindowLength*types.NumFeatures)
	for _, row := range t[0] {
		flat = append(flat, row...)
	}

	if len(p.Weights) != len(flat) {
		return nil, fmt.Errorf("model expects %d inputs, got %d", len(p.Weights), len(flat))
	}

	out := make([]float64, len(p.Bias))
	copy(out, p.Bias)
	for i, x := range flat {
		if x == 0 {
			continue
		}
		for j, w := range p.Weights[i] {
			out[j] += w * x
		}
	}

	return out, nil
}
