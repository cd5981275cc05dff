package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// AffineScaler applies a fitted per-column affine transform
// y = x*Scale[i] + Offset[i]. Covers both min-max and standard fits, which
// export to this form.
type AffineScaler struct {
	Scale  []float64 `json:"scale"`
	Offset []float64 `json:"offset"`
}

// LoadScaler reads scaler parameters from a JSON file in an artifact bundle.
func LoadScaler(path string) (*AffineScaler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scaler %s: %w", path, err)
	}

	var s AffineScaler
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scaler %s: %w", path, err)
	}

	if len(s.Scale) == 0 || len(s.Scale) != len(s.Offset) {
		return nil, fmt.Errorf("scaler %s: scale/offset length mismatch (%d vs %d)",
			path, len(s.Scale), len(s.Offset))
	}

	return &s, nil
}

// Transform scales every row of the matrix column-wise.
func (s *AffineScaler) Transform(matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(s.Scale) {
			return nil, fmt.Errorf("scaler fitted for %d columns, got %d", len(s.Scale), len(row))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = v*s.Scale[j] + s.Offset[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// InverseTransform maps scaled values back to the original units. Vectors
// longer than the fitted width reuse the first column's parameters, matching
// a single-target fit applied across forecast horizons.
func (s *AffineScaler) InverseTransform(vec []float64) ([]float64, error) {
	out := make([]float64, len(vec))
	for i, v := range vec {
		j := i
		if j >= len(s.Scale) {
			j = 0
		}
		if s.Scale[j] == 0 {
			return nil, fmt.Errorf("scaler column %d has zero scale", j)
		}
		out[i] = (v - s.Offset[j]) / s.Scale[j]
	}
	return out, nil
}
