package features

import (
	"fmt"

	"github.com/skylens/aqcast/pkg/types"
)

// Scaler is the fitted per-column transform applied before inference. The
// encoder treats it as opaque; implementations must preserve matrix shape.
type Scaler interface {
	Transform(matrix [][]float64) ([][]float64, error)
}

// Tensor is the model input, shape (1, WindowLength, NumFeatures).
type Tensor [][][]float64

// InsufficientWindowError reports that too few feature rows were available
// to fill the model window. This is the expected failure mode on sparse
// upstream data and is distinguishable from all other errors.
type InsufficientWindowError struct {
	Rows int
}

func (e *InsufficientWindowError) Error() string {
	return fmt.Sprintf("insufficient data: got %d rows, need %d", e.Rows, types.WindowLength)
}

// Encode scales the most recent WindowLength feature rows and reshapes them
// into the model input tensor. Column order matches types.FeatureColumns,
// the order the scaler was fitted with.
func Encode(rows []types.FeatureRow, scaler Scaler) (Tensor, error) {
	if len(rows) < types.WindowLength {
		return nil, &InsufficientWindowError{Rows: len(rows)}
	}

	window := rows[len(rows)-types.WindowLength:]

	matrix := make([][]float64, types.WindowLength)
	for i := range window {
		vals := window[i].Values()
		matrix[i] = vals[:]
	}

	scaled, err := scaler.Transform(matrix)
	if err != nil {
		return nil, fmt.Errorf("failed to scale input: %w", err)
	}

	return Tensor{scaled}, nil
}
