package pipeline

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"shrimp/internal/errors"
	"shrimp/ports"
)

// MinMaxScaler scales features to [0,1] against the min/max observed in the
// data it was fitted on. Each prediction request fits fresh scalers on its
// own flattened 4-week row: scale is relative to the recent local window,
// not to a global historical distribution, and with a single flattened
// sample every column is degenerate, so transform yields zeros and the
// inverse adds the fitted value back. That is a load-bearing property of
// the trained model's input contract and must not be replaced with global
// scaling or a per-feature matrix fit.
type MinMaxScaler struct {
	Min   []float64
	Range []float64 // max-min per feature; 0 marks a degenerate column
}

// FitMinMax computes per-feature min and range over the matrix rows.
func FitMinMax(matrix [][]float64) (*MinMaxScaler, error) {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return nil, errors.InvalidInput("cannot fit scaler on empty matrix")
	}
	width := len(matrix[0])
	for _, row := range matrix {
		if len(row) != width {
			return nil, errors.InvalidInput("ragged matrix passed to scaler")
		}
	}

	s := &MinMaxScaler{
		Min:   make([]float64, width),
		Range: make([]float64, width),
	}
	column := make([]float64, len(matrix))
	for ci := 0; ci < width; ci++ {
		for ri := range matrix {
			column[ri] = matrix[ri][ci]
		}
		lo, err := stats.Min(column)
		if err != nil {
			return nil, errors.Wrap(err, "scaler fit failed")
		}
		hi, err := stats.Max(column)
		if err != nil {
			return nil, errors.Wrap(err, "scaler fit failed")
		}
		s.Min[ci] = lo
		s.Range[ci] = hi - lo
	}
	return s, nil
}

// Transform maps each cell to (v-min)/range. Degenerate columns (no spread
// in the fitted data) map to 0, mirroring the reference scaler's zero-range
// handling, so the inverse still reproduces the original value.
func (s *MinMaxScaler) Transform(matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for ri, row := range matrix {
		if len(row) != len(s.Min) {
			return nil, errors.SchemaDrift(fmt.Sprintf(
				"scaler fitted on %d features, asked to transform %d", len(s.Min), len(row)))
		}
		out[ri] = make([]float64, len(row))
		for ci, v := range row {
			out[ri][ci] = (v - s.Min[ci]) / s.denom(ci)
		}
	}
	return out, nil
}

// InverseTransform maps scaled cells back to v*range+min.
func (s *MinMaxScaler) InverseTransform(matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for ri, row := range matrix {
		if len(row) != len(s.Min) {
			return nil, errors.SchemaDrift(fmt.Sprintf(
				"scaler fitted on %d features, asked to invert %d", len(s.Min), len(row)))
		}
		out[ri] = make([]float64, len(row))
		for ci, v := range row {
			out[ri][ci] = v*s.denom(ci) + s.Min[ci]
		}
	}
	return out, nil
}

func (s *MinMaxScaler) denom(ci int) float64 {
	if s.Range[ci] == 0 {
		return 1
	}
	return s.Range[ci]
}

// ToTensor reshapes a (weeks x features) matrix into the single-sample 3-D
// tensor the sequence model consumes.
func ToTensor(matrix [][]float64) ports.Tensor {
	lags := len(matrix)
	features := 0
	if lags > 0 {
		features = len(matrix[0])
	}
	t := ports.NewTensor(1, lags, features)
	for lag, row := range matrix {
		for f, v := range row {
			t.Set(0, lag, f, v)
		}
	}
	return t
}

// FromTensor flattens a single-sample tensor back into a (lags x features)
// matrix.
func FromTensor(t ports.Tensor) ([][]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, errors.SchemaDrift(err.Error())
	}
	if t.Samples != 1 {
		return nil, errors.SchemaDrift(fmt.Sprintf("expected single-sample tensor, got %d samples", t.Samples))
	}
	out := make([][]float64, t.Lags)
	for lag := 0; lag < t.Lags; lag++ {
		out[lag] = make([]float64, t.Features)
		for f := 0; f < t.Features; f++ {
			out[lag][f] = t.At(0, lag, f)
		}
	}
	return out, nil
}
