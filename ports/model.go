package ports

import (
	"context"
	"fmt"
)

// Tensor is a dense row-major 3-D tensor (samples x lags x features), the
// wire shape the sequence model consumes and produces.
type Tensor struct {
	Samples  int       `json:"samples"`
	Lags     int       `json:"lags"`
	Features int       `json:"features"`
	Values   []float64 `json:"values"`
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(samples, lags, features int) Tensor {
	return Tensor{
		Samples:  samples,
		Lags:     lags,
		Features: features,
		Values:   make([]float64, samples*lags*features),
	}
}

// At reads one cell.
func (t Tensor) At(sample, lag, feature int) float64 {
	return t.Values[(sample*t.Lags+lag)*t.Features+feature]
}

// Set writes one cell.
func (t *Tensor) Set(sample, lag, feature int, v float64) {
	t.Values[(sample*t.Lags+lag)*t.Features+feature] = v
}

// Validate checks shape consistency.
func (t Tensor) Validate() error {
	if want := t.Samples * t.Lags * t.Features; len(t.Values) != want {
		return fmt.Errorf("tensor shape (%d,%d,%d) expects %d values, got %d",
			t.Samples, t.Lags, t.Features, want, len(t.Values))
	}
	return nil
}

// Inferencer invokes the external sequence model: a single synchronous call,
// stateless and deterministic for a fixed checkpoint. No retries; errors
// propagate to the caller unmodified.
type Inferencer interface {
	Infer(ctx context.Context, input Tensor) (Tensor, error)
}
