package pipeline

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"shrimp/domain/feature"
	"shrimp/domain/schema"
	"shrimp/internal/errors"
)

// NarrowRow is one (date, key, value) observation before widening.
type NarrowRow struct {
	Date  time.Time
	Key   string
	Value float64
}

// PivotWide reshapes narrow rows into one row per date with a column per
// canonical key. The output schema is the full declared column set in
// declared order, independent of what the rows actually contain: any
// (date, key) combination with no observation is 0, never omitted.
//
// Values landing in the same (date, key) bucket combine per the policy:
// volumes sum, ratio metrics average.
func PivotWide(rows []NarrowRow, columns []string, dates []time.Time, policy func(column string) schema.Agg) (*feature.Frame, error) {
	out := feature.NewFrame(columns, dates)

	type cell struct {
		row, col int
	}
	buckets := make(map[cell][]float64)

	for _, r := range rows {
		ci, ok := out.ColumnIndex(r.Key)
		if !ok {
			// A key outside the canonical set means the source and the
			// trained model disagree about the feature space.
			return nil, errors.SchemaDrift(fmt.Sprintf("pivot key %s not in canonical schema", r.Key))
		}
		ri, ok := out.RowIndex(r.Date)
		if !ok {
			continue
		}
		c := cell{row: ri, col: ci}
		buckets[c] = append(buckets[c], r.Value)
	}

	for c, values := range buckets {
		column := columns[c.col]
		switch policy(column) {
		case schema.AggMean:
			out.Values[c.row][c.col] = stat.Mean(values, nil)
		default:
			sum := 0.0
			for _, v := range values {
				sum += v
			}
			out.Values[c.row][c.col] = sum
		}
	}

	return out, nil
}
