package feature

import (
	"fmt"
	"time"

	"shrimp/internal/errors"
)

// Frame is a date-indexed wide table: one row per date, one column per
// canonical feature key. The column set is always the full declared set
// regardless of data sparsity; cells with no backing data stay 0.
type Frame struct {
	Columns []string
	Dates   []time.Time
	Values  [][]float64

	colIdx map[string]int
	rowIdx map[int64]int
}

// Day normalizes a timestamp to UTC midnight so date equality is exact.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange generates every calendar day in [from, to] inclusive.
func DateRange(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// NewFrame builds a zero-filled frame over the given columns and dates.
func NewFrame(columns []string, dates []time.Time) *Frame {
	f := &Frame{
		Columns: columns,
		Dates:   make([]time.Time, len(dates)),
		Values:  make([][]float64, len(dates)),
		colIdx:  make(map[string]int, len(columns)),
		rowIdx:  make(map[int64]int, len(dates)),
	}
	for i, col := range columns {
		f.colIdx[col] = i
	}
	for i, d := range dates {
		day := Day(d)
		f.Dates[i] = day
		f.Values[i] = make([]float64, len(columns))
		f.rowIdx[day.Unix()] = i
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Dates) }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.Columns) }

// ColumnIndex resolves a column name.
func (f *Frame) ColumnIndex(col string) (int, bool) {
	i, ok := f.colIdx[col]
	return i, ok
}

// RowIndex resolves a date to its row.
func (f *Frame) RowIndex(date time.Time) (int, bool) {
	i, ok := f.rowIdx[Day(date).Unix()]
	return i, ok
}

// Set overwrites a cell. Unknown dates are ignored (data outside the
// requested window); unknown columns are an error because they mean the
// source produced a key outside the canonical set.
func (f *Frame) Set(date time.Time, col string, v float64) error {
	ci, ok := f.colIdx[col]
	if !ok {
		return errors.SchemaDrift(fmt.Sprintf("column %s not in canonical schema", col))
	}
	ri, ok := f.rowIdx[Day(date).Unix()]
	if !ok {
		return nil
	}
	f.Values[ri][ci] = v
	return nil
}

// Add accumulates into a cell, for sum-aggregated metrics.
func (f *Frame) Add(date time.Time, col string, v float64) error {
	ci, ok := f.colIdx[col]
	if !ok {
		return errors.SchemaDrift(fmt.Sprintf("column %s not in canonical schema", col))
	}
	ri, ok := f.rowIdx[Day(date).Unix()]
	if !ok {
		return nil
	}
	f.Values[ri][ci] += v
	return nil
}

// At reads a cell by row index and column name.
func (f *Frame) At(row int, col string) float64 {
	ci, ok := f.colIdx[col]
	if !ok {
		return 0
	}
	return f.Values[row][ci]
}

// Column returns a copy of one column's values.
func (f *Frame) Column(col string) []float64 {
	ci, ok := f.colIdx[col]
	if !ok {
		return nil
	}
	out := make([]float64, len(f.Values))
	for i, row := range f.Values {
		out[i] = row[ci]
	}
	return out
}

// Select reorders the frame to exactly the requested columns. A requested
// column the frame does not carry is schema drift: the feature builder and
// the model disagree about the feature set.
func (f *Frame) Select(columns []string) (*Frame, error) {
	out := NewFrame(columns, f.Dates)
	for _, col := range columns {
		srcIdx, ok := f.colIdx[col]
		if !ok {
			return nil, errors.SchemaDrift(fmt.Sprintf("feature table is missing expected column %s", col))
		}
		dstIdx := out.colIdx[col]
		for i := range f.Values {
			out.Values[i][dstIdx] = f.Values[i][srcIdx]
		}
	}
	return out, nil
}
