package pipeline

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"shrimp/domain/feature"
	"shrimp/domain/schema"
	"shrimp/internal/errors"
)

// LagWeeks is the model's input history length in weeks, and also its
// forecast horizon.
const LagWeeks = 4

// WeeklyRow is one resampled week of the merged feature table.
type WeeklyRow struct {
	WeekEnd time.Time
	Values  []float64
}

// ResampleWeekly buckets a daily frame into calendar weeks ending Sunday and
// aggregates each column per its policy (sum for volumes, mean for ratio
// metrics). Rows come out oldest first.
func ResampleWeekly(f *feature.Frame, policy func(column string) schema.Agg) []WeeklyRow {
	type bucket struct {
		end  time.Time
		rows []int
	}
	var order []int64
	buckets := make(map[int64]*bucket)

	for i, d := range f.Dates {
		end := weekEnd(d)
		key := end.Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{end: end}
			buckets[key] = b
			order = append(order, key)
		}
		b.rows = append(b.rows, i)
	}

	out := make([]WeeklyRow, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		row := WeeklyRow{WeekEnd: b.end, Values: make([]float64, f.Width())}
		column := make([]float64, len(b.rows))
		for ci, name := range f.Columns {
			for k, ri := range b.rows {
				column[k] = f.Values[ri][ci]
			}
			switch policy(name) {
			case schema.AggMean:
				row.Values[ci] = stat.Mean(column, nil)
			default:
				sum := 0.0
				for _, v := range column {
					sum += v
				}
				row.Values[ci] = sum
			}
		}
		out = append(out, row)
	}

	return out
}

// LastWeeks keeps the n most recent weekly rows. Fewer than n resampled
// weeks is an insufficient-history condition and is rejected outright;
// padding with synthetic zero-weeks would feed the model history that never
// happened.
func LastWeeks(rows []WeeklyRow, n int) ([]WeeklyRow, error) {
	if len(rows) < n {
		return nil, errors.InsufficientHistory(fmt.Sprintf(
			"need %d resampled weeks before the target date, got %d", n, len(rows)))
	}
	return rows[len(rows)-n:], nil
}

// Flatten collapses n weekly rows into a single feature vector, week-major:
// all of week 1 (oldest), then week 2, and so on. Column names carry the
// week-offset prefix W1..Wn, matching the ordering the model was trained
// with.
func Flatten(rows []WeeklyRow, columns []string) ([]string, []float64) {
	names := make([]string, 0, len(rows)*len(columns))
	values := make([]float64, 0, len(rows)*len(columns))
	for w, row := range rows {
		for ci, col := range columns {
			names = append(names, fmt.Sprintf("W%d_%s", w+1, col))
			values = append(values, row.Values[ci])
		}
	}
	return names, values
}

// weekEnd returns the Sunday closing the week containing d.
func weekEnd(d time.Time) time.Time {
	days := (7 - int(d.Weekday())) % 7
	return feature.Day(d).AddDate(0, 0, days)
}
